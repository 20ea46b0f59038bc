package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"swellwatch/internal/types"
)

// CloudWatchClient abstracts PutMetricData for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRunMetrics publishes alert-run counters. Failures are logged
// and never surface to the run.
//
// Metrics emitted, all with dimension Job:
//   - AlertsChecked, AlertsSkipped, AlertsMatched, NotificationsSent, RunErrors
//   - RunDuration in milliseconds
//   - UsersEnqueued with an extra Trigger dimension (enqueue or inline)
type CloudWatchRunMetrics struct {
	client    CloudWatchClient
	namespace string
	job       string
	logger    *slog.Logger
}

func NewCloudWatchRunMetrics(client CloudWatchClient, namespace, job string, logger *slog.Logger) *CloudWatchRunMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRunMetrics{client: client, namespace: namespace, job: job, logger: logger}
}

// RecordRun emits one datum per RunStats counter.
func (m *CloudWatchRunMetrics) RecordRun(ctx context.Context, stats types.RunStats, duration time.Duration) {
	dims := []cwtypes.Dimension{{Name: aws.String(types.DimJob), Value: aws.String(m.job)}}
	count := func(name string, v int) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(float64(v)),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		}
	}
	data := []cwtypes.MetricDatum{
		count(types.MetricAlertsChecked, stats.AlertsChecked),
		count(types.MetricAlertsSkipped, stats.Skipped),
		count(types.MetricAlertsMatched, stats.Matched),
		count(types.MetricNotificationsSent, stats.NotificationsSent),
		count(types.MetricRunErrors, stats.Errors),
		{
			MetricName: aws.String(types.MetricRunDuration),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
	}
	m.put(ctx, data, "run")
}

// RecordFanout emits the number of users a fan-out reached.
func (m *CloudWatchRunMetrics) RecordFanout(ctx context.Context, mode string, users int) {
	m.put(ctx, []cwtypes.MetricDatum{{
		MetricName: aws.String(types.MetricUsersEnqueued),
		Value:      aws.Float64(float64(users)),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimJob), Value: aws.String(m.job)},
			{Name: aws.String(types.DimTrigger), Value: aws.String(mode)},
		},
	}}, "fanout")
}

func (m *CloudWatchRunMetrics) put(ctx context.Context, data []cwtypes.MetricDatum, what string) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to publish metrics",
			"metrics", what,
			"namespace", m.namespace,
			"error", err,
		)
	}
}
