// Package main is the entrypoint for the Scheduler Lambda function.
//
// EventBridge sends a JobPayload once a day. The handler warms daily scores
// or fans the alert run out to every user with active alerts, depending on
// the task. In enqueue mode the fan-out publishes one message per user to
// the alert-run queue; in inline mode it runs each user in-process.
//
// With APP_ENV=local the binary instead runs a cron daemon on SCHEDULE_CRON
// until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"swellwatch/internal/app"
	"swellwatch/internal/config"
	"swellwatch/internal/queue"
	"swellwatch/internal/scheduler"
	"swellwatch/internal/types"
)

// JobService is satisfied by *scheduler.Service.
type JobService interface {
	Handle(ctx context.Context, p scheduler.JobPayload) error
}

// Handler adapts the Lambda invocation to the scheduler service.
type Handler struct {
	Service JobService
	Logger  *slog.Logger
}

// Handle tags the invocation with a run ID and routes the payload. A
// failure is returned so EventBridge records the invocation as failed.
func (h *Handler) Handle(ctx context.Context, payload scheduler.JobPayload) error {
	ctx = types.WithRunID(ctx, uuid.NewString())
	task := payload.Task
	if task == "" {
		task = scheduler.TaskDailyAlerts
	}
	h.Logger.InfoContext(ctx, "scheduler invoked",
		"task", string(task),
		"run_id", types.GetRunID(ctx),
	)
	if err := h.Service.Handle(ctx, payload); err != nil {
		h.Logger.ErrorContext(ctx, "scheduler task failed", "task", string(task), "error", err)
		return fmt.Errorf("task %s: %w", task, err)
	}
	h.Logger.InfoContext(ctx, "scheduler task completed", "task", string(task))
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogLevel).With("service", "scheduler", "version", cfg.Build.Version)
	slog.SetDefault(logger)
	logger.Info("Scheduler initializing (cold start)", "build", cfg.Build)

	ctx := context.Background()

	service, cleanup, err := buildService(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if cfg.Environment == "local" {
		daemon, err := scheduler.NewDaemon(cfg.Scheduler.Cron, service, logger)
		if err != nil {
			logger.Error("Failed to schedule", "error", err)
			os.Exit(1)
		}
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		daemon.Run(sigCtx)
		return
	}

	handler := &Handler{Service: service, Logger: logger}
	lambda.Start(handler.Handle)
}

// buildService wires the fan-out for the configured mode and the score
// warmer. AWS clients are created only when the queue or metrics need them.
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*scheduler.Service, func(), error) {
	var (
		clients    *app.AWSClients
		runMetrics *scheduler.CloudWatchRunMetrics
		err        error
	)
	needAWS := cfg.Scheduler.Mode == config.ModeEnqueue && cfg.AWS.AlertRunQueueURL != ""
	if needAWS || cfg.Observability.EnableMetrics {
		clients, err = app.NewAWSClients(ctx, cfg.AWS)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS SDK config: %w", err)
		}
	}
	if cfg.Observability.EnableMetrics {
		runMetrics = scheduler.NewCloudWatchRunMetrics(clients.CloudWatch, cfg.Observability.MetricNamespace, "scheduler", logger)
	}

	opts := app.Options{}
	if runMetrics != nil {
		opts.Metrics = runMetrics
	}
	a, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		return nil, nil, err
	}

	fanoutCfg := scheduler.FanoutConfig{
		Users:     a.Alerts,
		Scheduler: cfg.Scheduler,
		Logger:    logger,
	}
	if runMetrics != nil {
		fanoutCfg.Metrics = runMetrics
	}
	switch {
	case cfg.Scheduler.Mode == config.ModeInline:
		fanoutCfg.Runner = a.Runner
	case needAWS:
		fanoutCfg.Enqueuer = queue.NewAlertRunProducer(clients.SQS, cfg.AWS, logger)
	default:
		// Validation only allows this locally.
		logger.Warn("no alert-run queue configured, running users inline")
		fanoutCfg.Scheduler.Mode = config.ModeInline
		fanoutCfg.Runner = a.Runner
	}

	fanout := scheduler.NewDailyFanout(fanoutCfg)
	warmer := scheduler.NewScoreWarmer(a.Locations, a.Scores, logger)

	logger.Info("Scheduler initialized",
		"mode", fanoutCfg.Scheduler.Mode,
		"concurrency", cfg.Scheduler.Concurrency,
		"metrics", runMetrics != nil,
	)
	return scheduler.NewService(fanout, warmer, nil, logger), a.Close, nil
}
