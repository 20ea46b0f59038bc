// Package main is the entrypoint for the Alert Worker Lambda function.
//
// The worker consumes AlertRunMessages from the alert-run SQS queue. Each
// message asks for one user's alerts to be evaluated for one day. Runs are
// idempotent per (alert, day), so redelivered messages only skip work.
//
// Cold start:
//  1. Load configuration and build the logger.
//  2. Connect to Postgres (and Redis when configured).
//  3. Wire the forecast resolver, score store, dispatcher and runner.
//  4. Start the Lambda runtime, or read one SQS event from stdin when
//     APP_ENV=local.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"swellwatch/internal/alerts"
	"swellwatch/internal/app"
	"swellwatch/internal/config"
	"swellwatch/internal/queue"
	"swellwatch/internal/scheduler"
	"swellwatch/internal/types"
)

// UserRunner is satisfied by *alerts.Runner.
type UserRunner interface {
	RunAlertsForUser(ctx context.Context, userID string, date time.Time) (types.RunStats, error)
}

// Handler processes SQS batches of alert-run messages.
type Handler struct {
	runner UserRunner
	logger *slog.Logger
}

// Handle runs every record independently. Records whose run could not load
// the user's alerts are reported in BatchItemFailures so SQS redelivers only
// those; malformed bodies are acknowledged and dropped.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "failed to process alert run",
				"message_id", record.MessageId,
				"error", err,
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}
	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	msg, day, err := queue.DecodeMessage(record.Body)
	if err != nil {
		// Permanent: retrying cannot fix the body.
		h.logger.ErrorContext(ctx, "dropping malformed alert run message",
			"message_id", record.MessageId,
			"error", err,
		)
		return nil
	}

	if msg.RunID != "" {
		ctx = types.WithRunID(ctx, msg.RunID)
	}
	stats, err := h.runner.RunAlertsForUser(ctx, msg.UserID, day)
	if err != nil {
		return fmt.Errorf("run alerts for %s: %w", msg.UserID, err)
	}
	h.logger.InfoContext(ctx, "alert run processed",
		"message_id", record.MessageId,
		"user_id", msg.UserID,
		"date", msg.Date,
		"trace_id", msg.TraceID,
		"alerts_checked", stats.AlertsChecked,
		"notifications_sent", stats.NotificationsSent,
		"errors", stats.Errors,
	)
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogLevel).With("service", "alert-worker", "version", cfg.Build.Version)
	slog.SetDefault(logger)
	logger.Info("Alert Worker initializing (cold start)", "build", cfg.Build)

	ctx := context.Background()

	var metrics alerts.RunMetrics
	if cfg.Observability.EnableMetrics {
		clients, err := app.NewAWSClients(ctx, cfg.AWS)
		if err != nil {
			logger.Error("Failed to load AWS SDK config", "error", err)
			os.Exit(1)
		}
		metrics = scheduler.NewCloudWatchRunMetrics(clients.CloudWatch, cfg.Observability.MetricNamespace, "alert-worker", logger)
	}

	a, err := app.New(ctx, cfg, logger, app.Options{Metrics: metrics})
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	handler := &Handler{runner: a.Runner, logger: logger}

	// Local mode: read one JSON SQS event from stdin.
	// Usage: echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/alert-worker
	if cfg.Environment == "local" {
		if err := runLocal(ctx, handler, os.Stdin, os.Stderr, logger); err != nil {
			logger.Error("Local run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(handler.Handle)
}

func runLocal(ctx context.Context, h *Handler, in io.Reader, out io.Writer, logger *slog.Logger) error {
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no input received on stdin")
	}
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parse stdin as SQS event: %w", err)
	}
	response, err := h.Handle(ctx, sqsEvent)
	if err != nil {
		return err
	}
	if len(response.BatchItemFailures) > 0 {
		respJSON, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(out, string(respJSON))
	}
	logger.InfoContext(ctx, "Handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
