// Package queue sends per-user alert-run messages to the SQS queue consumed
// by the alert worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"swellwatch/internal/config"
	"swellwatch/internal/types"
)

// maxBatch is the SQS SendMessageBatch entry limit.
const maxBatch = 10

// SQSSender abstracts the SQS operations used by the producer.
// *sqs.Client implements it.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// AlertRunProducer enqueues AlertRunMessages.
type AlertRunProducer struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

func NewAlertRunProducer(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *AlertRunProducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertRunProducer{
		client:   client,
		queueURL: awsCfg.AlertRunQueueURL,
		logger:   logger,
	}
}

// NewMessage builds the message for one user and day. The run ID is taken
// from ctx when present.
func NewMessage(ctx context.Context, userID string, day time.Time) types.AlertRunMessage {
	runID := types.GetRunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	return types.AlertRunMessage{
		UserID:  userID,
		Date:    types.Day(day).Format(types.DateLayout),
		RunID:   runID,
		TraceID: uuid.NewString(),
	}
}

// Enqueue sends a single message, used for targeted reruns.
func (p *AlertRunProducer) Enqueue(ctx context.Context, msg types.AlertRunMessage, reason string) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal AlertRunMessage: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attributes(reason),
	})
	if err != nil {
		return fmt.Errorf("queue: failed to send AlertRunMessage to %s: %w", p.queueURL, err)
	}
	p.logger.InfoContext(ctx, "alert run enqueued",
		"queue_url", p.queueURL,
		"user_id", msg.UserID,
		"date", msg.Date,
		"run_id", msg.RunID,
		"reason", reason,
	)
	return nil
}

// EnqueueBatch sends messages in chunks of ten. It returns the number of
// messages accepted by SQS; per-entry failures are reported in the error.
func (p *AlertRunProducer) EnqueueBatch(ctx context.Context, msgs []types.AlertRunMessage, reason string) (int, error) {
	sent := 0
	var failed []string
	for start := 0; start < len(msgs); start += maxBatch {
		end := min(start+maxBatch, len(msgs))
		chunk := msgs[start:end]

		entries := make([]sqsTypes.SendMessageBatchRequestEntry, 0, len(chunk))
		for i, m := range chunk {
			body, err := json.Marshal(m)
			if err != nil {
				return sent, fmt.Errorf("queue: failed to marshal AlertRunMessage: %w", err)
			}
			entries = append(entries, sqsTypes.SendMessageBatchRequestEntry{
				Id:                aws.String(strconv.Itoa(i)),
				MessageBody:       aws.String(string(body)),
				MessageAttributes: attributes(reason),
			})
		}

		out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(p.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return sent, fmt.Errorf("queue: failed to send batch to %s: %w", p.queueURL, err)
		}
		sent += len(out.Successful)
		for _, f := range out.Failed {
			idx, convErr := strconv.Atoi(aws.ToString(f.Id))
			if convErr != nil || idx >= len(chunk) {
				continue
			}
			failed = append(failed, chunk[idx].UserID)
			p.logger.WarnContext(ctx, "alert run not enqueued",
				"user_id", chunk[idx].UserID,
				"code", aws.ToString(f.Code),
				"message", aws.ToString(f.Message),
			)
		}
	}

	p.logger.InfoContext(ctx, "alert runs enqueued",
		"queue_url", p.queueURL,
		"sent", sent,
		"failed", len(failed),
		"reason", reason,
	)
	if len(failed) > 0 {
		return sent, fmt.Errorf("queue: %d messages rejected: %v", len(failed), failed)
	}
	return sent, nil
}

func attributes(reason string) map[string]sqsTypes.MessageAttributeValue {
	if reason == "" {
		return nil
	}
	return map[string]sqsTypes.MessageAttributeValue{
		"reason": {
			DataType:    aws.String("String"),
			StringValue: aws.String(reason),
		},
	}
}

// DecodeMessage parses and checks a message body received by the worker.
func DecodeMessage(body string) (types.AlertRunMessage, time.Time, error) {
	var msg types.AlertRunMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return msg, time.Time{}, fmt.Errorf("queue: invalid message body: %w", err)
	}
	if msg.UserID == "" {
		return msg, time.Time{}, fmt.Errorf("queue: message has no user_id")
	}
	day, err := time.Parse(types.DateLayout, msg.Date)
	if err != nil {
		return msg, time.Time{}, fmt.Errorf("queue: invalid date %q: %w", msg.Date, err)
	}
	return msg, day, nil
}
