package external

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// LogEmailSender logs instead of sending. Used when no SendGrid key is
// configured, e.g. in local mode.
type LogEmailSender struct {
	logger *slog.Logger
	seq    atomic.Int64
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	s.logger.InfoContext(ctx, "stub: email not sent",
		"to", RedactEmail(to),
		"subject", subject,
		"body_length", len(body),
	)
	return fmt.Sprintf("stub-email-%d", s.seq.Add(1)), nil
}

// LogSMSSender logs instead of sending.
type LogSMSSender struct {
	logger *slog.Logger
	seq    atomic.Int64
}

func NewLogSMSSender(logger *slog.Logger) *LogSMSSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) SendSMS(ctx context.Context, to, body string) (string, error) {
	s.logger.InfoContext(ctx, "stub: sms not sent",
		"to", RedactPhone(to),
		"body_length", len(body),
	)
	return fmt.Sprintf("stub-sms-%d", s.seq.Add(1)), nil
}
