package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swellwatch/internal/config"
	"swellwatch/internal/external"
)

func TestNewLogger_Levels(t *testing.T) {
	ctx := context.Background()
	assert.True(t, NewLogger("debug").Enabled(ctx, slog.LevelDebug))
	assert.False(t, NewLogger("info").Enabled(ctx, slog.LevelDebug))
	assert.False(t, NewLogger("WARN").Enabled(ctx, slog.LevelInfo))
	assert.True(t, NewLogger("error").Enabled(ctx, slog.LevelError))
	assert.True(t, NewLogger("bogus").Enabled(ctx, slog.LevelInfo))
}

func TestSenders_FallBackToLogStubs(t *testing.T) {
	cfg := &config.Config{}
	_, ok := emailSender(cfg, slog.Default()).(*external.LogEmailSender)
	assert.True(t, ok)
	_, ok = smsSender(cfg, slog.Default()).(*external.LogSMSSender)
	assert.True(t, ok)

	cfg.Email.SendGridAPIKey = "SG.key"
	cfg.SMS = config.SMSConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+15555550100"}
	_, ok = emailSender(cfg, slog.Default()).(*external.SendGridClient)
	assert.True(t, ok)
	_, ok = smsSender(cfg, slog.Default()).(*external.TwilioClient)
	assert.True(t, ok)
}

func TestNewPool_BadURL(t *testing.T) {
	_, err := NewPool(context.Background(), config.DatabaseConfig{URL: "::not a url::", MaxConns: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse DATABASE_URL")
}
