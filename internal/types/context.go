package types

import (
	"context"
	"time"
)

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	userIDKey contextKey = "user_id"
)

// WithRunID stores the batch run identifier in the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// GetRunID retrieves the batch run identifier, or "".
func GetRunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithUserID stores the user whose alerts are being processed.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID retrieves the user ID, or "".
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T. Used by the CLI to replay a past day.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
