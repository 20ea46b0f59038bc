package types

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunIDAndUserID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRunID(ctx))

	ctx = WithRunID(ctx, "run-1")
	ctx = WithUserID(ctx, "user-1")
	assert.Equal(t, "run-1", GetRunID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	in := time.Date(2026, 3, 1, 20, 30, 0, 0, loc) // 2026-03-02 04:30 UTC
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestRunStats_Add(t *testing.T) {
	s := RunStats{AlertsChecked: 1, Errors: 1}
	s.Add(RunStats{AlertsChecked: 2, NotificationsSent: 1, Skipped: 3, Matched: 1})
	assert.Equal(t, RunStats{AlertsChecked: 3, NotificationsSent: 1, Errors: 1, Skipped: 3, Matched: 1}, s)
}
