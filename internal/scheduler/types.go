// Package scheduler drives the daily alert run: it lists users with active
// alerts and either enqueues one message per user or runs them inline, and
// it precomputes daily scores for every region.
package scheduler

import "time"

// TaskType identifies the job a scheduler invocation runs.
type TaskType string

const (
	TaskDailyAlerts TaskType = "daily_alerts"
	TaskWarmScores  TaskType = "warm_scores"
)

// JobPayload is the JSON event sent by EventBridge to the scheduler Lambda.
//
//	{"task": "daily_alerts", "reference_time": "2026-03-14T05:00:00Z"}
type JobPayload struct {
	Task TaskType `json:"task"`
	// ReferenceTime overrides "now" for manual runs and backfills.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

// Day resolves the payload's reference day, falling back to now.
func (p JobPayload) Day(now time.Time) time.Time {
	if p.ReferenceTime != nil {
		return p.ReferenceTime.UTC()
	}
	return now.UTC()
}
