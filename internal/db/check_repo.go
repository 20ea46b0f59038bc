package db

import (
	"context"
	"time"

	"swellwatch/internal/types"
)

// CheckRepository records per-day alert evaluations.
type CheckRepository struct {
	db DBTX
}

func NewCheckRepository(db DBTX) *CheckRepository {
	return &CheckRepository{db: db}
}

// ExistsForDay reports whether the alert was already checked on day.
func (r *CheckRepository) ExistsForDay(ctx context.Context, alertID string, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alert_checks WHERE alert_id = $1 AND checked_on = $2)`,
		alertID, dateOnly(day),
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to look up alert check", err)
	}
	return exists, nil
}

// Record upserts the day's check so the latest evaluation wins.
func (r *CheckRepository) Record(ctx context.Context, c *types.AlertCheck, comparisons []types.PropertyComparison) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alert_checks (alert_id, checked_on, success, details, comparisons, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		 ON CONFLICT (alert_id, checked_on) DO UPDATE SET
		   success     = EXCLUDED.success,
		   details     = EXCLUDED.details,
		   comparisons = EXCLUDED.comparisons`,
		c.AlertID,
		dateOnly(c.CheckedOn),
		c.Success,
		c.Details,
		types.ComparisonList(comparisons),
		nilIfZeroTime(c.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record alert check", err)
	}
	return nil
}

// MarkProcessed inserts the day's check only if none exists yet.
func (r *CheckRepository) MarkProcessed(ctx context.Context, c *types.AlertCheck) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alert_checks (alert_id, checked_on, success, details, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		 ON CONFLICT (alert_id, checked_on) DO NOTHING`,
		c.AlertID,
		dateOnly(c.CheckedOn),
		c.Success,
		c.Details,
		nilIfZeroTime(c.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark alert processed", err)
	}
	return nil
}
