package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"swellwatch/internal/types"
)

// NotificationRepository provides data access for alert_notifications and
// the in-app user_notifications inbox.
type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ExistsForDay is the idempotency gate: true when the alert already has a
// notification record for day, regardless of its success.
func (r *NotificationRepository) ExistsForDay(ctx context.Context, alertID string, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alert_notifications WHERE alert_id = $1 AND sent_on = $2)`,
		alertID, dateOnly(day),
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to look up alert notification", err)
	}
	return exists, nil
}

// Create claims (alert_id, sent_on) by inserting the day's record. It
// returns false without an error when another writer already holds the
// claim, in which case the caller must not send.
func (r *NotificationRepository) Create(ctx context.Context, n *types.AlertNotification) (bool, error) {
	status := n.Status
	if status == "" {
		status = types.NotificationPending
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO alert_notifications
		 (id, alert_id, user_id, sent_on, method, status, success, message,
		  failure_reason, user_notification_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()))
		 ON CONFLICT (alert_id, sent_on) DO NOTHING
		 RETURNING created_at`,
		n.ID,
		n.AlertID,
		n.UserID,
		dateOnly(n.SentOn),
		string(n.Method),
		string(status),
		n.Success,
		n.Message,
		nilIfEmpty(n.FailureReason),
		nilIfEmpty(n.UserNotificationID),
		nilIfZeroTime(n.CreatedAt),
	).Scan(&n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return false, nil
		}
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to create alert notification", err)
	}
	n.Status = status
	return true, nil
}

// Complete records the outcome of a claimed notification. Only a pending
// row is updated, so a finished record is never overwritten.
func (r *NotificationRepository) Complete(ctx context.Context, n *types.AlertNotification) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_notifications
		 SET status = $2, success = $3, failure_reason = $4,
		     user_notification_id = $5, completed_at = COALESCE($6, NOW())
		 WHERE id = $1 AND status = 'pending'`,
		n.ID,
		string(n.Status),
		n.Success,
		nilIfEmpty(n.FailureReason),
		nilIfEmpty(n.UserNotificationID),
		nilIfZeroTime(n.CompletedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to complete alert notification", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeInternalDB,
			fmt.Sprintf("alert notification %s is not pending", n.ID), nil)
	}
	return nil
}

// CreateUserNotification adds an entry to the user's in-app inbox.
func (r *NotificationRepository) CreateUserNotification(ctx context.Context, un *types.UserNotification) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO user_notifications (id, user_id, alert_id, title, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		 RETURNING created_at`,
		un.ID,
		un.UserID,
		nilIfEmpty(un.AlertID),
		un.Title,
		un.Body,
		nilIfZeroTime(un.CreatedAt),
	).Scan(&un.CreatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create user notification", err)
	}
	return nil
}

// ListUserNotifications returns the newest inbox entries first.
func (r *NotificationRepository) ListUserNotifications(ctx context.Context, userID string, limit int) ([]types.UserNotification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, alert_id, title, body, read, created_at
		 FROM user_notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list user notifications", err)
	}
	defer rows.Close()

	var out []types.UserNotification
	for rows.Next() {
		var (
			un      types.UserNotification
			alertID *string
		)
		if err := rows.Scan(&un.ID, &un.UserID, &alertID, &un.Title, &un.Body, &un.Read, &un.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan user notification", err)
		}
		un.AlertID = derefString(alertID)
		out = append(out, un)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate user notifications", err)
	}
	return out, nil
}
