package db

import (
	"context"
	"fmt"

	"swellwatch/internal/types"
)

// AlertRepository reads alert definitions. Alerts are owned by the user
// facing application; this side only reads them.
type AlertRepository struct {
	db DBTX
}

func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

// ListActiveByUser returns the user's active alerts with the display names
// of the linked location and of the location of the referenced log entry.
func (r *AlertRepository) ListActiveByUser(ctx context.Context, userID string) ([]types.Alert, error) {
	rows, err := r.db.Query(ctx,
		`SELECT a.id, a.user_id, a.name, a.alert_type, a.region_id,
		        a.location_id, a.log_entry_id, a.active, a.notification_method,
		        a.contact_info, a.payload, a.created_at,
		        l.name, ll.name
		 FROM alerts a
		 LEFT JOIN locations l    ON l.id = a.location_id
		 LEFT JOIN log_entries le ON le.id = a.log_entry_id
		 LEFT JOIN locations ll   ON ll.id = le.location_id
		 WHERE a.user_id = $1 AND a.active
		 ORDER BY a.region_id, a.id`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list active alerts", err)
	}
	defer rows.Close()

	var out []types.Alert
	for rows.Next() {
		var (
			a                             types.Alert
			alertType, method             string
			locationID, logEntryID        *string
			locationName, logLocationName *string
			payload                       []byte
		)
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Name,
			&alertType,
			&a.RegionID,
			&locationID,
			&logEntryID,
			&a.Active,
			&method,
			&a.ContactInfo,
			&payload,
			&a.CreatedAt,
			&locationName,
			&logLocationName,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert", err)
		}
		a.Type = types.AlertType(alertType)
		a.NotificationMethod = types.NotificationMethod(method)
		a.LocationID = derefString(locationID)
		a.LogEntryID = derefString(logEntryID)
		a.LocationName = derefString(locationName)
		a.LogLocationName = derefString(logLocationName)

		p, err := types.DecodeAlertPayload(a.Type, payload)
		if err != nil {
			return nil, fmt.Errorf("alert %s: %w", a.ID, err)
		}
		a.Payload = p
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate alerts", err)
	}
	return out, nil
}

// ListUsersWithActiveAlerts pages through distinct user IDs that own at
// least one active alert, starting strictly after cursor.
func (r *AlertRepository) ListUsersWithActiveAlerts(ctx context.Context, cursor string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT user_id FROM alerts
		 WHERE active AND user_id > $1
		 ORDER BY user_id
		 LIMIT $2`,
		cursor, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alert users", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert user", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate alert users", err)
	}
	return out, nil
}
