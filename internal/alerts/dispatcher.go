package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"swellwatch/internal/db"
	"swellwatch/internal/notifications"
	"swellwatch/internal/types"
)

// DefaultLocationName is used when an alert has no resolvable location.
const DefaultLocationName = "your surf spot"

// NotificationGate answers the per-day idempotency question.
type NotificationGate interface {
	ExistsForDay(ctx context.Context, alertID string, day time.Time) (bool, error)
}

// NotificationWriter persists dispatch outcomes inside a transaction.
type NotificationWriter interface {
	Create(ctx context.Context, n *types.AlertNotification) (bool, error)
	Complete(ctx context.Context, n *types.AlertNotification) error
	CreateUserNotification(ctx context.Context, un *types.UserNotification) error
}

// CheckMarker inserts the day's check if none exists.
type CheckMarker interface {
	MarkProcessed(ctx context.Context, c *types.AlertCheck) error
}

// Transactor runs fn in a database transaction. *db.TxManager implements it.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, q db.DBTX) error) error
}

// TxWriters are the repositories bound to one transaction.
type TxWriters struct {
	Notifications NotificationWriter
	Checks        CheckMarker
}

// WritersFunc binds repositories to a transaction handle.
type WritersFunc func(q db.DBTX) TxWriters

// PostgresWriters binds the pgx repositories.
func PostgresWriters(q db.DBTX) TxWriters {
	return TxWriters{
		Notifications: db.NewNotificationRepository(q),
		Checks:        db.NewCheckRepository(q),
	}
}

// Sender delivers a composed message. *notifications.Router implements it.
type Sender interface {
	Send(ctx context.Context, alert *types.Alert, msg notifications.Message) (notifications.Receipt, error)
}

// NameResolver returns a display name for the alert's location, or "".
type NameResolver func(ctx context.Context, alert *types.Alert, result *types.MatchResult) string

// LocationLookup loads a location profile. *db.LocationRepository implements it.
type LocationLookup interface {
	GetByID(ctx context.Context, id string) (*types.LocationProfile, error)
}

// LocationResolvers returns the default resolver chain: the alert's own
// location name, then the location the match was judged on (a location-less
// rating alert matches on its best spot), then the log location name.
func LocationResolvers(lookup LocationLookup, logger *slog.Logger) []NameResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return []NameResolver{
		func(_ context.Context, a *types.Alert, _ *types.MatchResult) string { return a.LocationName },
		func(ctx context.Context, _ *types.Alert, r *types.MatchResult) string {
			if lookup == nil || r == nil || r.LocationID == "" {
				return ""
			}
			loc, err := lookup.GetByID(ctx, r.LocationID)
			if err != nil {
				logger.WarnContext(ctx, "matched location lookup failed",
					"location_id", r.LocationID,
					"error", err,
				)
				return ""
			}
			if loc == nil {
				return ""
			}
			return loc.Name
		},
		func(_ context.Context, a *types.Alert, _ *types.MatchResult) string { return a.LogLocationName },
	}
}

// ResolveLocationName walks resolvers in priority order.
func ResolveLocationName(ctx context.Context, alert *types.Alert, result *types.MatchResult, resolvers []NameResolver) string {
	for _, r := range resolvers {
		if name := r(ctx, alert, result); name != "" {
			return name
		}
	}
	return DefaultLocationName
}

// Dispatcher sends the notification for a matched alert at most once per
// alert per day.
type Dispatcher struct {
	gate      NotificationGate
	tx        Transactor
	writers   WritersFunc
	sender    Sender
	resolvers []NameResolver
	clock     types.Clock
	logger    *slog.Logger
}

// DispatcherConfig wires a Dispatcher. Writers defaults to PostgresWriters
// and Resolvers to LocationResolvers(Locations).
type DispatcherConfig struct {
	Gate      NotificationGate
	Tx        Transactor
	Writers   WritersFunc
	Sender    Sender
	Locations LocationLookup
	Resolvers []NameResolver
	Clock     types.Clock
	Logger    *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		gate:      cfg.Gate,
		tx:        cfg.Tx,
		writers:   cfg.Writers,
		sender:    cfg.Sender,
		resolvers: cfg.Resolvers,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
	if d.writers == nil {
		d.writers = PostgresWriters
	}
	if d.clock == nil {
		d.clock = types.RealClock{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.resolvers == nil {
		d.resolvers = LocationResolvers(cfg.Locations, d.logger)
	}
	return d
}

// Dispatch returns true when the alert is handled for today, either by this
// call or an earlier one. The (alert, day) record is claimed as pending before
// the channel send, so concurrent dispatchers send at most once. A failed send
// is still recorded so it is not retried the same day; it returns false with
// the send error.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *types.Alert, result *types.MatchResult, today time.Time) (bool, error) {
	day := types.Day(today)

	exists, err := d.gate.ExistsForDay(ctx, alert.ID, day)
	if err != nil {
		return false, err
	}
	if exists {
		d.logger.InfoContext(ctx, "notification already sent today",
			"alert_id", alert.ID,
			"date", day.Format(types.DateLayout),
		)
		return true, nil
	}

	name := ResolveLocationName(ctx, alert, result, d.resolvers)
	msg, err := notifications.Compose(alert, result, name, day)
	if err != nil {
		return false, err
	}

	record := &types.AlertNotification{
		ID:        uuid.NewString(),
		AlertID:   alert.ID,
		UserID:    alert.UserID,
		SentOn:    day,
		Method:    alert.NotificationMethod,
		Status:    types.NotificationPending,
		Message:   msg.Body,
		CreatedAt: d.clock.Now().UTC(),
	}

	var created bool
	err = d.tx.RunInTx(ctx, func(ctx context.Context, q db.DBTX) error {
		var err error
		created, err = d.writers(q).Notifications.Create(ctx, record)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("claim notification for alert %s: %w", alert.ID, err)
	}
	if !created {
		d.logger.InfoContext(ctx, "concurrent dispatch already recorded",
			"alert_id", alert.ID,
			"date", day.Format(types.DateLayout),
		)
		return true, nil
	}

	receipt, sendErr := d.sender.Send(ctx, alert, msg)
	if sendErr != nil {
		record.Status = types.NotificationFailed
		record.FailureReason = sendErr.Error()
	} else {
		record.Status = types.NotificationSent
		record.Success = true
		if receipt.InApp != nil {
			record.UserNotificationID = receipt.InApp.ID
		}
	}
	now := d.clock.Now().UTC()
	record.CompletedAt = now

	err = d.tx.RunInTx(ctx, func(ctx context.Context, q db.DBTX) error {
		w := d.writers(q)
		if receipt.InApp != nil {
			if err := w.Notifications.CreateUserNotification(ctx, receipt.InApp); err != nil {
				return err
			}
		}
		if err := w.Notifications.Complete(ctx, record); err != nil {
			return err
		}
		return w.Checks.MarkProcessed(ctx, &types.AlertCheck{
			AlertID:   alert.ID,
			CheckedOn: day,
			Success:   true,
			Details:   result.Explanation,
			CreatedAt: now,
		})
	})
	if err != nil {
		// The claim stays pending and blocks a second send today.
		return false, fmt.Errorf("record notification for alert %s: %w", alert.ID, err)
	}

	if sendErr != nil {
		d.logger.ErrorContext(ctx, "alert notification failed",
			"alert_id", alert.ID,
			"user_id", alert.UserID,
			"method", string(alert.NotificationMethod),
			"error", sendErr,
		)
		return false, sendErr
	}
	d.logger.InfoContext(ctx, "alert notification sent",
		"alert_id", alert.ID,
		"user_id", alert.UserID,
		"method", string(alert.NotificationMethod),
		"location", name,
	)
	return true, nil
}
