package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"swellwatch/internal/external"
	"swellwatch/internal/types"
)

// Compile-time assertions that the built-in channels implement Channel.
var (
	_ Channel = (*EmailChannel)(nil)
	_ Channel = (*SMSChannel)(nil)
	_ Channel = (*InAppChannel)(nil)
)

// Receipt is what a channel reports back after a successful delivery.
type Receipt struct {
	ProviderMsgID string
	// InApp is set by the in-app channel. The caller persists it alongside
	// the notification record.
	InApp *types.UserNotification
}

// Channel delivers a composed message for an alert.
type Channel interface {
	Deliver(ctx context.Context, alert *types.Alert, msg Message) (Receipt, error)
}

// EmailChannel sends the message body to the alert's contact address.
type EmailChannel struct {
	sender external.EmailSender
}

func NewEmailChannel(sender external.EmailSender) *EmailChannel {
	return &EmailChannel{sender: sender}
}

func (c *EmailChannel) Deliver(ctx context.Context, alert *types.Alert, msg Message) (Receipt, error) {
	if strings.TrimSpace(alert.ContactInfo) == "" {
		return Receipt{}, types.NewAppError(types.ErrCodeDispatchInvalidRoute, "alert has no email address", nil)
	}
	id, err := c.sender.SendEmail(ctx, alert.ContactInfo, msg.Subject, msg.Body)
	if err != nil {
		return Receipt{}, wrapDispatch(types.ErrCodeDispatchEmail, "email delivery failed", err)
	}
	return Receipt{ProviderMsgID: id}, nil
}

// SMSChannel sends the short form of the message.
type SMSChannel struct {
	sender external.SMSSender
}

func NewSMSChannel(sender external.SMSSender) *SMSChannel {
	return &SMSChannel{sender: sender}
}

func (c *SMSChannel) Deliver(ctx context.Context, alert *types.Alert, msg Message) (Receipt, error) {
	if strings.TrimSpace(alert.ContactInfo) == "" {
		return Receipt{}, types.NewAppError(types.ErrCodeDispatchInvalidRoute, "alert has no phone number", nil)
	}
	body := msg.Short
	if body == "" {
		body = msg.Subject
	}
	id, err := c.sender.SendSMS(ctx, alert.ContactInfo, body)
	if err != nil {
		return Receipt{}, wrapDispatch(types.ErrCodeDispatchSMS, "sms delivery failed", err)
	}
	return Receipt{ProviderMsgID: id}, nil
}

// InAppChannel builds an inbox entry. Nothing leaves the process; the
// entry is written by the dispatcher together with the notification record.
type InAppChannel struct {
	clock types.Clock
}

func NewInAppChannel(clock types.Clock) *InAppChannel {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &InAppChannel{clock: clock}
}

func (c *InAppChannel) Deliver(_ context.Context, alert *types.Alert, msg Message) (Receipt, error) {
	if alert.UserID == "" {
		return Receipt{}, types.NewAppError(types.ErrCodeDispatchInApp, "alert has no owner", nil)
	}
	n := &types.UserNotification{
		ID:        uuid.NewString(),
		UserID:    alert.UserID,
		AlertID:   alert.ID,
		Title:     msg.Subject,
		Body:      msg.Body,
		CreatedAt: c.clock.Now().UTC(),
	}
	return Receipt{ProviderMsgID: n.ID, InApp: n}, nil
}

// Router picks the channel named by the alert's notification method.
type Router struct {
	channels map[types.NotificationMethod]Channel
	timeout  time.Duration
	logger   *slog.Logger
}

// RouterConfig configures a Router. Timeout bounds a single delivery; zero
// means no bound beyond the caller's context.
type RouterConfig struct {
	Email   external.EmailSender
	SMS     external.SMSSender
	Clock   types.Clock
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		channels: make(map[types.NotificationMethod]Channel, 3),
		timeout:  cfg.Timeout,
		logger:   logger,
	}
	if cfg.Email != nil {
		r.channels[types.NotificationMethodEmail] = NewEmailChannel(cfg.Email)
	}
	if cfg.SMS != nil {
		r.channels[types.NotificationMethodSMS] = NewSMSChannel(cfg.SMS)
	}
	r.channels[types.NotificationMethodInApp] = NewInAppChannel(cfg.Clock)
	return r
}

// Register replaces the channel for a method.
func (r *Router) Register(method types.NotificationMethod, ch Channel) {
	r.channels[method] = ch
}

// Send delivers msg through the alert's channel.
func (r *Router) Send(ctx context.Context, alert *types.Alert, msg Message) (Receipt, error) {
	ch, ok := r.channels[alert.NotificationMethod]
	if !ok {
		return Receipt{}, types.NewAppError(types.ErrCodeDispatchUnsupported,
			"no channel for notification method "+string(alert.NotificationMethod), nil).
			WithDetails(map[string]any{"alert_id": alert.ID})
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	receipt, err := ch.Deliver(ctx, alert, msg)
	if err != nil {
		r.logger.WarnContext(ctx, "notification delivery failed",
			"alert_id", alert.ID,
			"method", string(alert.NotificationMethod),
			"to", redactContact(alert),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return Receipt{}, err
	}
	r.logger.InfoContext(ctx, "notification delivered",
		"alert_id", alert.ID,
		"method", string(alert.NotificationMethod),
		"to", redactContact(alert),
		"provider_msg_id", receipt.ProviderMsgID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return receipt, nil
}

func redactContact(alert *types.Alert) string {
	switch alert.NotificationMethod {
	case types.NotificationMethodEmail:
		return external.RedactEmail(alert.ContactInfo)
	case types.NotificationMethodSMS:
		return external.RedactPhone(alert.ContactInfo)
	default:
		return alert.UserID
	}
}

// wrapDispatch keeps provider AppErrors intact and wraps everything else
// under the channel's dispatch code.
func wrapDispatch(code types.ErrorCode, msg string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.NewAppError(code, msg, err)
}
