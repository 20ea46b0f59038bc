package external

import "context"

// EmailSender delivers a plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (providerMsgID string, err error)
}

// SMSSender delivers a short text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (providerMsgID string, err error)
}
