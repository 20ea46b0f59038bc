package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"swellwatch/internal/types"
)

const sendGridAPIBase = "https://api.sendgrid.com"

// SendGridClientConfig holds the configuration for creating a SendGridClient.
type SendGridClientConfig struct {
	APIKey    types.SecretString
	FromEmail string
	FromName  string
	BaseURL   string // tests point this at httptest
	Logger    *slog.Logger
}

// SendGridClient implements EmailSender against the SendGrid v3 Mail Send API.
type SendGridClient struct {
	base      *BaseClient
	apiKey    types.SecretString
	fromEmail string
	fromName  string
	baseURL   string
	logger    *slog.Logger
}

func NewSendGridClient(httpClient *http.Client, cfg SendGridClientConfig, opts ...BaseClientOption) *SendGridClient {
	opts = append([]BaseClientOption{WithUpstreamCode(types.ErrCodeUpstreamEmailProvider)}, opts...)
	base := NewBaseClient(
		httpClient,
		"sendgrid",
		RetryPolicy{MaxRetries: 2, MinWait: 500 * time.Millisecond, MaxWait: 5 * time.Second},
		"SwellWatch/1.0",
		opts...,
	)
	return newSendGridClientWithBase(base, cfg)
}

func newSendGridClientWithBase(base *BaseClient, cfg SendGridClientConfig) *SendGridClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sendGridAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridClient{
		base:      base,
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// SendEmail posts one message and returns SendGrid's X-Message-Id.
//
// 429 and 5xx are retried by BaseClient; any other non-202 status is a
// dispatch failure.
func (s *SendGridClient) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	payload, err := json.Marshal(sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: to}}}},
		From:             sgAddress{Email: s.fromEmail, Name: s.fromName},
		Subject:          subject,
		Content:          []sgContent{{Type: "text/plain", Value: body}},
	})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal SendGrid mail payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create SendGrid request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey.Unmask())

	resp, err := s.base.Do(req)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return resp.Header.Get("X-Message-Id"), nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	s.logger.WarnContext(ctx, "sendgrid rejected message",
		"status", resp.StatusCode,
		"body", string(respBody),
	)
	return "", types.NewAppError(types.ErrCodeDispatchEmail,
		fmt.Sprintf("sendgrid returned %d", resp.StatusCode), nil).
		WithDetails(map[string]any{"status": resp.StatusCode})
}
