package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"swellwatch/internal/types"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioClientConfig holds the configuration for creating a TwilioClient.
type TwilioClientConfig struct {
	AccountSID string
	AuthToken  types.SecretString
	FromNumber string
	BaseURL    string
	Logger     *slog.Logger
}

// TwilioClient implements SMSSender against the Twilio Messages API.
type TwilioClient struct {
	base       *BaseClient
	accountSID string
	authToken  types.SecretString
	fromNumber string
	baseURL    string
	logger     *slog.Logger
}

func NewTwilioClient(httpClient *http.Client, cfg TwilioClientConfig, opts ...BaseClientOption) *TwilioClient {
	opts = append([]BaseClientOption{WithUpstreamCode(types.ErrCodeUpstreamSMSProvider)}, opts...)
	base := NewBaseClient(
		httpClient,
		"twilio",
		RetryPolicy{MaxRetries: 2, MinWait: 500 * time.Millisecond, MaxWait: 5 * time.Second},
		"SwellWatch/1.0",
		opts...,
	)
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = twilioAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TwilioClient{
		base:       base,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}
}

type twilioMessage struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"message"`
}

// SendSMS creates one message and returns its SID.
func (t *TwilioClient) SendSMS(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create Twilio request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken.Unmask())

	resp, err := t.base.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio: %w", err)
	}
	defer resp.Body.Close()

	var msg twilioMessage
	decodeErr := json.NewDecoder(resp.Body).Decode(&msg)

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		if decodeErr != nil {
			return "", types.NewAppError(types.ErrCodeDispatchSMS, "failed to decode Twilio response", decodeErr)
		}
		return msg.SID, nil
	}

	t.logger.WarnContext(ctx, "twilio rejected message",
		"status", resp.StatusCode,
		"message", msg.ErrorMessage,
	)
	return "", types.NewAppError(types.ErrCodeDispatchSMS,
		fmt.Sprintf("twilio returned %d: %s", resp.StatusCode, msg.ErrorMessage), nil)
}
