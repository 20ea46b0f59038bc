package external

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swellwatch/internal/types"
)

func TestSendGridClient_SendEmail(t *testing.T) {
	var got sgMail
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "msg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := NewSendGridClient(server.Client(), SendGridClientConfig{
		APIKey:    "SG.key",
		FromEmail: "alerts@swellwatch.test",
		FromName:  "SwellWatch",
		BaseURL:   server.URL + "/",
	}, WithSleepFunc(noopSleep))

	id, err := c.SendEmail(context.Background(), "surfer@example.com", "Surf alert", "Go now")
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)
	assert.Equal(t, "Bearer SG.key", auth)
	assert.Equal(t, "surfer@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Surf alert", got.Subject)
	assert.Equal(t, "text/plain", got.Content[0].Type)
}

func TestSendGridClient_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"message":"suppressed"}]}`))
	}))
	defer server.Close()

	c := NewSendGridClient(server.Client(), SendGridClientConfig{BaseURL: server.URL}, WithSleepFunc(noopSleep))
	_, err := c.SendEmail(context.Background(), "x@example.com", "s", "b")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeDispatchEmail, appErr.Code)
	assert.Equal(t, types.KindDispatchFailure, appErr.Kind())
}

func TestSendGridClient_ServerErrorUsesEmailUpstreamCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewSendGridClient(server.Client(), SendGridClientConfig{BaseURL: server.URL}, WithSleepFunc(noopSleep))
	_, err := c.SendEmail(context.Background(), "x@example.com", "s", "b")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamEmailProvider, appErr.Code)
}

func TestTwilioClient_SendSMS(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "tok", pass)

		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer server.Close()

	c := NewTwilioClient(server.Client(), TwilioClientConfig{
		AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550000000", BaseURL: server.URL,
	}, WithSleepFunc(noopSleep))

	sid, err := c.SendSMS(context.Background(), "+14155550123", "Surf's up")
	require.NoError(t, err)
	assert.Equal(t, "SM1", sid)
	assert.Equal(t, "+14155550123", form.Get("To"))
	assert.Equal(t, "+15550000000", form.Get("From"))
	assert.Equal(t, "Surf's up", form.Get("Body"))
}

func TestTwilioClient_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer server.Close()

	c := NewTwilioClient(server.Client(), TwilioClientConfig{AccountSID: "AC1", BaseURL: server.URL}, WithSleepFunc(noopSleep))
	_, err := c.SendSMS(context.Background(), "bad", "hi")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeDispatchSMS, appErr.Code)
	assert.Contains(t, appErr.Message, "Invalid 'To' Phone Number")
}

func TestLogSenders(t *testing.T) {
	id, err := NewLogEmailSender(nil).SendEmail(context.Background(), "a@b.c", "s", "b")
	require.NoError(t, err)
	assert.Equal(t, "stub-email-1", id)

	id, err = NewLogSMSSender(nil).SendSMS(context.Background(), "+1", "b")
	require.NoError(t, err)
	assert.Equal(t, "stub-sms-1", id)
}
