package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_Kind(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want Kind
	}{
		{ErrCodeMissingForecast, KindMissingInput},
		{ErrCodeMissingDailyScore, KindMissingInput},
		{ErrCodeComputationProfile, KindComputationFault},
		{ErrCodeDispatchEmail, KindDispatchFailure},
		{ErrCodeUpstreamSMSProvider, KindDispatchFailure},
		{ErrCodeInternalDB, KindOrchestrationFault},
		{ErrCodeValidationAlert, KindOrchestrationFault},
		{ErrorCode("something_new"), KindOrchestrationFault},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Kind())
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	base := errors.New("connection reset")
	err := NewAppError(ErrCodeDispatchEmail, "send failed", base)

	assert.Equal(t, "dispatch_email_failed: send failed: connection reset", err.Error())
	assert.ErrorIs(t, err, base)

	plain := NewAppError(ErrCodeMissingForecast, "no forecast", nil)
	assert.Equal(t, "missing_input_forecast: no forecast", plain.Error())
}

func TestAppError_WithDetailsDoesNotMutate(t *testing.T) {
	orig := &AppError{Code: ErrCodeInternalDB, Message: "x", Details: map[string]any{"a": 1}}
	cp := orig.WithDetails(map[string]any{"b": 2})

	assert.Len(t, orig.Details, 1)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, cp.Details)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("evaluate: %w", NewAppError(ErrCodeMissingDailyScore, "none", nil))
	assert.Equal(t, KindMissingInput, KindOf(wrapped))
	assert.True(t, IsMissingInput(wrapped))

	assert.Equal(t, KindOrchestrationFault, KindOf(errors.New("boom")))
	assert.False(t, IsMissingInput(nil))
}
