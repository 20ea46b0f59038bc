package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error codes. The prefix decides the Kind.
const (
	// Missing input: expected data was absent. Not counted as a run error.
	ErrCodeMissingForecast          ErrorCode = "missing_input_forecast"
	ErrCodeMissingReferenceForecast ErrorCode = "missing_input_reference_forecast"
	ErrCodeMissingDailyScore        ErrorCode = "missing_input_daily_score"
	ErrCodeMissingLocation          ErrorCode = "missing_input_location"

	// Computation faults: bad reference data reached the score engine.
	ErrCodeComputationProfile  ErrorCode = "computation_malformed_profile"
	ErrCodeComputationForecast ErrorCode = "computation_malformed_forecast"

	// Dispatch failures: a channel sender rejected or could not deliver.
	ErrCodeDispatchEmail        ErrorCode = "dispatch_email_failed"
	ErrCodeDispatchSMS          ErrorCode = "dispatch_sms_failed"
	ErrCodeDispatchInApp        ErrorCode = "dispatch_in_app_failed"
	ErrCodeDispatchUnsupported  ErrorCode = "dispatch_unsupported_method"
	ErrCodeDispatchInvalidRoute ErrorCode = "dispatch_invalid_contact"

	// Upstream
	ErrCodeUpstreamForecast      ErrorCode = "upstream_forecast_unavailable"
	ErrCodeUpstreamEmailProvider ErrorCode = "upstream_email_provider_unavailable"
	ErrCodeUpstreamSMSProvider   ErrorCode = "upstream_sms_provider_unavailable"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited   ErrorCode = "upstream_rate_limited"

	// Validation
	ErrCodeValidationAlert   ErrorCode = "validation_invalid_alert"
	ErrCodeValidationPayload ErrorCode = "validation_invalid_payload"

	// Internal
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeInternalPanic      ErrorCode = "internal_panic"
)

// Kind is the coarse failure class used by the batch runner to decide
// whether a failure counts against the run.
type Kind string

const (
	KindMissingInput       Kind = "missing_input"
	KindComputationFault   Kind = "computation_fault"
	KindDispatchFailure    Kind = "dispatch_failure"
	KindOrchestrationFault Kind = "orchestration_fault"
)

// Kind maps an ErrorCode to its failure class.
func (c ErrorCode) Kind() Kind {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "missing_input_"):
		return KindMissingInput
	case strings.HasPrefix(s, "computation_"):
		return KindComputationFault
	case strings.HasPrefix(s, "dispatch_"), strings.HasPrefix(s, "upstream_"):
		return KindDispatchFailure
	default:
		return KindOrchestrationFault
	}
}

// AppError is the standard application error type.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind returns the failure class of the error's code.
func (e *AppError) Kind() Kind {
	return e.Code.Kind()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf classifies any error. Errors that are not AppErrors anywhere in
// their chain are orchestration faults.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}
	return KindOrchestrationFault
}

// IsMissingInput reports whether err is a missing-input condition.
func IsMissingInput(err error) bool {
	return err != nil && KindOf(err) == KindMissingInput
}
