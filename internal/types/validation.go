package types

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func alertValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateAlert checks the structural rules of an alert and its payload
// before evaluation. The returned error is a validation AppError.
func ValidateAlert(a *Alert) error {
	if a == nil {
		return NewAppError(ErrCodeValidationAlert, "alert is nil", nil)
	}
	v := alertValidator()
	if err := v.Struct(a); err != nil {
		return NewAppError(ErrCodeValidationAlert, describeValidation(err), err)
	}
	if a.Payload.Type() != a.Type {
		return NewAppError(ErrCodeValidationPayload,
			fmt.Sprintf("payload type %s does not match alert type %s", a.Payload.Type(), a.Type), nil)
	}
	switch p := a.Payload.(type) {
	case VariablesPayload:
		if err := v.Struct(p); err != nil {
			return NewAppError(ErrCodeValidationPayload, describeValidation(err), err)
		}
	case RatingPayload:
		if err := v.Struct(p); err != nil {
			return NewAppError(ErrCodeValidationPayload, describeValidation(err), err)
		}
	}
	if err := validateContact(a); err != nil {
		return err
	}
	return nil
}

func validateContact(a *Alert) error {
	v := alertValidator()
	switch a.NotificationMethod {
	case NotificationMethodEmail:
		if err := v.Var(a.ContactInfo, "required,email"); err != nil {
			return NewAppError(ErrCodeDispatchInvalidRoute, "email alert needs a valid address", err)
		}
	case NotificationMethodSMS:
		if err := v.Var(a.ContactInfo, "required,e164"); err != nil {
			return NewAppError(ErrCodeDispatchInvalidRoute, "sms alert needs an E.164 phone number", err)
		}
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
