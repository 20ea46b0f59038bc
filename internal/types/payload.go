package types

import (
	"encoding/json"
	"fmt"
)

// AlertPayload is the variant-specific part of an Alert. The two
// implementations are VariablesPayload and RatingPayload.
type AlertPayload interface {
	Type() AlertType
	isAlertPayload()
}

// PropertyTolerance configures one compared property. Range is the maximum
// absolute difference from the reference forecast that still matches.
type PropertyTolerance struct {
	Property     Property `json:"property" validate:"required,oneof=wind_speed wind_direction swell_height swell_period swell_direction"`
	OptimalValue float64  `json:"optimal_value"`
	Range        float64  `json:"range" validate:"gte=0"`
}

// VariablesPayload matches when every configured property of the day's
// forecast is within tolerance of the reference forecast.
type VariablesPayload struct {
	Properties        []PropertyTolerance `json:"properties" validate:"required,min=1,max=5,dive"`
	ReferenceForecast *ForecastSnapshot   `json:"reference_forecast,omitempty"`
}

// RatingPayload matches when the location's star rating reaches MinStarRating.
type RatingPayload struct {
	MinStarRating int `json:"min_star_rating" validate:"min=1,max=5"`
}

func (VariablesPayload) Type() AlertType { return AlertTypeVariables }
func (RatingPayload) Type() AlertType    { return AlertTypeRating }

func (VariablesPayload) isAlertPayload() {}
func (RatingPayload) isAlertPayload()    {}

// DecodeAlertPayload parses the stored JSON payload for the given type.
func DecodeAlertPayload(t AlertType, raw []byte) (AlertPayload, error) {
	switch t {
	case AlertTypeVariables:
		var p VariablesPayload
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("decode variables payload: %w", err)
			}
		}
		return p, nil
	case AlertTypeRating:
		var p RatingPayload
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("decode rating payload: %w", err)
			}
		}
		return p, nil
	default:
		return nil, NewAppError(ErrCodeValidationPayload, fmt.Sprintf("unknown alert type %q", t), nil)
	}
}

// EncodeAlertPayload is the inverse of DecodeAlertPayload.
func EncodeAlertPayload(p AlertPayload) (AlertType, []byte, error) {
	if p == nil {
		return "", nil, NewAppError(ErrCodeValidationPayload, "alert payload is nil", nil)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s payload: %w", p.Type(), err)
	}
	return p.Type(), raw, nil
}

// alertJSON is the wire shape of an Alert with its payload inlined.
type alertJSON struct {
	alertAlias
	Payload json.RawMessage `json:"payload"`
}

type alertAlias Alert

// MarshalJSON emits the payload next to the type discriminator.
func (a Alert) MarshalJSON() ([]byte, error) {
	out := alertJSON{alertAlias: alertAlias(a)}
	if a.Payload != nil {
		t, raw, err := EncodeAlertPayload(a.Payload)
		if err != nil {
			return nil, err
		}
		out.Type = t
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the payload variant selected by "type".
func (a *Alert) UnmarshalJSON(data []byte) error {
	var in alertJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = Alert(in.alertAlias)
	if in.Type == "" {
		return nil
	}
	p, err := DecodeAlertPayload(in.Type, in.Payload)
	if err != nil {
		return err
	}
	a.Payload = p
	return nil
}
