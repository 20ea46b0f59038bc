package types

// AlertType discriminates the two alert payload variants.
type AlertType string

const (
	AlertTypeVariables AlertType = "variables"
	AlertTypeRating    AlertType = "rating"
)

// NotificationMethod names the channel an alert fires through.
type NotificationMethod string

const (
	NotificationMethodEmail NotificationMethod = "email"
	NotificationMethodSMS   NotificationMethod = "sms"
	NotificationMethodInApp NotificationMethod = "in_app"
)

// NotificationStatus tracks a notification record from claim to outcome.
type NotificationStatus string

const (
	// NotificationPending marks a claimed (alert, day) whose send has not
	// finished. A row left pending is never retried the same day.
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Property is a forecast field a Variables alert can compare.
type Property string

const (
	PropertyWindSpeed      Property = "wind_speed"
	PropertyWindDirection  Property = "wind_direction"
	PropertySwellHeight    Property = "swell_height"
	PropertySwellPeriod    Property = "swell_period"
	PropertySwellDirection Property = "swell_direction"
)

// IsDirectional reports whether differences on p must be measured on the
// compass circle.
func (p Property) IsDirectional() bool {
	return p == PropertyWindDirection || p == PropertySwellDirection
}

// Unit is the display unit of the property.
func (p Property) Unit() string {
	switch p {
	case PropertyWindSpeed:
		return "kt"
	case PropertyWindDirection, PropertySwellDirection:
		return "°"
	case PropertySwellHeight:
		return "m"
	case PropertySwellPeriod:
		return "s"
	default:
		return ""
	}
}

// Label is the human-readable name used in notification text.
func (p Property) Label() string {
	switch p {
	case PropertyWindSpeed:
		return "Wind speed"
	case PropertyWindDirection:
		return "Wind direction"
	case PropertySwellHeight:
		return "Swell height"
	case PropertySwellPeriod:
		return "Swell period"
	case PropertySwellDirection:
		return "Swell direction"
	default:
		return string(p)
	}
}

// AlertState is the terminal state of one alert within a batch run.
type AlertState string

const (
	AlertStatePending    AlertState = "pending"
	AlertStateSkipped    AlertState = "skipped"
	AlertStateNotMatched AlertState = "not_matched"
	AlertStateDispatched AlertState = "dispatched"
	AlertStateErrored    AlertState = "errored"
)
