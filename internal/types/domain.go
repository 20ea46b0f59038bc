package types

import (
	"math"
	"time"

	"swellwatch/internal/direction"
)

// Range is a closed interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// DistanceOutside is 0 when v is in range, otherwise the distance to the
// nearest bound.
func (r Range) DistanceOutside(v float64) float64 {
	switch {
	case v < r.Min:
		return r.Min - v
	case v > r.Max:
		return v - r.Max
	default:
		return 0
	}
}

// Valid reports whether both bounds are finite and ordered.
func (r Range) Valid() bool {
	return !math.IsNaN(r.Min) && !math.IsNaN(r.Max) &&
		!math.IsInf(r.Min, 0) && !math.IsInf(r.Max, 0) &&
		r.Min <= r.Max
}

// LocationProfile is the static physical description of a surf spot.
type LocationProfile struct {
	ID                    string               `json:"id"`
	RegionID              string               `json:"region_id"`
	Name                  string               `json:"name"`
	OptimalWindDirections []direction.Cardinal `json:"optimal_wind_directions"`
	Sheltered             bool                 `json:"sheltered"`
	OptimalSwellDirection Range                `json:"optimal_swell_direction"`
	SwellSize             Range                `json:"swell_size"`
	IdealSwellPeriod      Range                `json:"ideal_swell_period"`
}

// ForecastSnapshot is one day's conditions for a region.
type ForecastSnapshot struct {
	RegionID          string    `json:"region_id"`
	Date              time.Time `json:"date"`
	WindSpeedKnots    float64   `json:"wind_speed_knots"`
	WindDirectionDeg  float64   `json:"wind_direction_deg"`
	SwellHeightM      float64   `json:"swell_height_m"`
	SwellPeriodS      float64   `json:"swell_period_s"`
	SwellDirectionDeg float64   `json:"swell_direction_deg"`
	Source            string    `json:"source,omitempty"`
	FetchedAt         time.Time `json:"fetched_at,omitempty"`
}

// Value reads the field backing p. The second result is false for unknown
// properties.
func (f *ForecastSnapshot) Value(p Property) (float64, bool) {
	switch p {
	case PropertyWindSpeed:
		return f.WindSpeedKnots, true
	case PropertyWindDirection:
		return f.WindDirectionDeg, true
	case PropertySwellHeight:
		return f.SwellHeightM, true
	case PropertySwellPeriod:
		return f.SwellPeriodS, true
	case PropertySwellDirection:
		return f.SwellDirectionDeg, true
	default:
		return 0, false
	}
}

// DailyScore is the derived 0..5 score for one location on one day.
// Computed is false when the score engine faulted and Score was defaulted.
type DailyScore struct {
	LocationID string    `json:"location_id"`
	RegionID   string    `json:"region_id"`
	Date       time.Time `json:"date"`
	Score      int       `json:"score"`
	StarRating int       `json:"star_rating"`
	Computed   bool      `json:"computed"`
	ComputedAt time.Time `json:"computed_at"`
}

// Alert is a standing user subscription. Payload carries the variant
// specific configuration; Type mirrors Payload.Type() for storage.
type Alert struct {
	ID                 string             `json:"id" validate:"required"`
	UserID             string             `json:"user_id" validate:"required"`
	Name               string             `json:"name" validate:"max=200"`
	Type               AlertType          `json:"type" validate:"required,oneof=variables rating"`
	RegionID           string             `json:"region_id" validate:"required"`
	LocationID         string             `json:"location_id,omitempty"`
	LogEntryID         string             `json:"log_entry_id,omitempty"`
	Active             bool               `json:"active"`
	NotificationMethod NotificationMethod `json:"notification_method" validate:"required,oneof=email sms in_app"`
	ContactInfo        string             `json:"contact_info"`
	Payload            AlertPayload       `json:"-" validate:"required"`
	CreatedAt          time.Time          `json:"created_at"`

	// Display names joined in by the alert repository.
	LocationName    string `json:"location_name,omitempty"`
	LogLocationName string `json:"log_location_name,omitempty"`
}

// AlertCheck records that an alert was evaluated on a day.
type AlertCheck struct {
	AlertID   string    `json:"alert_id"`
	CheckedOn time.Time `json:"checked_on"`
	Success   bool      `json:"success"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertNotification records a fired notification. At most one exists per
// alert per day.
type AlertNotification struct {
	ID                 string             `json:"id"`
	AlertID            string             `json:"alert_id"`
	UserID             string             `json:"user_id"`
	SentOn             time.Time          `json:"sent_on"`
	Method             NotificationMethod `json:"method"`
	Status             NotificationStatus `json:"status"`
	Success            bool               `json:"success"`
	Message            string             `json:"message"`
	FailureReason      string             `json:"failure_reason,omitempty"`
	UserNotificationID string             `json:"user_notification_id,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	CompletedAt        time.Time          `json:"completed_at,omitempty"`
}

// UserNotification is an in-app inbox entry.
type UserNotification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AlertID   string    `json:"alert_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// PropertyComparison is the evidence for one property of a Variables alert.
type PropertyComparison struct {
	Property       Property `json:"property"`
	ForecastValue  float64  `json:"forecast_value"`
	ReferenceValue float64  `json:"reference_value"`
	Difference     float64  `json:"difference"`
	Range          float64  `json:"range"`
	Matched        bool     `json:"matched"`
}

// MatchResult is the verdict of evaluating one alert.
type MatchResult struct {
	Matched            bool                 `json:"matched"`
	Explanation        string               `json:"explanation"`
	ComparedProperties []PropertyComparison `json:"compared_properties,omitempty"`
	StarRating         *int                 `json:"star_rating,omitempty"`
	LocationID         string               `json:"location_id,omitempty"`
	// MissingInput marks a non-match caused by absent forecast or score data.
	MissingInput bool `json:"missing_input,omitempty"`
}

// RunStats are the counters returned by one batch run. AlertsChecked counts
// alerts that reached evaluation; Skipped counts those already checked today.
type RunStats struct {
	AlertsChecked     int `json:"alerts_checked"`
	NotificationsSent int `json:"notifications_sent"`
	Errors            int `json:"errors"`
	Skipped           int `json:"skipped"`
	Matched           int `json:"matched"`
}

// Add accumulates other into s.
func (s *RunStats) Add(other RunStats) {
	s.AlertsChecked += other.AlertsChecked
	s.NotificationsSent += other.NotificationsSent
	s.Errors += other.Errors
	s.Skipped += other.Skipped
	s.Matched += other.Matched
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
