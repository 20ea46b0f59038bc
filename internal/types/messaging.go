package types

// AlertRunMessage is the SQS body that asks the alert worker to process one
// user's alerts for one day.
type AlertRunMessage struct {
	UserID  string `json:"user_id"`
	Date    string `json:"date"` // YYYY-MM-DD
	RunID   string `json:"run_id"`
	TraceID string `json:"trace_id,omitempty"`
}

// DateLayout is the calendar-day format used on the wire.
const DateLayout = "2006-01-02"
