package types

// CloudWatch metric names and dimensions emitted by the alert pipeline.
const (
	MetricAlertsChecked     = "AlertsChecked"
	MetricAlertsSkipped     = "AlertsSkipped"
	MetricAlertsMatched     = "AlertsMatched"
	MetricNotificationsSent = "NotificationsSent"
	MetricRunErrors         = "RunErrors"
	MetricRunDuration       = "RunDuration"
	MetricUsersEnqueued     = "UsersEnqueued"

	DimJob     = "Job"
	DimTrigger = "Trigger"

	MetricNamespace = "SwellWatch"
)
