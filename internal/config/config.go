// Package config defines the process configuration for the SwellWatch
// binaries. Configuration is loaded once at startup from the environment
// (with an optional .env file underneath it) and is immutable thereafter.
// A missing required value or an invalid format fails startup.
package config

import (
	"time"

	"swellwatch/internal/types"
)

// SecretString is an alias for types.SecretString so secrets never print.
type SecretString = types.SecretString

// Config is the top-level configuration. Components receive only the
// subsection they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"swellwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Database      DatabaseConfig
	Forecast      ForecastConfig
	Redis         RedisConfig
	Email         EmailConfig
	SMS           SMSConfig
	AWS           AWSConfig
	Scheduler     SchedulerConfig
	Observability ObservabilityConfig

	// ChannelTimeout bounds a single notification send.
	ChannelTimeout time.Duration `envconfig:"CHANNEL_TIMEOUT" default:"10s" validate:"gt=0"`

	// Injected via ldflags, not the environment.
	Build BuildInfo `ignored:"true"`
}

// DatabaseConfig holds the Postgres connection and pool tuning.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10" validate:"gte=1"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"1" validate:"gte=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// ForecastConfig configures the upstream forecast provider. An empty URL
// disables the provider; only stored and cached snapshots are used.
type ForecastConfig struct {
	APIURL  string        `envconfig:"FORECAST_API_URL" validate:"omitempty,url"`
	APIKey  SecretString  `envconfig:"FORECAST_API_KEY"`
	Timeout time.Duration `envconfig:"FORECAST_TIMEOUT" default:"5s" validate:"gt=0"`
}

// RedisConfig configures the shared forecast cache. Empty Addr disables it.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password SecretString  `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"FORECAST_CACHE_TTL" default:"6h"`
}

// EmailConfig holds SendGrid credentials. Without a key emails are logged
// instead of sent.
type EmailConfig struct {
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"alerts@swellwatch.app" validate:"email"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"SwellWatch"`
	BaseURL        string       `envconfig:"SENDGRID_BASE_URL" validate:"omitempty,url"`
}

// SMSConfig holds Twilio credentials. Without an account SID messages are
// logged instead of sent.
type SMSConfig struct {
	AccountSID string       `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  SecretString `envconfig:"TWILIO_AUTH_TOKEN"`
	FromNumber string       `envconfig:"TWILIO_FROM_NUMBER" validate:"omitempty,e164"`
	BaseURL    string       `envconfig:"TWILIO_BASE_URL" validate:"omitempty,url"`
}

// AWSConfig holds AWS resource identifiers.
type AWSConfig struct {
	Region           string `envconfig:"AWS_REGION" default:"us-east-1"`
	AlertRunQueueURL string `envconfig:"SQS_ALERT_RUNS" validate:"omitempty,url"`

	// LocalStack support. Empty in production.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// Scheduler modes.
const (
	ModeEnqueue = "enqueue"
	ModeInline  = "inline"
)

// SchedulerConfig controls the daily fan-out.
type SchedulerConfig struct {
	Cron        string `envconfig:"SCHEDULE_CRON" default:"0 5 * * *"`
	Mode        string `envconfig:"SCHEDULER_MODE" default:"enqueue" validate:"oneof=enqueue inline"`
	Concurrency int    `envconfig:"SCHEDULER_CONCURRENCY" default:"4" validate:"gte=1,lte=64"`
	PageSize    int    `envconfig:"SCHEDULER_PAGE_SIZE" default:"500" validate:"gte=1"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"SwellWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrInconsistent indicates individually valid values that conflict.
	ErrInconsistent ConfigErrorType = "INCONSISTENT"
)
