package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is returned by LoadConfig to aid debugging.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads .env (if present), reads the environment and validates
// the result. Existing environment variables take priority over .env.
func LoadConfig() (*Config, error) {
	return LoadConfigFiles()
}

// LoadConfigFiles is LoadConfig with explicit dotenv files. Missing files
// are ignored.
func LoadConfigFiles(files ...string) (*Config, error) {
	time.Local = time.UTC

	if err := loadDotenv(files); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to read dotenv file", Err: err}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}
	cfg.Build = NewBuildInfo()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Validate applies struct rules and cross-field checks.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	var problems []string
	if cfg.Scheduler.Mode == ModeEnqueue && cfg.AWS.AlertRunQueueURL == "" && cfg.Environment != "local" {
		problems = append(problems, "SQS_ALERT_RUNS is required when SCHEDULER_MODE=enqueue")
	}
	if cfg.SMS.AccountSID != "" && (cfg.SMS.AuthToken.IsZero() || cfg.SMS.FromNumber == "") {
		problems = append(problems, "TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required with TWILIO_ACCOUNT_SID")
	}
	if cfg.Database.MinConns > cfg.Database.MaxConns {
		problems = append(problems, "DB_MIN_CONNS exceeds DB_MAX_CONNS")
	}
	if len(problems) > 0 {
		return &ConfigError{Type: ErrInconsistent, Message: strings.Join(problems, "; ")}
	}
	return nil
}
