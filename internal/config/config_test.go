package config

import (
	"fmt"
	"testing"

	"swellwatch/internal/types"
)

func TestSecretStringAlias(t *testing.T) {
	secret := SecretString("sg-key")

	if got := fmt.Sprintf("%v", secret); got != "***REDACTED***" {
		t.Errorf("fmt.Sprintf(%%v) = %q, want redacted", got)
	}
	if got := secret.Unmask(); got != "sg-key" {
		t.Errorf("Unmask() = %q, want %q", got, "sg-key")
	}

	var typesSecret types.SecretString = "x"
	var configSecret SecretString = typesSecret
	if configSecret != typesSecret {
		t.Error("config.SecretString and types.SecretString should be the same type")
	}
}

func validConfig() *Config {
	return &Config{
		Environment:    "prod",
		LogLevel:       "info",
		ChannelTimeout: 10e9,
		Database:       DatabaseConfig{URL: "postgres://u:p@db:5432/swell", MaxConns: 10, MinConns: 1},
		Forecast:       ForecastConfig{Timeout: 5e9},
		Email:          EmailConfig{FromAddress: "alerts@swellwatch.app"},
		AWS:            AWSConfig{AlertRunQueueURL: "https://sqs.us-east-1.amazonaws.com/123/alert-runs"},
		Scheduler:      SchedulerConfig{Mode: ModeEnqueue, Concurrency: 4, PageSize: 100},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr ConfigErrorType
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad environment", mutate: func(c *Config) { c.Environment = "qa" }, wantErr: ErrValidation},
		{name: "missing database", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: ErrValidation},
		{name: "bad sms sender", mutate: func(c *Config) {
			c.SMS = SMSConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "555-0100"}
		}, wantErr: ErrValidation},
		{name: "enqueue without queue", mutate: func(c *Config) { c.AWS.AlertRunQueueURL = "" }, wantErr: ErrInconsistent},
		{name: "enqueue without queue in local", mutate: func(c *Config) {
			c.Environment = "local"
			c.AWS.AlertRunQueueURL = ""
		}},
		{name: "twilio without token", mutate: func(c *Config) {
			c.SMS = SMSConfig{AccountSID: "AC1", FromNumber: "+15555550100"}
		}, wantErr: ErrInconsistent},
		{name: "pool bounds", mutate: func(c *Config) { c.Database.MinConns = 20 }, wantErr: ErrInconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Type != tt.wantErr {
				t.Errorf("Type = %s, want %s", cfgErr.Type, tt.wantErr)
			}
		})
	}
}
