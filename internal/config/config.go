// Package config loads and validates application configuration.
package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Synthesis SynthesisConfig `mapstructure:"synthesis" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"          validate:"required,min=32"`
	TokenLifetimeMins int    `mapstructure:"token_lifetime_mins" validate:"required,gt=0"`
}

// SynthesisConfig contains the settings for the remote media-synthesis
// integration: credentials, retry and polling knobs, and download limits.
type SynthesisConfig struct {
	// GeminiAPIKey authenticates both operation calls and artifact
	// downloads (appended to the artifact URI as a query parameter).
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`

	// MaxAttempts is the retry executor's total attempt budget.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gte=1,lte=20"`

	// RetryBaseDelaySeconds is the backoff unit for rate-limited retries.
	RetryBaseDelaySeconds int `mapstructure:"retry_base_delay_seconds" validate:"required,gte=1"`

	// PollIntervalSeconds is the fixed delay between operation polls.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"required,gte=1"`

	// DownloadTimeoutSeconds bounds a single artifact fetch.
	DownloadTimeoutSeconds int `mapstructure:"download_timeout_seconds" validate:"required,gte=1"`
}

// PollInterval returns the poll interval as a duration.
func (c SynthesisConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RetryBaseDelay returns the backoff unit as a duration.
func (c SynthesisConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelaySeconds) * time.Second
}

// DownloadTimeout returns the artifact fetch bound as a duration.
func (c SynthesisConfig) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

// TokenLifetime returns the access token lifetime as a duration.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMins) * time.Minute
}
