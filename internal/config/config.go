// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (lowest first).
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Contest   ContestConfig   `koanf:"contest"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Notify    NotifyConfig    `koanf:"notify"`
	Ledger    LedgerConfig    `koanf:"ledger"`
	Events    EventsConfig    `koanf:"events"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// SecurityConfig holds token validation, CORS and rate limiting settings.
type SecurityConfig struct {
	// AuthMode is "jwt" or "none". In "none" mode the caller identity comes
	// from the X-User-ID and X-User-Role headers (development only).
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// ContestConfig holds winner selection parameters.
type ContestConfig struct {
	TopN             int     `koanf:"top_n"`
	WinnerMinAverage float64 `koanf:"winner_min_average"`
}

// SchedulerConfig controls the contest closer.
type SchedulerConfig struct {
	Enabled        bool          `koanf:"enabled"`
	RunOnStartup   bool          `koanf:"run_on_startup"`
	ContestTimeout time.Duration `koanf:"contest_timeout"`
	// Location is an IANA zone name used for the daily midnight boundary.
	// Empty means the process local zone.
	Location string `koanf:"location"`
}

// NotifyConfig controls participant email delivery.
type NotifyConfig struct {
	// Mode is "smtp" or "log".
	Mode          string        `koanf:"mode"`
	SMTPHost      string        `koanf:"smtp_host"`
	SMTPPort      int           `koanf:"smtp_port"`
	SMTPUser      string        `koanf:"smtp_user"`
	SMTPPassword  string        `koanf:"smtp_password"`
	UseTLS        bool          `koanf:"use_tls"`
	FromAddress   string        `koanf:"from_address"`
	FromName      string        `koanf:"from_name"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Burst         int           `koanf:"burst"`
	MaxAttempts   int           `koanf:"max_attempts"`

	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// LedgerConfig holds the notification ledger (Badger) settings.
type LedgerConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// EventsConfig selects the domain event transport.
type EventsConfig struct {
	// Transport is "memory" or "nats".
	Transport      string `koanf:"transport"`
	NATSURL        string `koanf:"nats_url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	ServerPort     int    `koanf:"server_port"`
	StoreDir       string `koanf:"store_dir"`
	TopicPrefix    string `koanf:"topic_prefix"`
}

// LoggingConfig mirrors logging.Config for the loaded configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads the layered configuration and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
