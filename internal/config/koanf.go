// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cityofrecipes/config.yaml",
	"/etc/cityofrecipes/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/cityofrecipes.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			TokenTTL:        24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Contest: ContestConfig{
			TopN:             3,
			WinnerMinAverage: 4.0,
		},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			RunOnStartup:   true,
			ContestTimeout: 2 * time.Minute,
		},
		Notify: NotifyConfig{
			Mode:               "log",
			SMTPPort:           587,
			UseTLS:             true,
			FromName:           "City of Recipes",
			Timeout:            30 * time.Second,
			RatePerSecond:      5,
			Burst:              5,
			MaxAttempts:        5,
			BreakerMaxRequests: 3,
			BreakerInterval:    time.Minute,
			BreakerTimeout:     2 * time.Minute,
		},
		Ledger: LedgerConfig{
			Path: "/data/ledger",
		},
		Events: EventsConfig{
			Transport:   "memory",
			NATSURL:     "nats://127.0.0.1:4222",
			ServerPort:  4222,
			StoreDir:    "/data/nats",
			TopicPrefix: "cityofrecipes",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads defaults, then the optional config file, then
// environment variables, and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			continue
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_host":          "server.host",
	"http_port":          "server.port",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"contest_top_n":              "contest.top_n",
	"contest_winner_min_average": "contest.winner_min_average",

	"scheduler_enabled":         "scheduler.enabled",
	"scheduler_run_on_startup":  "scheduler.run_on_startup",
	"scheduler_contest_timeout": "scheduler.contest_timeout",
	"scheduler_location":        "scheduler.location",

	"notify_mode":             "notify.mode",
	"smtp_host":               "notify.smtp_host",
	"smtp_port":               "notify.smtp_port",
	"smtp_user":               "notify.smtp_user",
	"smtp_password":           "notify.smtp_password",
	"smtp_use_tls":            "notify.use_tls",
	"smtp_from":               "notify.from_address",
	"smtp_from_name":          "notify.from_name",
	"smtp_timeout":            "notify.timeout",
	"notify_rate_per_second":  "notify.rate_per_second",
	"notify_burst":            "notify.burst",
	"notify_max_attempts":     "notify.max_attempts",
	"notify_breaker_requests": "notify.breaker_max_requests",
	"notify_breaker_interval": "notify.breaker_interval",
	"notify_breaker_timeout":  "notify.breaker_timeout",

	"ledger_path":      "ledger.path",
	"ledger_in_memory": "ledger.in_memory",

	"events_transport":    "events.transport",
	"nats_url":            "events.nats_url",
	"nats_embedded":       "events.embedded_server",
	"nats_server_port":    "events.server_port",
	"nats_store_dir":      "events.store_dir",
	"events_topic_prefix": "events.topic_prefix",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps HTTP_PORT to server.port and so on.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
