// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateContest(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	return c.validateEvents()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
		}
	case "none":
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none (got %q)", c.Security.AuthMode)
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateContest() error {
	if c.Contest.TopN < 1 {
		return fmt.Errorf("CONTEST_TOP_N must be at least 1")
	}
	if c.Contest.WinnerMinAverage < 0 || c.Contest.WinnerMinAverage > 5 {
		return fmt.Errorf("CONTEST_WINNER_MIN_AVERAGE must be between 0 and 5")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	if c.Scheduler.ContestTimeout <= 0 {
		return fmt.Errorf("SCHEDULER_CONTEST_TIMEOUT must be positive")
	}
	if c.Scheduler.Location != "" {
		if _, err := time.LoadLocation(c.Scheduler.Location); err != nil {
			return fmt.Errorf("SCHEDULER_LOCATION is not a valid time zone: %w", err)
		}
	}
	return nil
}

func (c *Config) validateNotify() error {
	switch c.Notify.Mode {
	case "log":
	case "smtp":
		if c.Notify.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when NOTIFY_MODE is smtp")
		}
		if c.Notify.SMTPPort < 1 || c.Notify.SMTPPort > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
		}
		if !strings.Contains(c.Notify.FromAddress, "@") {
			return fmt.Errorf("SMTP_FROM must be an email address when NOTIFY_MODE is smtp")
		}
	default:
		return fmt.Errorf("NOTIFY_MODE must be one of: smtp, log (got %q)", c.Notify.Mode)
	}
	if c.Notify.RatePerSecond <= 0 {
		return fmt.Errorf("NOTIFY_RATE_PER_SECOND must be positive")
	}
	if c.Notify.Burst < 1 {
		return fmt.Errorf("NOTIFY_BURST must be at least 1")
	}
	if c.Notify.MaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) validateLedger() error {
	if !c.Ledger.InMemory && c.Ledger.Path == "" {
		return fmt.Errorf("LEDGER_PATH is required unless LEDGER_IN_MEMORY is set")
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Transport {
	case "memory":
		return nil
	case "nats":
		if !c.Events.EmbeddedServer && c.Events.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT is nats without an embedded server")
		}
		return nil
	default:
		return fmt.Errorf("EVENTS_TRANSPORT must be one of: memory, nats (got %q)", c.Events.Transport)
	}
}
