// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the process-wide eventdesk configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve on hosts without zoneinfo

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/eventdesk/internal/scheduler"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"EVENTDESK_DB_PATH" envDefault:"./data/eventdesk.db"`
	SessionSecret string `env:"EVENTDESK_SESSION_SECRET,required"`
	ServerHost    string `env:"EVENTDESK_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"EVENTDESK_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"EVENTDESK_ENV" envDefault:"development"`
	LogLevel      string `env:"EVENTDESK_LOG_LEVEL" envDefault:"info"`
	UploadsDir    string `env:"EVENTDESK_UPLOADS_DIR" envDefault:"./uploads"`

	// DefaultTimezone seeds the "timezone" layout setting of every event.
	DefaultTimezone string `env:"EVENTDESK_DEFAULT_TIMEZONE" envDefault:"UTC"`

	// LogoSweepSchedule is the cron schedule of the orphaned logo sweep.
	// "off" disables the sweep.
	LogoSweepSchedule string `env:"EVENTDESK_LOGO_SWEEP_SCHEDULE" envDefault:"@hourly"`

	// Cache configuration
	RedisURL     string `env:"EVENTDESK_REDIS_URL"`                           // Optional Redis URL for a shared settings cache
	CachePrefix  string `env:"EVENTDESK_CACHE_PREFIX" envDefault:"eventdesk:"` // Redis key prefix
	CacheTTL     int    `env:"EVENTDESK_CACHE_TTL" envDefault:"3600"`          // Default cache TTL in seconds
	CacheMaxSize int    `env:"EVENTDESK_CACHE_MAX_SIZE" envDefault:"10000"`    // Max memory cache entries

	// TrustedOrigins lists host:port origins allowed to post cross-origin.
	TrustedOrigins []string `env:"EVENTDESK_TRUSTED_ORIGINS" envSeparator:","`

	// Login throttling
	LoginRateLimit float64 `env:"EVENTDESK_LOGIN_RATE_LIMIT" envDefault:"0.5"` // Attempts per second per client
	LoginBurst     int     `env:"EVENTDESK_LOGIN_BURST" envDefault:"5"`

	// Seeding configuration. Empty admin fields use the built-in defaults.
	DoSeed        bool   `env:"EVENTDESK_DO_SEED" envDefault:"true"`
	AdminEmail    string `env:"EVENTDESK_ADMIN_EMAIL"`
	AdminPassword string `env:"EVENTDESK_ADMIN_PASSWORD"`
	SeedSample    bool   `env:"EVENTDESK_SEED_SAMPLE_EVENT" envDefault:"false"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheDuration returns the configured cache TTL.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// LogoSweepEnabled reports whether the orphaned logo sweep is scheduled.
func (c Config) LogoSweepEnabled() bool {
	return c.LogoSweepSchedule != "" && !strings.EqualFold(c.LogoSweepSchedule, "off")
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("EVENTDESK_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("EVENTDESK_SESSION_SECRET is a known default value and must not be used")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("EVENTDESK_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("EVENTDESK_DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}

	if !cfg.IsDevelopment() && cfg.DoSeed && cfg.AdminPassword == "" {
		slog.Warn("EVENTDESK_ADMIN_PASSWORD is not set; a missing admin account is created with the default password")
	}

	if cfg.LogoSweepEnabled() {
		if err := scheduler.ValidateSchedule(cfg.LogoSweepSchedule); err != nil {
			return nil, fmt.Errorf("EVENTDESK_LOGO_SWEEP_SCHEDULE: %w", err)
		}
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes.
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
