// Package config loads and validates environment variables at startup.
// Fail-fast: if a variable is missing or malformed, the process exits with an error.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all runtime configuration for the tracker service.
type Config struct {
	Port        string
	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string // optional; empty keeps sessions, dismissals and events in-process

	SessionTTL        time.Duration
	ReminderSweepSpec string
	Location          *time.Location // decides what "today" is
	HeuristicsFile    string

	GeminiAPIKey string
	GeminiModel  string

	NotionToken string
	NotionDBID  string

	CORSAllowedOrigin string

	LogLevel  zerolog.Level
	LogPretty bool
}

// NotionEnabled reports whether the Notion mirror is configured.
func (c *Config) NotionEnabled() bool { return c.NotionToken != "" && c.NotionDBID != "" }

// Load reads .env (if any) and the environment, and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:              get("TRACKER_PORT", "8082"),
		StoreDriver:       strings.ToLower(get("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:       get("DATABASE_URL", ""),
		SQLitePath:        get("SQLITE_PATH", "tracker.sqlite"),
		RedisURL:          get("REDIS_URL", ""),
		ReminderSweepSpec: get("REMINDER_SWEEP_SPEC", "@every 1h"),
		HeuristicsFile:    get("HEURISTICS_FILE", ""),
		GeminiAPIKey:      get("GEMINI_API_KEY", ""),
		GeminiModel:       get("GEMINI_MODEL", "gemini-1.5-flash"),
		NotionToken:       get("NOTION_TOKEN", ""),
		NotionDBID:        get("NOTION_DB_ID", ""),
		CORSAllowedOrigin: get("CORS_ALLOWED_ORIGIN", "*"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.StoreDriver)
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("TRACKER_PORT must be a number, got %q", cfg.Port)
	}

	ttl := 72
	if s := get("SESSION_TTL_HOURS", ""); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SESSION_TTL_HOURS must be a positive integer, got %q", s)
		}
		ttl = v
	}
	cfg.SessionTTL = time.Duration(ttl) * time.Hour

	if _, err := cron.ParseStandard(cfg.ReminderSweepSpec); err != nil {
		return nil, fmt.Errorf("REMINDER_SWEEP_SPEC %q: %w", cfg.ReminderSweepSpec, err)
	}

	tz := get("TRACKER_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TRACKER_TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	level, err := zerolog.ParseLevel(strings.ToLower(get("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if s := get("LOG_PRETTY", ""); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("LOG_PRETTY must be a boolean, got %q", s)
		}
		cfg.LogPretty = v
	}

	if (cfg.NotionToken == "") != (cfg.NotionDBID == "") {
		return nil, fmt.Errorf("NOTION_TOKEN and NOTION_DB_ID must be set together")
	}

	return cfg, nil
}
