// Package config handles application configuration from environment variables
// and the optional YAML filter file.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIBaseURL is the public party-finder API.
const DefaultAPIBaseURL = "http://xivpf.littlenightmare.top/api"

// Config holds the application configuration.
type Config struct {
	APIBaseURL          string
	CheckInterval       time.Duration
	ExpireThreshold     time.Duration
	MaxPages            int
	APIRateLimit        float64
	SystemNotifications bool

	DatabasePath string
	JobTablePath string
	FiltersFile  string
	LogLevel     string

	TelegramBotToken string
	TelegramChatID   int64
	AllowedUsers     []int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:   envOrDefault("API_BASE_URL", DefaultAPIBaseURL),
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/pfwatch.db"),
		JobTablePath: envOrDefault("JOB_TABLE_PATH", "data/ClassJob.csv"),
		FiltersFile:  os.Getenv("FILTERS_FILE"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	var err error
	if cfg.CheckInterval, err = durationEnv("CHECK_INTERVAL", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.ExpireThreshold, err = durationEnv("EXPIRE_THRESHOLD", 300*time.Second); err != nil {
		return nil, err
	}

	if raw := os.Getenv("MAX_PAGES"); raw != "" {
		cfg.MaxPages, err = strconv.Atoi(raw)
		if err != nil || cfg.MaxPages < 0 {
			return nil, fmt.Errorf("invalid MAX_PAGES %q", raw)
		}
	}

	cfg.APIRateLimit = 5
	if raw := os.Getenv("API_RATE_LIMIT"); raw != "" {
		cfg.APIRateLimit, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid API_RATE_LIMIT %q: %w", raw, err)
		}
	}

	cfg.SystemNotifications = true
	if raw := os.Getenv("SYSTEM_NOTIFICATIONS"); raw != "" {
		cfg.SystemNotifications, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SYSTEM_NOTIFICATIONS %q: %w", raw, err)
		}
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		cfg.TelegramChatID, err = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// TelegramEnabled reports whether the Telegram bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	return slices.Contains(c.AllowedUsers, userID)
}

// ParseDuration accepts whole seconds ("90") or a Go duration ("1m30s").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("duration %q must be positive", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
