// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	ChatID           int64
	MarketplaceToken string
	MarketplaceURL   string
	CheckInterval    time.Duration
	SkillIDs         []int
	SendInterval     time.Duration
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	FiltersFile      string
	MetricsAddr      string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var missing []string
	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "FREELANCEHUNT_TOKEN"} {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required variables: %s", strings.Join(missing, ", "))
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}

	checkSecs, err := positiveInt("CHECK_INTERVAL_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	sendMillis, err := positiveInt("SEND_INTERVAL_MS", 400)
	if err != nil {
		return nil, err
	}

	skills, err := parseIntList[int]("SKILL_IDS")
	if err != nil {
		return nil, err
	}
	allowedUsers, err := parseIntList[int64]("ALLOWED_USERS")
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:           chatID,
		MarketplaceToken: os.Getenv("FREELANCEHUNT_TOKEN"),
		MarketplaceURL:   getenv("FREELANCEHUNT_API_URL", "https://api.freelancehunt.com/v2"),
		CheckInterval:    time.Duration(checkSecs) * time.Second,
		SkillIDs:         skills,
		SendInterval:     time.Duration(sendMillis) * time.Millisecond,
		DatabasePath:     getenv("DATABASE_PATH", ":memory:"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		AllowedUsers:     allowedUsers,
		FiltersFile:      os.Getenv("FILTERS_FILE"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

func parseIntList[T int | int64](key string) ([]T, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	var out []T
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q in %s: %w", s, key, err)
		}
		out = append(out, T(v))
	}
	return out, nil
}
