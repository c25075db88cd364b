// Package config loads environment-driven settings for the risk core.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the risk core.
type Config struct {
	Port string

	// Database
	DBPath string

	// Market hours
	MarketHoursEnabled bool
	CalendarPath       string

	// State keeper
	StateIdleTTL    time.Duration
	RolloverEnabled bool

	// Alerts
	AlertCooldown time.Duration

	// Order forwarding
	ForwardOrders bool

	// Auth
	JWTSecret   string
	AdminAPIKey string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the service still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "./data/risk.db"),
		MarketHoursEnabled: getEnv("MARKET_HOURS_ENABLED", "false") == "true",
		CalendarPath:       getEnv("CALENDAR_PATH", ""),
		StateIdleTTL:       getEnvDuration("STATE_IDLE_TTL", 24*time.Hour),
		RolloverEnabled:    getEnv("DAILY_ROLLOVER_ENABLED", "true") == "true",
		AlertCooldown:      getEnvDuration("ALERT_COOLDOWN", 30*time.Second),
		ForwardOrders:      getEnv("FORWARD_ORDERS", "false") == "true",
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret"),
		AdminAPIKey:        getEnv("ADMIN_API_KEY", ""),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are treated as seconds.
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
