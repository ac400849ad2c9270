package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	DatabaseURL string

	ListenAddr string

	// RetentionDays is the age (in days) past which usage records and
	// custom metrics are deleted by the retention worker.
	RetentionDays int

	// AnalyticsTimeZone is the IANA zone name used when decomposing
	// record timestamps into hour-of-day buckets. Pinned (default UTC)
	// so results never depend on the host's local zone.
	AnalyticsTimeZone string

	// BootstrapTenant and BootstrapAPIKey, when both set, seed an API
	// key used for self-reporting this instance's own request traffic.
	// The key value must be of the form "<key id>.<secret>".
	BootstrapTenant string
	BootstrapAPIKey string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		DatabaseURL:       os.Getenv("APP_DATABASE_URL"),
		ListenAddr:        getenv("APP_LISTEN_ADDR", ":8080"),
		RetentionDays:     30,
		AnalyticsTimeZone: getenv("APP_ANALYTICS_TZ", "UTC"),
		BootstrapTenant:   getenv("APP_BOOTSTRAP_TENANT", ""),
		BootstrapAPIKey:   getenv("APP_BOOTSTRAP_API_KEY", ""),
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
