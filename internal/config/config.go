package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	AllowedOrigins []string
	APIToken       string

	// Backend API
	BackendBaseURL string
	TokenEndpoint  string
	RequestTimeout time.Duration

	// Offline snapshot cache
	CacheDialect   string
	CachePath      string
	CacheURL       string
	MigrationsPath string
	SnapshotTTL    time.Duration

	// Game tuning
	CardsPerLevel int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		AllowedOrigins: []string{getEnv("ALLOWED_ORIGIN", "*")},
		APIToken:       getEnv("API_TOKEN", ""),

		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:9000/api/v1"),
		TokenEndpoint:  getEnv("TOKEN_ENDPOINT", "http://localhost:9000/api/v1/auth/refresh"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		CacheDialect:   getEnv("CACHE_DIALECT", "sqlite"),
		CachePath:      getEnv("CACHE_PATH", "./connectdeck.db"),
		CacheURL:       getEnv("CACHE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		SnapshotTTL:    getEnvDuration("SNAPSHOT_TTL", 7*24*time.Hour),

		CardsPerLevel: getEnvInt("CARDS_PER_LEVEL", 5),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration reads a duration environment variable or returns a default
// value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
