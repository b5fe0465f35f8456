package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kavineksith/user-management-api/pkg/jwtx"
)

type Config struct {
	JWTSecret         string        // Required: HS256 signing secret
	JWTExpiresIn      time.Duration // Optional: access token lifetime (default: 24h)
	JWTRefreshExpires time.Duration // Optional: refresh token lifetime (default: 168h)

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./users.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	CORSAllowedOrigins  []string      // Optional: comma-separated origin allow-list
}

func LoadConfig() Config {
	cfg := Config{
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTExpiresIn:        getEnvDurationOrDefault("JWT_EXPIRES_IN", jwtx.DefaultAccessTokenTTL),
		JWTRefreshExpires:   getEnvDurationOrDefault("JWT_REFRESH_EXPIRES_IN", jwtx.DefaultRefreshTokenTTL),
		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "users.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	return cfg
}

// Validate checks the settings that have no sensible default.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accept Go durations ("24h", "90m") or plain hours for convenience.
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if hours, err := strconv.Atoi(value); err == nil {
		return time.Duration(hours) * time.Hour
	}

	return defaultValue
}
