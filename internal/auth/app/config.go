package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer   string // iss claim on every token
	Audience string // aud claim on every token
	Secret   string // Required: HS256 signing secret

	AccessTTL  time.Duration // Access token lifetime (default: 10m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 672h)

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)

	RedisAddr     string // Optional: host:port; empty falls back to the in-process cache
	RedisPassword string
	RedisDB       int

	RPID      string // WebAuthn relying party id (default: localhost)
	RPName    string // WebAuthn relying party display name
	RPOrigin  string // WebAuthn allowed origin (default: http://localhost:8080)
	AAGUIDMap string // Optional: path to the authenticator catalog JSON

	GoogleClientID     string // Optional: empty disables the Google routes
	GoogleClientSecret string
	GoogleRedirectURL  string

	FrontendURL  string // Base URL the oauth callback redirects into
	CookieSecure bool   // Secure flag on every cookie (default: true)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:   getEnvOrDefault("AUTH_ISSUER", "with"),
		Audience: getEnvOrDefault("AUTH_AUDIENCE", "crush"),
		Secret:   os.Getenv("AUTH_JWT_SECRET"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", 10*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", 672*time.Hour),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),

		RedisAddr:     os.Getenv("AUTH_REDIS_ADDR"),
		RedisPassword: os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("AUTH_REDIS_DB", 0),

		RPID:      getEnvOrDefault("AUTH_RP_ID", "localhost"),
		RPName:    getEnvOrDefault("AUTH_RP_NAME", "With"),
		RPOrigin:  getEnvOrDefault("AUTH_RP_ORIGIN", "http://localhost:8080"),
		AAGUIDMap: os.Getenv("AUTH_AAGUID_MAP"),

		GoogleClientID:     os.Getenv("AUTH_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("AUTH_GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("AUTH_GOOGLE_REDIRECT_URL"),

		FrontendURL:  getEnvOrDefault("AUTH_FRONTEND_URL", "http://localhost:8080"),
		CookieSecure: getEnvBoolOrDefault("AUTH_COOKIE_SECURE", true),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.Secret == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.GoogleClientID != "" && cfg.GoogleRedirectURL == "" {
		return Config{}, errors.New("AUTH_GOOGLE_REDIRECT_URL is required when Google sign-in is configured")
	}

	return cfg, nil
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
