package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Required: issuer claim for tokens

	NumKeys      int    // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	DatabaseFile string // Optional: path to SQLite database file (default: ./identity.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	AccessTokenTTL  time.Duration // Access token lifetime (default: 60m)
	RefreshTokenTTL time.Duration // Refresh token / session lifetime (default: 168h)
	ApiKeyTTL       time.Duration // Default api key lifetime when the request omits one (default: 2160h = 90 days)
	MaxApiKeys      int           // Live api keys allowed per user (default: 10)
	ChallengeTTL    time.Duration // WebAuthn ceremony window (default: 5m)

	RPID   string // WebAuthn relying party id (default: localhost)
	RPName string // WebAuthn relying party display name
	Origin string // Expected WebAuthn clientData origin (default: http://localhost:8080)

	Env                   string        // Environment (dev, staging, prod) (default: dev)
	LogLevel              string        // Log level (debug, info, warn, error) (default: info)
	LogFormat             string        // Log format (json, text) (default: json)
	Port                  int           // HTTP server port (default: 8080)
	ShutdownGracePeriod   time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval  time.Duration // Housekeeping interval (default: 1h)
	HousekeepingRetention time.Duration // How long dead rows are kept for forensics (default: 30 days)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       os.Getenv("IDENTITY_ISSUER"),
		DatabaseFile: getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		PepperFile:   getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"),

		AccessTokenTTL:  getEnvDurationOrDefault("IDENTITY_ACCESS_TOKEN_TTL", 60*time.Minute),
		RefreshTokenTTL: getEnvDurationOrDefault("IDENTITY_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		ApiKeyTTL:       getEnvDurationOrDefault("IDENTITY_APIKEY_TTL", 90*24*time.Hour),
		MaxApiKeys:      getEnvIntOrDefault("IDENTITY_MAX_APIKEYS", 10),
		ChallengeTTL:    getEnvDurationOrDefault("IDENTITY_CHALLENGE_TTL", 5*time.Minute),

		RPID:   getEnvOrDefault("IDENTITY_RP_ID", "localhost"),
		RPName: getEnvOrDefault("IDENTITY_RP_NAME", "Passport"),
		Origin: getEnvOrDefault("IDENTITY_ORIGIN", "http://localhost:8080"),

		Env:                   getEnvOrDefault("ENV", "dev"),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:             getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                  getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:   getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval:  getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		HousekeepingRetention: getEnvDurationOrDefault("HOUSEKEEPING_RETENTION", 30*24*time.Hour),
	}

	// Parse number of keys (default: 3)
	if numKeysStr := os.Getenv("IDENTITY_NUM_KEYS"); numKeysStr != "" {
		if numKeys, err := strconv.Atoi(numKeysStr); err == nil {
			cfg.NumKeys = numKeys
		}
		// If parsing fails, NumKeys remains 0 (will use default in KeyManager)
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "passport-identity"
	}

	return cfg
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
