package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort        string
	GinMode           string
	LogLevel          string
	LogFormat         string
	RedisURL          string
	SessionSecret     string
	SessionCookieName string
	SessionTTL        time.Duration
	CookieSecure      bool
	BcryptCost        int
	InstitutesFile    string
	LoginRateLimit    int
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
	// CredentialHashes maps a role identifier to a bcrypt hash that replaces
	// the built-in development secret for that role.
	CredentialHashes map[string]string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "pretty"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionSecret:     getEnv("SESSION_SECRET", "dev-secret-change-me"),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "portal_session"),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		CookieSecure:      getEnvBool("COOKIE_SECURE", false),
		BcryptCost:        getEnvInt("BCRYPT_COST", 10),
		InstitutesFile:    getEnv("INSTITUTES_FILE", "./data/institutes.json"),
		LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT", 30),
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		CredentialHashes:  parseCredentialHashes(os.Environ()),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// parseCredentialHashes collects CREDENTIAL_<ROLE>_HASH entries from an
// environment listing. CREDENTIAL_VICE_CHANCELLOR_HASH maps to "vice_chancellor".
func parseCredentialHashes(environ []string) map[string]string {
	const prefix, suffix = "CREDENTIAL_", "_HASH"

	hashes := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		role := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
		if role == "" {
			continue
		}
		hashes[strings.ToLower(role)] = value
	}
	return hashes
}
