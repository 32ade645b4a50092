package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/quickcred/quickcred/internal/assert"
)

// Config holds all configuration for the development backend
type Config struct {
	// HTTP Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Session Configuration
	Session SessionConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	ListenAddr  string
	CORSOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	// SecretGenerated is true when no SESSION_SECRET was set. Sessions
	// then do not survive a restart.
	SecretGenerated bool
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// Database URL - default to a local file
	dbURL := getEnv("DATABASE_URL", "quickcred.sqlite")

	listenAddr := getEnv("LISTEN_ADDR", ":5000")

	corsOrigins := splitList(getEnv("CORS_ORIGINS", "http://localhost:5000,http://127.0.0.1:5000"))
	if len(corsOrigins) == 0 {
		return nil, fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}

	sessionTTL := 24 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", raw, err)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", raw)
		}
		sessionTTL = ttl
	}

	secret := os.Getenv("SESSION_SECRET")
	generated := false
	if secret == "" {
		// 64 hex characters = 32 bytes of randomness
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		secret = hex.EncodeToString(secretBytes)
		assert.Length(secret, 64)
		generated = true
	}

	// Logging configuration - defaults suitable for production
	logLevel := getEnv("LOG_LEVEL", "info")
	logFormat := getEnv("LOG_FORMAT", "json")

	return &Config{
		Server: ServerConfig{
			ListenAddr:  listenAddr,
			CORSOrigins: corsOrigins,
		},
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Session: SessionConfig{
			Secret:          secret,
			TTL:             sessionTTL,
			SecretGenerated: generated,
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
