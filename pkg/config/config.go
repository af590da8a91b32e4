// Package config reads the admin plane configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	Port               string
	JWTSecret          string
	TableName          string
	Region             string
	Bucket             string
	TokenTTL           time.Duration
	SessionIdle        time.Duration
	AuditRetentionDays int

	// Local development overrides for the store.
	DynamoDBEndpoint string
	AWSAccessKey     string
	AWSSecretKey     string

	LogLevel string
}

// Load reads configuration from a .env file (if present) and the
// environment. A missing JWT_SECRET or an unparsable value is a
// configuration error; the process wrapper exits 2 on it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TableName:        getEnv("TABLE_NAME", "learnhub-admin"),
		Region:           getEnv("REGION", "us-east-1"),
		Bucket:           getEnv("BUCKET", ""),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		AWSAccessKey:     getEnv("AWS_ACCESS_KEY_ID", "dummy"),
		AWSSecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", "dummy"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionIdle, err = getDuration("SESSION_IDLE", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.AuditRetentionDays, err = getInt("AUDIT_RETENTION_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.AuditRetentionDays <= 0 {
		return nil, fmt.Errorf("AUDIT_RETENTION_DAYS must be positive, got %d", cfg.AuditRetentionDays)
	}

	return cfg, nil
}

// getEnv reads an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return n, nil
}
