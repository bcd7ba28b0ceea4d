// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir string // Base directory for all databases (always absolute)
	Port    int
	DevMode bool

	LogLevel string

	// External verification services
	MRZServiceURL      string // Travel-document (MRZ) extraction service
	ExtractServiceURL  string // Document-to-text extraction service
	VerifierServiceURL string // Language-model verification service
	VerifierAPIKey     string
	NavServiceURL      string // Fund price (NAV) feed

	// Per-call deadline for extraction and AI verification requests.
	// A stage that exceeds it resolves the deposit to rejected instead of
	// leaving it pending.
	ExternalCallTimeout time.Duration

	// Blob storage (S3-compatible; endpoint override supports R2/minio)
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// How long a verification work item may sit pending/running before the
	// requeue job picks it up again.
	WorkStaleAfter time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CUSTODIAN_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MRZServiceURL:      getEnv("MRZ_SERVICE_URL", "http://localhost:9100"),
		ExtractServiceURL:  getEnv("EXTRACT_SERVICE_URL", "http://localhost:9101"),
		VerifierServiceURL: getEnv("VERIFIER_SERVICE_URL", "http://localhost:9102"),
		VerifierAPIKey:     getEnv("VERIFIER_API_KEY", ""),
		NavServiceURL:      getEnv("NAV_SERVICE_URL", "http://localhost:9103"),

		ExternalCallTimeout: getEnvAsDuration("EXTERNAL_CALL_TIMEOUT", 60*time.Second),

		S3Bucket:    getEnv("S3_BUCKET", "custodian-documents"),
		S3Region:    getEnv("S3_REGION", "auto"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		WorkStaleAfter: getEnvAsDuration("WORK_STALE_AFTER", 10*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ExternalCallTimeout <= 0 {
		return fmt.Errorf("external call timeout must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
