// Package config loads the ingest engine's configuration from environment
// variables and an optional .env file.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for one ingest run.
type Config struct {
	// Document / spreadsheet identifiers.
	DocID                string
	SpreadsheetID        string
	PresidentsSheetTitle string
	DryRun               bool

	// Database.
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSchema   string

	// Object store.
	AWSRegion       string
	S3PrivateBucket string
	S3PublicBucket  string

	// Drive / Dropbox.
	GoogleCredentialsPath string
	DropboxAccessToken    string
	DropboxTimeout        time.Duration

	// Rate-limited RPC harness (C4) tunables.
	MaxRetries        int
	BackoffBase       float64
	BackoffMax        float64
	RateLimitSeconds  float64

	// Media fetcher concurrency.
	MediaWorkers          int
	MediaTranscodeWorkers int

	// Optional shared cache.
	RedisURL string

	// Logging.
	Env      string
	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file in the working directory.
func Load() *Config {
	_ = godotenvLoad()

	return &Config{
		DocID:                getEnv("DOC_ID", ""),
		SpreadsheetID:        getEnv("SPREADSHEET_ID", ""),
		PresidentsSheetTitle: getEnv("PRESIDENTS_SHEET_TITLE", "presidents"),
		DryRun:               getEnvBool("DRY_RUN", false),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", "sequoia"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBSchema:   getEnv("DB_SCHEMA", "sequoia"),

		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		S3PrivateBucket: getEnv("S3_PRIVATE_BUCKET", "sequoia-canonical"),
		S3PublicBucket:  getEnv("S3_PUBLIC_BUCKET", "sequoia-public"),

		GoogleCredentialsPath: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		DropboxAccessToken:    getEnv("DROPBOX_ACCESS_TOKEN", ""),
		DropboxTimeout:        time.Duration(getEnvInt("DROPBOX_TIMEOUT", 60)) * time.Second,

		MaxRetries:       getEnvInt("GAPI_MAX_RETRIES", 10),
		BackoffBase:      getEnvFloat("GAPI_BACKOFF_BASE", 0.8),
		BackoffMax:       getEnvFloat("GAPI_BACKOFF_MAX", 30.0),
		RateLimitSeconds: getEnvFloat("SHEETS_RATE_LIMIT_SECONDS", 0.0),

		MediaWorkers:          getEnvInt("MEDIA_WORKERS", 4),
		MediaTranscodeWorkers: getEnvInt("MEDIA_TRANSCODE_WORKERS", 0),

		RedisURL: getEnv("REDIS_URL", ""),

		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
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

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
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
