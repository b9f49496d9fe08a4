package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all service configuration.
// Values come from environment variables with sensible defaults.
//
// Environment Variables:
// HTTP:
// - LISTEN_ADDR: address the API server binds to (default: :8750)
//
// Storage:
// - DATA_DIR: base directory for the capture database (default: ./data)
// - DOWNLOAD_DIR: directory manual downloads are written to (default: DATA_DIR/captures)
//
// Fetching:
// - FETCH_TIMEOUT: per-request timeout in seconds (default: 20)
// - FETCH_MAX_BODY_BYTES: response body read cap (default: 10485760)
// - FETCH_USER_AGENT: user agent for the minimal fetch strategy
//
// Ingestion:
// - INGEST_MAX_RETRIES: transient-failure retries per URL (default: 2)
// - INGEST_RETRY_DELAY_MS: base retry delay, grows linearly (default: 1000)
// - INGEST_HEADER_CACHE_LIMIT: header cache ceiling (default: 1000)
// - INGEST_ATTEMPTED_LIMIT: attempted-URL set ceiling (default: 500)
// - INGEST_FAILED_LIMIT: negative cache ceiling (default: 100)
// - SWEEP_CRON_EXPR: maintenance sweep schedule (default: @every 5m)
//
// System:
// - LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	HTTP    HTTPConfig    `json:"http"`
	Storage StorageConfig `json:"storage"`
	Fetch   FetchConfig   `json:"fetch"`
	Ingest  IngestConfig  `json:"ingest"`
	System  SystemConfig  `json:"system"`
}

type HTTPConfig struct {
	ListenAddr string `json:"listen_addr"`
}

type StorageConfig struct {
	DataDir     string `json:"data_dir"`
	DownloadDir string `json:"download_dir"`
}

// DBPath returns the sqlite database location under the data directory.
func (c StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "subsniff.db")
}

type FetchConfig struct {
	Timeout      time.Duration `json:"timeout"`
	MaxBodyBytes int64         `json:"max_body_bytes"`
	UserAgent    string        `json:"user_agent"`
}

type IngestConfig struct {
	MaxRetries       int           `json:"max_retries"`
	RetryDelay       time.Duration `json:"retry_delay"`
	HeaderCacheLimit int           `json:"header_cache_limit"`
	AttemptedLimit   int           `json:"attempted_limit"`
	FailedLimit      int           `json:"failed_limit"`
	SweepCronExpr    string        `json:"sweep_cron_expr"`
}

type SystemConfig struct {
	LogLevel string `json:"log_level"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		HTTP: HTTPConfig{
			ListenAddr: getEnvString("LISTEN_ADDR", ":8750"),
		},
		Storage: StorageConfig{
			DataDir:     getEnvString("DATA_DIR", "./data"),
			DownloadDir: getEnvString("DOWNLOAD_DIR", ""),
		},
		Fetch: FetchConfig{
			Timeout:      time.Duration(getEnvInt("FETCH_TIMEOUT", 20)) * time.Second,
			MaxBodyBytes: int64(getEnvInt("FETCH_MAX_BODY_BYTES", 10*1024*1024)),
			UserAgent:    getEnvString("FETCH_USER_AGENT", defaultUserAgent),
		},
		Ingest: IngestConfig{
			MaxRetries:       getEnvInt("INGEST_MAX_RETRIES", 2),
			RetryDelay:       time.Duration(getEnvInt("INGEST_RETRY_DELAY_MS", 1000)) * time.Millisecond,
			HeaderCacheLimit: getEnvInt("INGEST_HEADER_CACHE_LIMIT", 1000),
			AttemptedLimit:   getEnvInt("INGEST_ATTEMPTED_LIMIT", 500),
			FailedLimit:      getEnvInt("INGEST_FAILED_LIMIT", 100),
			SweepCronExpr:    getEnvString("SWEEP_CRON_EXPR", "@every 5m"),
		},
		System: SystemConfig{
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	if config.Storage.DownloadDir == "" {
		config.Storage.DownloadDir = filepath.Join(config.Storage.DataDir, "captures")
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Ingest.MaxRetries < 0 {
		return fmt.Errorf("INGEST_MAX_RETRIES must not be negative")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("FETCH_MAX_BODY_BYTES must be positive")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
