// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port       string
	AuthHeader string
	LogLevel   string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// AMQP change broadcast; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	InstanceID   string

	// Receipt blobs
	BlobBackend string
	BlobDir     string
	GCSBucket   string

	// Google Sheets ledger mirror (worker only)
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncInterval time.Duration

	// Presentation
	Timezone       string
	CurrencySymbol string

	// Dashboard cache
	CacheSize int
	CacheTTL  time.Duration
}

var (
	validBackends     = []string{"memory", "sqlite"}
	validBlobBackends = []string{"local", "gcs"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	host, _ := os.Hostname()
	return &Config{
		Port:       getEnv("PORT", "8081"),
		AuthHeader: getEnv("AUTH_HEADER", "X-User-ID"),
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgethero.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgethero.changes"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budgethero.ledger_sync"),
		InstanceID:   getEnv("INSTANCE_ID", host),

		BlobBackend: getEnv("BLOB_BACKEND", "local"),
		BlobDir:     getEnv("BLOB_DIR", "./data/blobs"),
		GCSBucket:   getEnv("GCS_BUCKET", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		Timezone:       getEnv("TIMEZONE", ""),
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "R"),

		CacheSize: getEnvInt("DASHBOARD_CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("DASHBOARD_CACHE_TTL", 30*time.Second),
	}
}

// Location resolves Timezone; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate checks the server configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.AuthHeader) == "" {
		errs = append(errs, "auth header name cannot be empty")
	}
	if !oneOf(c.LogLevel, validLogLevels) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if !oneOf(c.DataBackend, validBackends) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.BlobBackend {
	case "local":
		if c.BlobDir == "" {
			errs = append(errs, "blob directory cannot be empty when using local blob backend")
		}
	case "gcs":
		if c.GCSBucket == "" {
			errs = append(errs, "GCS bucket is required when using gcs blob backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid blob backend '%s': must be one of %v", c.BlobBackend, validBlobBackends))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid dashboard cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid dashboard cache ttl %v: must be positive", c.CacheTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateWorker adds the checks the ledger sync worker needs on top of
// Validate.
func (c *Config) ValidateWorker() error {
	var errs []string
	if err := c.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.DataBackend != "sqlite" {
		errs = append(errs, "ledger sync worker requires the sqlite backend")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required for the ledger sync worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	} else if c.GoogleServiceAccountJSON == "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
