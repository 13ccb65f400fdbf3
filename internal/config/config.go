package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Auth
	AuthJWTSecret string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cashlog.db"),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashlog"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_transactions"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),
	}

	return cfg
}

// SheetsEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != "" && c.GoogleSheetName != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.AuthJWTSecret == "" {
		errors = append(errors, "AUTH_JWT_SECRET must be set")
	} else if len(c.AuthJWTSecret) < 16 {
		errors = append(errors, "AUTH_JWT_SECRET must be at least 16 characters")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		hasFile := c.GoogleCredentialsFile != ""
		hasJSON := c.GoogleCredentialsJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for the sheets mirror")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
