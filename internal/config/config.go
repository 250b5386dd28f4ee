package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"pagos/internal/log"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	LedgerPath   string
	SQLiteDBPath string
	AuditLogPath string

	// Ledger defaults
	SeedFile          string
	LedgerYear        int
	ControlDay        int
	AutoDeduct        bool
	FallbackOnCorrupt bool

	// AMQP (optional event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets (optional pending export)
	GoogleSpreadsheetID      string
	GooglePendingSheetName   string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Scheduler
	MonthRollSchedule      string
	PendingPublishSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", BackendFile),
		LedgerPath:   getEnv("LEDGER_PATH", "./data/control_pagos.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/pagos.db"),
		AuditLogPath: getEnv("AUDIT_LOG_PATH", "./data/operaciones.txt"),

		SeedFile:          getEnv("SEED_FILE", ""),
		LedgerYear:        getEnvInt("LEDGER_YEAR", 2026),
		ControlDay:        getEnvInt("CONTROL_DAY", 29),
		AutoDeduct:        getEnvBool("AUTO_DEDUCT", false),
		FallbackOnCorrupt: getEnvBool("FALLBACK_ON_CORRUPT", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pagos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GooglePendingSheetName:   getEnv("GOOGLE_PENDING_SHEET_NAME", "Pendientes"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		MonthRollSchedule:      getEnv("MONTH_ROLL_SCHEDULE", "@daily"),
		PendingPublishSchedule: getEnv("PENDING_PUBLISH_SCHEDULE", "@hourly"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// DataDir is the directory holding the ledger document and its exports.
func (c *Config) DataDir() string {
	if c.DataBackend == BackendSQLite {
		return filepath.Dir(c.SQLiteDBPath)
	}
	return filepath.Dir(c.LedgerPath)
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendFile:
		if c.LedgerPath == "" {
			errors = append(errors, "ledger path cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendFile, BackendSQLite))
	}

	if c.AuditLogPath == "" {
		errors = append(errors, "audit log path cannot be empty")
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}

	if c.LedgerYear < 2000 || c.LedgerYear > 2100 {
		errors = append(errors, fmt.Sprintf("invalid ledger year %d: must be between 2000 and 2100", c.LedgerYear))
	}
	if c.ControlDay < 1 || c.ControlDay > 31 {
		errors = append(errors, fmt.Sprintf("invalid control day %d: must be between 1 and 31", c.ControlDay))
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

	if c.GoogleSpreadsheetID != "" {
		if c.GooglePendingSheetName == "" {
			errors = append(errors, "Google pending sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if _, err := cron.ParseStandard(c.MonthRollSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid month roll schedule '%s': %v", c.MonthRollSchedule, err))
	}
	if c.PendingPublishSchedule != "" {
		if _, err := cron.ParseStandard(c.PendingPublishSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid pending publish schedule '%s': %v", c.PendingPublishSchedule, err))
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
