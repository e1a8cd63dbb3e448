// Package config reads server settings from .env files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/contractgen/backend/internal/infrastructure/database"
	"github.com/contractgen/backend/pkg/constants"
)

// Storage drivers
const (
	DriverFile   = "file"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the server configuration
type Config struct {
	Port                string
	StorageDriver       string
	DataDir             string
	SQLitePath          string
	MySQL               database.MySQLConfig
	TemplatesDir        string
	Locale              string
	LogLevel            string
	PreviewTick         time.Duration
	AutosaveSpec        string
	BackupSpec          string
	BackupRetentionDays int
}

// envFiles are tried in order; the first one found wins
var envFiles = []string{".env", "../.env", "../../.env"}

// LoadDotEnv loads the first .env file found. Variables already set are kept.
// It returns the path loaded, or "" when none was found.
func LoadDotEnv() string {
	for _, p := range envFiles {
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the configuration from the environment
func Load() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", constants.DefaultPort),
		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", DriverFile)),
		DataDir:       getenv("DATA_DIR", constants.DefaultDataDir),
		TemplatesDir:  os.Getenv("TEMPLATES_DIR"),
		Locale:        getenv("LOCALE", constants.DefaultLocale),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		AutosaveSpec:  getenv("AUTOSAVE_SPEC", constants.DefaultAutosaveSpec),
		BackupSpec:    getenv("BACKUP_SPEC", constants.DefaultBackupSpec),
		MySQL: database.MySQLConfig{
			Host:     os.Getenv("MYSQL_HOST"),
			Port:     getenv("MYSQL_PORT", "3306"),
			User:     os.Getenv("MYSQL_USER"),
			Password: os.Getenv("MYSQL_PASSWORD"),
			Database: getenv("MYSQL_DATABASE", "contractgen"),
		},
	}
	cfg.SQLitePath = getenv("SQLITE_PATH", filepath.Join(cfg.DataDir, "contracts.db"))

	tickMS, err := getInt("PREVIEW_TICK_MS", int(constants.DefaultPreviewTick/time.Millisecond))
	if err != nil {
		return Config{}, err
	}
	if tickMS <= 0 {
		return Config{}, fmt.Errorf("PREVIEW_TICK_MS must be positive, got %d", tickMS)
	}
	cfg.PreviewTick = time.Duration(tickMS) * time.Millisecond

	cfg.BackupRetentionDays, err = getInt("BACKUP_RETENTION_DAYS", constants.DefaultBackupRetentionDays)
	if err != nil {
		return Config{}, err
	}
	if cfg.BackupRetentionDays <= 0 {
		return Config{}, fmt.Errorf("BACKUP_RETENTION_DAYS must be positive, got %d", cfg.BackupRetentionDays)
	}

	switch cfg.StorageDriver {
	case DriverFile, DriverSQLite, DriverMemory:
	case DriverMySQL:
		if cfg.MySQL.Host == "" {
			return Config{}, fmt.Errorf("MYSQL_HOST is required for the mysql storage driver")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q (want file, mysql, sqlite or memory)", cfg.StorageDriver)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
