// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`
	SiteURL     string   `mapstructure:"siteurl"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Tracking settings
	TrackAdmins          bool `mapstructure:"trackadmins"`
	VisitorCookieDays    int  `mapstructure:"visitorcookiedays"`
	ViewDedupMinutes     int  `mapstructure:"viewdedupminutes"`
	CheckoutDedupMinutes int  `mapstructure:"checkoutdedupminutes"`
	CartSnapshotDays     int  `mapstructure:"cartsnapshotdays"`

	// Retention / cleanup settings
	RetentionDays          int `mapstructure:"retentiondays"`
	CleanupPageSize        int `mapstructure:"cleanuppagesize"`
	CleanupMaxPerRun       int `mapstructure:"cleanupmaxperrun"`
	TableCheckIntervalMins int `mapstructure:"tablecheckintervalmins"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "storepulse")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("siteurl", "")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("trackadmins", false)
		v.SetDefault("visitorcookiedays", 30)
		v.SetDefault("viewdedupminutes", 30)
		v.SetDefault("checkoutdedupminutes", 60)
		v.SetDefault("cartsnapshotdays", 7)
		v.SetDefault("retentiondays", 30)
		v.SetDefault("cleanuppagesize", 50)
		v.SetDefault("cleanupmaxperrun", 5000)
		v.SetDefault("tablecheckintervalmins", 1440)

		// Bind environment variables
		v.BindEnv("appname", "STOREPULSE_APP_NAME")
		v.BindEnv("appport", "STOREPULSE_APP_PORT")
		v.BindEnv("environment", "STOREPULSE_ENV")
		v.BindEnv("loglevel", "STOREPULSE_LOG_LEVEL")
		v.BindEnv("privatekey", "STOREPULSE_PRIVATE_KEY")
		v.BindEnv("siteurl", "STOREPULSE_SITE_URL")
		v.BindEnv("storagepath", "STOREPULSE_STORAGE_PATH")
		v.BindEnv("logsdir", "STOREPULSE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "STOREPULSE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "STOREPULSE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "STOREPULSE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "STOREPULSE_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "STOREPULSE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "STOREPULSE_DB_MAX_IDLE_CONNS")
		v.BindEnv("trackadmins", "STOREPULSE_TRACK_ADMINS")
		v.BindEnv("visitorcookiedays", "STOREPULSE_VISITOR_COOKIE_DAYS")
		v.BindEnv("viewdedupminutes", "STOREPULSE_VIEW_DEDUP_MINUTES")
		v.BindEnv("checkoutdedupminutes", "STOREPULSE_CHECKOUT_DEDUP_MINUTES")
		v.BindEnv("cartsnapshotdays", "STOREPULSE_CART_SNAPSHOT_DAYS")
		v.BindEnv("retentiondays", "STOREPULSE_RETENTION_DAYS")
		v.BindEnv("cleanuppagesize", "STOREPULSE_CLEANUP_PAGE_SIZE")
		v.BindEnv("cleanupmaxperrun", "STOREPULSE_CLEANUP_MAX_PER_RUN")
		v.BindEnv("tablecheckintervalmins", "STOREPULSE_TABLE_CHECK_INTERVAL_MINS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()

		// Validate private key - in production, must be explicitly set (not empty, not default)
		defaultKey := "88888888888888888888888888888888"
		if cfg.PrivateKey == "" {
			log.Fatal("Private key is required")
		}
		if cfg.IsProduction() && cfg.PrivateKey == defaultKey {
			log.Fatal("Production requires a unique STOREPULSE_PRIVATE_KEY (cannot use default)")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", c.RetentionDays)
	}
	if c.CleanupPageSize <= 0 || c.CleanupMaxPerRun <= 0 {
		return fmt.Errorf("cleanup page size and per-run cap must be positive")
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return "public"
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return "/assets"
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// A single connection in test (E2E stability), a small pool elsewhere.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// ViewDedupWindow returns the suppression window for repeat product views.
func (c *Config) ViewDedupWindow() time.Duration {
	return time.Duration(c.ViewDedupMinutes) * time.Minute
}

// CheckoutDedupWindow returns the suppression window for repeat checkout opens.
func (c *Config) CheckoutDedupWindow() time.Duration {
	return time.Duration(c.CheckoutDedupMinutes) * time.Minute
}

// CartSnapshotTTL returns how long cart snapshots are retained.
func (c *Config) CartSnapshotTTL() time.Duration {
	return time.Duration(c.CartSnapshotDays) * 24 * time.Hour
}

// VisitorCookieTTL returns the lifetime of the anonymous visitor cookie.
func (c *Config) VisitorCookieTTL() time.Duration {
	return time.Duration(c.VisitorCookieDays) * 24 * time.Hour
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
