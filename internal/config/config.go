// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
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

// Names of the upstream environment variables. They are reported by the
// health endpoint exactly as written here.
const (
	EnvGA4PropertyID     = "GA4_PROPERTY_ID"
	EnvCredentialsJSON   = "GOOGLE_APPLICATION_CREDENTIALS_JSON"
	EnvBigQueryProjectID = "BIGQUERY_PROJECT_ID"
)

const (
	defaultSampleDataPath = "data/sample_analytics.json"
	defaultSessionSecret  = "minidash-has-no-sessions-00000000"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`
	SampleDataPath        string `mapstructure:"sampledatapath"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Upstream reporting
	GA4PropertyID           string `mapstructure:"ga4propertyid"`
	CredentialsJSON         string `mapstructure:"credentialsjson"`
	BigQueryProjectID       string `mapstructure:"bigqueryprojectid"`
	UpstreamTimeoutSeconds  int    `mapstructure:"upstreamtimeoutseconds"`
	ReportCacheTTLSeconds   int    `mapstructure:"reportcachettlseconds"`
	SampleCacheTTLSeconds   int    `mapstructure:"samplecachettlseconds"`
	ParseRateLimitPerMinute int    `mapstructure:"parseratelimitperminute"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		loaded, err := Load()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	})
	return cfg
}

// Load reads a fresh configuration from defaults and the environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("appname", "minidash")
	v.SetDefault("appport", "3000")
	v.SetDefault("environment", Development)
	v.SetDefault("loglevel", string(LogLevelDebug))
	v.SetDefault("storagepath", "storage")
	v.SetDefault("publicdir", "web/dist")
	v.SetDefault("publicassetsurlprefix", "/")
	v.SetDefault("sampledatapath", defaultSampleDataPath)
	v.SetDefault("logsdir", "logs")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)
	v.SetDefault("dbmaxopenconns", 0)
	v.SetDefault("dbmaxidleconns", 0)
	v.SetDefault("upstreamtimeoutseconds", 15)
	v.SetDefault("reportcachettlseconds", 300)
	v.SetDefault("samplecachettlseconds", 60)
	v.SetDefault("parseratelimitperminute", 60)
	v.SetDefault("jobintervalseconds", 300)

	v.BindEnv("appname", "MINIDASH_APP_NAME")
	v.BindEnv("appport", "MINIDASH_APP_PORT")
	v.BindEnv("environment", "MINIDASH_ENV")
	v.BindEnv("loglevel", "MINIDASH_LOG_LEVEL")
	v.BindEnv("storagepath", "MINIDASH_STORAGE_PATH")
	v.BindEnv("publicdir", "MINIDASH_PUBLIC_DIR")
	v.BindEnv("publicassetsurlprefix", "MINIDASH_PUBLIC_ASSETS_URL_PREFIX")
	v.BindEnv("sampledatapath", "MINIDASH_SAMPLE_DATA_PATH")
	v.BindEnv("logsdir", "MINIDASH_LOGS_DIR")
	v.BindEnv("logsmaxsizeinmb", "MINIDASH_LOGS_MAX_SIZE_IN_MB")
	v.BindEnv("logsmaxbackups", "MINIDASH_LOGS_MAX_BACKUPS")
	v.BindEnv("logsmaxageindays", "MINIDASH_LOGS_MAX_AGE_IN_DAYS")
	v.BindEnv("dbmaxopenconns", "MINIDASH_DB_MAX_OPEN_CONNS")
	v.BindEnv("dbmaxidleconns", "MINIDASH_DB_MAX_IDLE_CONNS")
	v.BindEnv("ga4propertyid", EnvGA4PropertyID)
	v.BindEnv("credentialsjson", EnvCredentialsJSON)
	v.BindEnv("bigqueryprojectid", EnvBigQueryProjectID)
	v.BindEnv("upstreamtimeoutseconds", "MINIDASH_UPSTREAM_TIMEOUT_SECONDS")
	v.BindEnv("reportcachettlseconds", "MINIDASH_REPORT_CACHE_TTL_SECONDS")
	v.BindEnv("samplecachettlseconds", "MINIDASH_SAMPLE_CACHE_TTL_SECONDS")
	v.BindEnv("parseratelimitperminute", "MINIDASH_PARSE_RATE_LIMIT_PER_MINUTE")
	v.BindEnv("jobintervalseconds", "MINIDASH_JOB_INTERVAL_SECONDS")

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c.DatabaseName = c.GetDatabasePath()
	return c, nil
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

	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}
	if !validLevels[LogLevel(strings.ToLower(string(c.LogLevel)))] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.ReportCacheTTLSeconds < 0 {
		return fmt.Errorf("report cache TTL cannot be negative: %d", c.ReportCacheTTLSeconds)
	}
	if c.UpstreamTimeoutSeconds <= 0 {
		return fmt.Errorf("upstream timeout must be positive: %d", c.UpstreamTimeoutSeconds)
	}
	if c.JobIntervalSeconds <= 0 {
		return fmt.Errorf("job interval must be positive: %d", c.JobIntervalSeconds)
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

// EnvPresence reports which upstream variables are set without exposing values.
func (c *Config) EnvPresence() map[string]bool {
	return map[string]bool{
		EnvGA4PropertyID:     strings.TrimSpace(c.GA4PropertyID) != "",
		EnvBigQueryProjectID: strings.TrimSpace(c.BigQueryProjectID) != "",
		EnvCredentialsJSON:   strings.TrimSpace(c.CredentialsJSON) != "",
	}
}

// UpstreamTimeout bounds a single upstream report call
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

// ReportCacheTTL is how long upstream reports are reused. Zero disables caching.
func (c *Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

// JobInterval is the period of the report cache cleanup job
func (c *Config) JobInterval() time.Duration {
	return time.Duration(c.JobIntervalSeconds) * time.Second
}

// SampleCacheTTL is how long the decoded sample file is kept in memory
func (c *Config) SampleCacheTTL() time.Duration {
	return time.Duration(c.SampleCacheTTLSeconds) * time.Second
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret implements cartridge.FactoryConfig. There are no user
// sessions, so a fixed value is returned.
func (c *Config) GetSessionSecret() string {
	return defaultSessionSecret
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 4
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 2
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

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
