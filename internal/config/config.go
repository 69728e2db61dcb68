package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"BD_ENV" default:"development"`

	HTTPPort    int           `envconfig:"BD_HTTP_PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"BD_HTTP_TIMEOUT" default:"15s"`

	// ClientTimeout bounds every outbound HTTP call a subtask makes.
	ClientTimeout time.Duration `envconfig:"BD_CLIENT_TIMEOUT" default:"5m"`

	// ACSMTimeout bounds the wait on the Adobe connector thread.
	ACSMTimeout time.Duration `envconfig:"BD_ACSM_TIMEOUT" default:"3m"`

	// ProgressInterval is the minimum spacing between published download
	// progress states.
	ProgressInterval time.Duration `envconfig:"BD_PROGRESS_INTERVAL" default:"100ms"`

	DownloadDir  string `envconfig:"BD_DOWNLOAD_DIR" default:"./storage"`
	DatabasePath string `envconfig:"BD_DATABASE_PATH" default:"./data/books.db"`
	ContentDir   string `envconfig:"BD_CONTENT_DIR" default:"./content"`
	BundledDir   string `envconfig:"BD_BUNDLED_DIR" default:"./bundled"`
	AccountsFile string `envconfig:"BD_ACCOUNTS_FILE" default:"./accounts.json"`

	ShutdownTimeout time.Duration `envconfig:"BD_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"BD_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"BD_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.ClientTimeout <= 0 {
		return fmt.Errorf("client timeout must be positive: %s", c.ClientTimeout)
	}

	if c.ACSMTimeout <= 0 {
		return fmt.Errorf("ACSM timeout must be positive: %s", c.ACSMTimeout)
	}

	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be positive: %s", c.ProgressInterval)
	}

	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	return nil
}
