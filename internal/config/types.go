// Package config loads application configuration from file, environment
// and flags, and sets up logging.
package config

import "fmt"

// Defaults.
const (
	DefaultPort         = 8811
	DefaultAPIBaseURL   = "https://api-nextgen-tools.iedb.org/api/v1"
	DefaultStatePath    = "bindscope.db"
	DefaultLogFile      = "bindscope.log"
	DefaultPollInterval = 2 // seconds
)

// Config is the resolved application configuration.
type Config struct {
	// Port is the HTTP listen port for the web UI.
	Port int `koanf:"port"`

	// APIBaseURL is the prediction API endpoint.
	APIBaseURL string `koanf:"api_base_url"`

	// StatePath is the SQLite database holding saved searches and run
	// history.
	StatePath string `koanf:"state_path"`

	// CatalogDir optionally extends the built-in allele catalog.
	CatalogDir string `koanf:"catalog_dir"`

	// Watch reloads the catalog directory on changes.
	Watch bool `koanf:"watch"`

	// PollInterval is the delay between job status polls, in seconds.
	PollInterval int `koanf:"poll_interval"`

	// SessionSecret signs session cookies. ${VAR} references are expanded
	// from the environment.
	SessionSecret string `koanf:"session_secret"`

	LogFile string `koanf:"log_file"`
	Verbose bool   `koanf:"verbose"`
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %d", c.PollInterval)
	}
	return nil
}
