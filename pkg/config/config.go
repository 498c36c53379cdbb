// Package config handles client configuration for webpilot.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides where LoadDefault looks for the config file.
const EnvConfigPath = "WEBPILOT_CONFIG"

// Config represents the client configuration (webpilot.yaml).
type Config struct {
	// Connection settings
	Endpoint       string            `yaml:"endpoint"`       // ws:// endpoint of the browser server
	ConnectTimeout int               `yaml:"connectTimeout"` // Handshake timeout (ms)
	SlowMo         int               `yaml:"slowMo"`         // Delay before each page's first command (ms)
	Headers        map[string]string `yaml:"headers"`        // Extra handshake headers

	// Action engine settings
	ActionTimeout int `yaml:"actionTimeout"` // Default per-action deadline (ms); 0 = no bound
	PollInterval  int `yaml:"pollInterval"`  // Backoff between actionability polls (ms)
	SettleGrace   int `yaml:"settleGrace"`   // Post-action navigation grace window (ms)

	// Logging
	LogPath string `yaml:"logPath"`
	Verbose bool   `yaml:"verbose"`
}

// Defaults used when a field is unset.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultActionTimeout  = 30 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultSettleGrace    = 500 * time.Millisecond
)

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDefault loads the config named by $WEBPILOT_CONFIG, falling back to
// webpilot.yaml / webpilot.yml in the working directory. A missing file is
// not an error; the zero config is returned.
func LoadDefault() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return Load(path)
	}

	for _, name := range []string{"webpilot.yaml", "webpilot.yml"} {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return &Config{}, nil
}

// ConnectTimeoutOrDefault returns the handshake timeout.
func (c *Config) ConnectTimeoutOrDefault() time.Duration {
	if c.ConnectTimeout > 0 {
		return time.Duration(c.ConnectTimeout) * time.Millisecond
	}
	return DefaultConnectTimeout
}

// ActionTimeoutOrDefault returns the default action deadline. A configured
// value of -1 means "explicitly unbounded" and maps to 0.
func (c *Config) ActionTimeoutOrDefault() time.Duration {
	switch {
	case c.ActionTimeout < 0:
		return 0
	case c.ActionTimeout > 0:
		return time.Duration(c.ActionTimeout) * time.Millisecond
	default:
		return DefaultActionTimeout
	}
}

// PollIntervalOrDefault returns the actionability poll backoff.
func (c *Config) PollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return time.Duration(c.PollInterval) * time.Millisecond
	}
	return DefaultPollInterval
}

// SettleGraceOrDefault returns the post-action navigation grace window.
func (c *Config) SettleGraceOrDefault() time.Duration {
	if c.SettleGrace > 0 {
		return time.Duration(c.SettleGrace) * time.Millisecond
	}
	return DefaultSettleGrace
}
