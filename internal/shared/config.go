package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/hsx/internal/models"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API       APIConfig         `toml:"api"`
	Live      LiveConfig        `toml:"live"`
	View      ViewConfig        `toml:"view"`
	Database  DatabaseConfig    `toml:"database"`
	Server    ServerConfig      `toml:"server"`
	Resources []models.Resource `toml:"resources"`
}

// APIConfig contains admin API connection settings.
type APIConfig struct {
	BaseURL string        `toml:"base_url"`
	Token   string        `toml:"token"`
	Timeout time.Duration `toml:"timeout"`
}

// LiveConfig contains push channel settings.
type LiveConfig struct {
	URL        string        `toml:"url"`
	MinBackoff time.Duration `toml:"min_backoff"`
	MaxBackoff time.Duration `toml:"max_backoff"`
}

// ViewConfig contains list screen defaults.
type ViewConfig struct {
	PageSize int           `toml:"page_size"`
	Debounce time.Duration `toml:"debounce"`
}

// DatabaseConfig contains database connection settings for the sandbox backend.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains sandbox HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LiveURL returns the push channel address. When live.url is empty it is derived from
// api.base_url by switching the scheme to ws or wss and using the /ws path. An unusable base
// URL yields "".
func (c *Config) LiveURL() string {
	if c.Live.URL != "" {
		return c.Live.URL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path, u.RawQuery, u.Fragment = "/ws", "", ""
	return u.String()
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Sections missing from the file keep the embedded defaults. A file without [[resources]]
// uses the built-in catalog.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	defaults := config.Resources
	config.Resources = nil

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}
	if len(config.Resources) == 0 {
		config.Resources = defaults
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the settings the list engine depends on.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.View.PageSize < 0 {
		return fmt.Errorf("%w: view.page_size must not be negative", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r.Name == "" {
			return fmt.Errorf("%w: resource without a name", ErrInvalidConfig)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate resource %q", ErrInvalidConfig, r.Name)
		}
		seen[r.Name] = true

		if _, err := r.EventKinds(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Resource looks up a configured collection by name.
func (c *Config) Resource(name string) (models.Resource, error) {
	i := slices.IndexFunc(c.Resources, func(r models.Resource) bool { return r.Name == name })
	if i < 0 {
		return models.Resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, name)
	}
	return c.Resources[i], nil
}

// ResourceNames lists the configured collections in file order.
func (c *Config) ResourceNames() []string {
	names := make([]string, len(c.Resources))
	for i, r := range c.Resources {
		names[i] = r.Name
	}
	return names
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
