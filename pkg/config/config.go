// Package config loads lexilight settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/japaniel/lexilight/pkg/dictionary"
	"github.com/japaniel/lexilight/pkg/events"
	"github.com/japaniel/lexilight/pkg/live"
	"github.com/japaniel/lexilight/pkg/reader"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "lexilight.yaml"

// Config represents the complete lexilight configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Highlight  HighlightConfig  `yaml:"highlight"`
	Server     ServerConfig     `yaml:"server"`
	NATS       NATSConfig       `yaml:"nats"`
	Reader     ReaderConfig     `yaml:"reader"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
}

// DatabaseConfig locates the word store
type DatabaseConfig struct {
	// Path is the sqlite file (":memory:" for a throwaway store)
	Path string `yaml:"path"`
}

// HighlightConfig tunes highlight passes
type HighlightConfig struct {
	// Window is the debounce window for live sessions and the watch command
	Window time.Duration `yaml:"window"`
	// HugWhitespace keeps whitespace at the edge of a match outside its span
	HugWhitespace bool `yaml:"hug_whitespace"`
	// Selector picks the content root (empty = <body>)
	Selector string `yaml:"selector"`
	// Language restricts the words loaded from the store (empty = all)
	Language string `yaml:"language"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Token, when set, is required as a bearer token on mutating requests
	Token string `yaml:"token"`
	// AllowedOrigins for CORS (empty = any)
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// NATSConfig configures word-list notifications
type NATSConfig struct {
	// URL of the NATS server (empty = notifications disabled)
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ReaderConfig configures page fetching
type ReaderConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxBodySize int64         `yaml:"max_body_size"`
	UserAgent   string        `yaml:"user_agent"`
}

// DictionaryConfig locates the JMdict file
type DictionaryConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "lexilight.db"},
		Highlight: HighlightConfig{
			Window: live.DefaultWindow,
		},
		Server: ServerConfig{Addr: ":8080"},
		NATS:   NATSConfig{Subject: events.DefaultSubject},
		Reader: ReaderConfig{
			Timeout:     reader.DefaultTimeout,
			MaxBodySize: reader.DefaultMaxBodySize,
			UserAgent:   reader.DefaultUserAgent,
		},
		Dictionary: DictionaryConfig{Path: dictionary.DefaultPath},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Highlight.Window < 0 {
		return fmt.Errorf("highlight.window must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	if c.Reader.Timeout <= 0 {
		return fmt.Errorf("reader.timeout must be positive")
	}
	if c.Reader.MaxBodySize <= 0 {
		return fmt.Errorf("reader.max_body_size must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Load reads path and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	config, err := LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		config, err = DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// SaveToFile writes the configuration as YAML
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
