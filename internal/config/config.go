// Package config loads livenotes settings from YAML with env overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Notes providers.
const (
	ProviderBackend = "backend"
	ProviderGemini  = "gemini"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Notes   NotesConfig   `yaml:"notes"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Export  ExportConfig  `yaml:"export"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	BaseURL    string        `yaml:"base_url"`
	StreamPath string        `yaml:"stream_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

type NotesConfig struct {
	Provider string `yaml:"provider"`
}

type GeminiConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

type CacheConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads path, applies environment overrides and validates. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LIVENOTES_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("LIVENOTES_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LIVENOTES_NOTES_PROVIDER"); v != "" {
		c.Notes.Provider = v
	}
}

// Validate fills defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8000"
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not an absolute URL", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must be http or https, got %q", u.Scheme)
	}
	if c.Server.StreamPath == "" {
		c.Server.StreamPath = "/ws"
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}

	switch c.Notes.Provider {
	case "":
		c.Notes.Provider = ProviderBackend
	case ProviderBackend, ProviderGemini:
	default:
		return fmt.Errorf("notes.provider must be %q or %q, got %q",
			ProviderBackend, ProviderGemini, c.Notes.Provider)
	}

	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Gemini.APIKeyEnv == "" {
		c.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}

	if c.Export.Dir == "" {
		c.Export.Dir = filepath.Join(dataDir(), "exports")
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(dataDir(), "definitions.sqlite")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(dataDir(), "livenotes.log")
	}

	return nil
}

// GeminiAPIKey returns the key named by gemini.api_key_env.
func (c *Config) GeminiAPIKey() string {
	return os.Getenv(c.Gemini.APIKeyEnv)
}

func dataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".livenotes")
}
