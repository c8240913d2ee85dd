package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty config takes defaults",
			config:  Config{},
			wantErr: false,
		},
		{
			name: "gemini provider",
			config: Config{
				Server: ServerConfig{BaseURL: "https://notes.example.com"},
				Notes:  NotesConfig{Provider: ProviderGemini},
			},
			wantErr: false,
		},
		{
			name: "unknown provider",
			config: Config{
				Notes: NotesConfig{Provider: "openai"},
			},
			wantErr: true,
		},
		{
			name: "relative base url",
			config: Config{
				Server: ServerConfig{BaseURL: "localhost:8000/api"},
			},
			wantErr: true,
		},
		{
			name: "websocket scheme base url",
			config: Config{
				Server: ServerConfig{BaseURL: "ws://localhost:8000"},
			},
			wantErr: true,
		},
		{
			name: "negative timeout",
			config: Config{
				Server: ServerConfig{Timeout: -time.Second},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.StreamPath != "/ws" {
		t.Errorf("StreamPath = %q", cfg.Server.StreamPath)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Server.Timeout)
	}
	if cfg.Notes.Provider != ProviderBackend {
		t.Errorf("Provider = %q", cfg.Notes.Provider)
	}
	if cfg.Gemini.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("APIKeyEnv = %q", cfg.Gemini.APIKeyEnv)
	}
	if cfg.Export.Dir == "" || cfg.Logging.File == "" || cfg.Cache.Path == "" {
		t.Error("export dir, cache path and log file should default")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livenotes.yaml")
	content := `
server:
  base_url: "http://10.0.0.5:8000"
  stream_path: "/stream"
  timeout: 5s

notes:
  provider: gemini

gemini:
  model: "gemini-2.0-flash"

export:
  dir: "/tmp/exports"

cache:
  path: "/tmp/definitions.sqlite"

logging:
  level: "debug"
  file: ""
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("BaseURL = %v", cfg.Server.BaseURL)
	}
	if cfg.Server.StreamPath != "/stream" {
		t.Errorf("StreamPath = %v", cfg.Server.StreamPath)
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Server.Timeout)
	}
	if cfg.Notes.Provider != ProviderGemini {
		t.Errorf("Provider = %v", cfg.Notes.Provider)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %v", cfg.Gemini.Model)
	}
	if cfg.Cache.Path != "/tmp/definitions.sqlite" {
		t.Errorf("Cache.Path = %v", cfg.Cache.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %v", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.BaseURL == "" {
		t.Error("defaults should be applied")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed yaml")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LIVENOTES_SERVER_URL", "https://override.example.com")
	t.Setenv("LIVENOTES_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.BaseURL != "https://override.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}
