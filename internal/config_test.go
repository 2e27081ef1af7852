package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
model = "gpt-4.1-mini"
media_url = "/files/"
clip_workers = 4
clip_timeout = "30s"
data_backend = "postgres"
database_url = "postgres://localhost/tutorly"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TUTORLY_HTTP_ADDR", ":9999")

	cfg := InitConfig(path)

	if cfg.Model != "gpt-4.1-mini" || cfg.ClipWorkers != 4 || cfg.ClipTimeout != 30*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.MediaURL != "/files" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.MediaURL)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected env override, got %q", cfg.HTTPAddr)
	}
	if cfg.AudioCodec != "aac" || cfg.MaxUploadBytes != 1<<30 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{DataBackend: "memory", MediaRoot: "/tmp/media", MaxUploadBytes: 10}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"postgres without url", func(c *Config) { c.DataBackend = "postgres" }, true},
		{"unknown backend", func(c *Config) { c.DataBackend = "sqlite" }, true},
		{"no media root", func(c *Config) { c.MediaRoot = "" }, true},
		{"no upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}

	cfg := valid()
	_ = cfg.Validate()
	if cfg.ClipWorkers != 1 {
		t.Fatalf("expected clip workers raised to 1, got %d", cfg.ClipWorkers)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("production", &buf).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug must be suppressed in production")
	}

	NewLogger("development", &buf).Debug("shown", "k", "v")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q", buf.String())
	}
	if entry["msg"] != "shown" || entry["level"] != slog.LevelDebug.String() {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewMCPLoggerDisabled(t *testing.T) {
	dir := t.TempDir()
	logger, closer := NewMCPLogger(&Config{CacheDir: dir})
	logger.Info("nothing")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if FileExists(filepath.Join(dir, "mcp.log")) {
		t.Fatalf("expected no log file when disabled")
	}
}

func TestValidateModel(t *testing.T) {
	if err := ValidateModel("gpt-4o-mini"); err != nil {
		t.Fatalf("expected supported model: %v", err)
	}
	if err := ValidateModel("gpt-2"); err == nil {
		t.Fatalf("expected unsupported model error")
	}
}

func TestIsRemoteURL(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/v.mp4": true,
		"http://host/x":             true,
		"ftp://host/x":              false,
		"/tmp/video.mp4":            false,
		"https://":                  false,
	}
	for in, want := range tests {
		if got := IsRemoteURL(in); got != want {
			t.Fatalf("IsRemoteURL(%q) = %v, want %v", in, got, want)
		}
	}
}
