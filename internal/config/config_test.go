package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/rtstream/pkg/stream"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Reconnect.MaxAttempts != 10 {
		t.Fatalf("max attempts default = %d", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Reconnect.BaseDelayMs != 500 || cfg.Reconnect.MaxDelayMs != 30_000 {
		t.Fatalf("delay defaults = %+v", cfg.Reconnect)
	}
	if cfg.MaxInFlight != stream.DefaultMaxInFlight {
		t.Fatalf("max in flight default")
	}
	if cfg.Policy() != stream.DefaultPolicy() {
		t.Fatalf("policy = %+v", cfg.Policy())
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rtstream.json")
	data := []byte(`{"url":"wss://example.com/feed","name":"prod","reconnect":{"maxAttempts":3,"baseDelayMs":100}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.URL != "wss://example.com/feed" || cfg.Name != "prod" {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	if cfg.Reconnect.MaxAttempts != 3 || cfg.Reconnect.BaseDelayMs != 100 {
		t.Fatalf("reconnect = %+v", cfg.Reconnect)
	}
	// untouched fields keep defaults
	if cfg.Reconnect.MaxDelayMs != 30_000 {
		t.Fatalf("expected default max delay, got %d", cfg.Reconnect.MaxDelayMs)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rtstream.yaml")
	data := []byte(`url: https://example.com/events
kind: server-push
headers:
  Authorization: Bearer abc
reconnect:
  maxAttempts: 0
  backoffMultiplier: 1.5
log:
  level: debug
  format: json
`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Kind != "server-push" || cfg.Reconnect.MaxAttempts != 0 || cfg.Reconnect.BackoffMultiplier != 1.5 {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	ep := cfg.Endpoint()
	if ep.Kind != stream.KindServerPush || ep.Header.Get("Authorization") != "Bearer abc" {
		t.Fatalf("endpoint = %+v", ep)
	}
}

func TestLoadBadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(file, []byte("url: [unclosed"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("RTSTREAM_URL", "ws://localhost:8080/ws")
	t.Setenv("RTSTREAM_MAX_ATTEMPTS", "7")
	t.Setenv("RTSTREAM_BASE_DELAY_MS", "250")
	t.Setenv("RTSTREAM_BACKOFF_MULTIPLIER", "3")
	t.Setenv("RTSTREAM_HEADERS", "X-Token=abc, X-Team=core")
	t.Setenv("RTSTREAM_MAX_IN_FLIGHT", "not-a-number")
	FromEnv(&cfg)
	if cfg.URL != "ws://localhost:8080/ws" {
		t.Fatalf("env override url")
	}
	want := stream.Policy{MaxAttempts: 7, BaseDelay: 250 * time.Millisecond, MaxDelay: 30 * time.Second, Multiplier: 3}
	if cfg.Policy() != want {
		t.Fatalf("policy = %+v", cfg.Policy())
	}
	if cfg.Headers["X-Token"] != "abc" || cfg.Headers["X-Team"] != "core" {
		t.Fatalf("headers = %v", cfg.Headers)
	}
	if cfg.MaxInFlight != stream.DefaultMaxInFlight {
		t.Fatalf("bad int should be ignored")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("RTSTREAM_NAME=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("RTSTREAM_NAME", "")
	os.Unsetenv("RTSTREAM_NAME")
	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), file); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	cfg := Default()
	FromEnv(&cfg)
	if cfg.Name != "from-dotenv" {
		t.Fatalf("name = %q", cfg.Name)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.URL = "wss://example.com/feed"
	valid.Name = "prod-feed"
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing url", func(c *Config) { c.URL = "" }, "Config.URL"},
		{"bad kind", func(c *Config) { c.Kind = "push" }, "Config.Kind"},
		{"bad name", func(c *Config) { c.Name = "has space" }, "Config.Name"},
		{"negative attempts", func(c *Config) { c.Reconnect.MaxAttempts = -1 }, "Config.Reconnect.MaxAttempts"},
		{"cap below base", func(c *Config) { c.Reconnect.MaxDelayMs = 10 }, "Config.Reconnect.MaxDelayMs"},
		{"multiplier below one", func(c *Config) { c.Reconnect.BackoffMultiplier = 0.5 }, "Config.Reconnect.BackoffMultiplier"},
		{"bad fsync", func(c *Config) { c.RecordFsync = "sometimes" }, "Config.RecordFsync"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("error %q does not name %s", err, tt.field)
			}
		})
	}
}
