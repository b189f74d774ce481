package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/rtstream/pkg/log"
	"github.com/rzbill/rtstream/pkg/stream"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	URL     string            `json:"url" yaml:"url" validate:"required,url"`
	Kind    string            `json:"kind" yaml:"kind" validate:"omitempty,oneof=duplex server-push"`
	Name    string            `json:"name" yaml:"name" validate:"omitempty,endpointname"`
	Headers map[string]string `json:"headers" yaml:"headers"`

	Reconnect Reconnect `json:"reconnect" yaml:"reconnect"`

	PingIntervalMs int `json:"pingIntervalMs" yaml:"pingIntervalMs" validate:"gte=0"`
	PongWaitMs     int `json:"pongWaitMs" yaml:"pongWaitMs" validate:"gte=0"`
	MaxInFlight    int `json:"maxInFlight" yaml:"maxInFlight" validate:"gte=0"`

	Log log.Config `json:"log" yaml:"log"`

	// StatusAddr enables the health/metrics HTTP server when non-empty.
	StatusAddr string `json:"statusAddr" yaml:"statusAddr"`
	// RecordDir is where the recorder keeps its journal.
	RecordDir   string `json:"recordDir" yaml:"recordDir"`
	RecordFsync string `json:"recordFsync" yaml:"recordFsync" validate:"omitempty,oneof=always interval never"`
}

// Reconnect captures the backoff policy.
type Reconnect struct {
	// MaxAttempts of 0 retries forever.
	MaxAttempts       int     `json:"maxAttempts" yaml:"maxAttempts" validate:"gte=0"`
	BaseDelayMs       int     `json:"baseDelayMs" yaml:"baseDelayMs" validate:"gte=0"`
	MaxDelayMs        int     `json:"maxDelayMs" yaml:"maxDelayMs" validate:"omitempty,gtefield=BaseDelayMs"`
	BackoffMultiplier float64 `json:"backoffMultiplier" yaml:"backoffMultiplier" validate:"omitempty,gte=1"`
}

// Default returns built-in defaults.
func Default() Config {
	p := stream.DefaultPolicy()
	return Config{
		Reconnect: Reconnect{
			MaxAttempts:       p.MaxAttempts,
			BaseDelayMs:       int(p.BaseDelay / time.Millisecond),
			MaxDelayMs:        int(p.MaxDelay / time.Millisecond),
			BackoffMultiplier: p.Multiplier,
		},
		PingIntervalMs: 30_000,
		PongWaitMs:     60_000,
		MaxInFlight:    stream.DefaultMaxInFlight,
		Log:            log.Config{Level: "info", Format: "text"},
		RecordDir:      DefaultRecordDir(),
		RecordFsync:    "interval",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Policy converts the reconnect section.
func (c Config) Policy() stream.Policy {
	return stream.Policy{
		MaxAttempts: c.Reconnect.MaxAttempts,
		BaseDelay:   time.Duration(c.Reconnect.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.Reconnect.MaxDelayMs) * time.Millisecond,
		Multiplier:  c.Reconnect.BackoffMultiplier,
	}
}

// Endpoint builds the stream endpoint. An empty Kind is left for the caller
// to infer from the URL scheme.
func (c Config) Endpoint() stream.Endpoint {
	var header http.Header
	if len(c.Headers) > 0 {
		header = make(http.Header, len(c.Headers))
		for k, v := range c.Headers {
			header.Set(k, v)
		}
	}
	return stream.Endpoint{
		URL:    c.URL,
		Kind:   stream.Kind(c.Kind),
		Name:   c.Name,
		Header: header,
		Policy: c.Policy(),
	}
}
