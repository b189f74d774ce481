package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and already-set variables win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// FromEnv overlays RTSTREAM_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("RTSTREAM_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("RTSTREAM_KIND"); v != "" {
		cfg.Kind = v
	}
	if v := os.Getenv("RTSTREAM_NAME"); v != "" {
		cfg.Name = v
	}
	// RTSTREAM_HEADERS is a comma separated list of key=value pairs.
	if v := os.Getenv("RTSTREAM_HEADERS"); v != "" {
		for _, pair := range strings.Split(v, ",") {
			k, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || k == "" {
				continue
			}
			if cfg.Headers == nil {
				cfg.Headers = map[string]string{}
			}
			cfg.Headers[k] = val
		}
	}
	envInt("RTSTREAM_MAX_ATTEMPTS", &cfg.Reconnect.MaxAttempts)
	envInt("RTSTREAM_BASE_DELAY_MS", &cfg.Reconnect.BaseDelayMs)
	envInt("RTSTREAM_MAX_DELAY_MS", &cfg.Reconnect.MaxDelayMs)
	if v := os.Getenv("RTSTREAM_BACKOFF_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Reconnect.BackoffMultiplier = f
		}
	}
	envInt("RTSTREAM_PING_INTERVAL_MS", &cfg.PingIntervalMs)
	envInt("RTSTREAM_PONG_WAIT_MS", &cfg.PongWaitMs)
	envInt("RTSTREAM_MAX_IN_FLIGHT", &cfg.MaxInFlight)
	if v := os.Getenv("RTSTREAM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RTSTREAM_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RTSTREAM_STATUS_ADDR"); v != "" {
		cfg.StatusAddr = v
	}
	if v := os.Getenv("RTSTREAM_RECORD_DIR"); v != "" {
		cfg.RecordDir = v
	}
	if v := os.Getenv("RTSTREAM_RECORD_FSYNC"); v != "" {
		cfg.RecordFsync = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
