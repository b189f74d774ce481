package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/rzbill/rtstream/internal/config"
	"github.com/rzbill/rtstream/pkg/log"
)

// addEndpointFlags registers the flags shared by commands that connect.
func addEndpointFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Config file (JSON or YAML)")
	fs.StringArray("env-file", nil, "Load KEY=VALUE env files before reading RTSTREAM_* vars")
	fs.String("url", "", "Endpoint URL (ws://, wss://, http://, https://, grpc://, grpcs://)")
	fs.String("kind", "", "Endpoint kind: duplex|server-push (default inferred from the URL)")
	fs.String("name", "", "Endpoint name used in logs and metrics")
	fs.StringArray("header", nil, "Request header key=value (repeatable)")
	fs.Int("max-attempts", 0, "Consecutive failed attempts before giving up (0 = retry forever)")
	fs.Duration("base-delay", 0, "Initial reconnect delay")
	fs.Duration("max-delay", 0, "Reconnect delay cap")
	fs.Float64("multiplier", 0, "Backoff multiplier")
	fs.Int("max-in-flight", 0, "Messages read ahead of subscribers")
	addLogFlags(fs)
}

func addLogFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "Log level: debug|info|warn|error")
	fs.String("log-format", "", "Log format: text|json")
}

// loadConfig resolves defaults, config file, env and then explicit flags,
// in that order, and validates the result.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	fs := cmd.Flags()
	envFiles, _ := fs.GetStringArray("env-file")
	if err := cfgpkg.LoadDotEnv(envFiles...); err != nil {
		return cfgpkg.Config{}, err
	}
	path, _ := fs.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)

	if fs.Changed("url") {
		cfg.URL, _ = fs.GetString("url")
	}
	if fs.Changed("kind") {
		cfg.Kind, _ = fs.GetString("kind")
	}
	if fs.Changed("name") {
		cfg.Name, _ = fs.GetString("name")
	}
	if fs.Changed("header") {
		pairs, _ := fs.GetStringArray("header")
		headers, err := parseHeaders(pairs)
		if err != nil {
			return cfgpkg.Config{}, err
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range headers {
			cfg.Headers[k] = v
		}
	}
	if fs.Changed("max-attempts") {
		cfg.Reconnect.MaxAttempts, _ = fs.GetInt("max-attempts")
	}
	if fs.Changed("base-delay") {
		d, _ := fs.GetDuration("base-delay")
		cfg.Reconnect.BaseDelayMs = int(d / time.Millisecond)
	}
	if fs.Changed("max-delay") {
		d, _ := fs.GetDuration("max-delay")
		cfg.Reconnect.MaxDelayMs = int(d / time.Millisecond)
	}
	if fs.Changed("multiplier") {
		cfg.Reconnect.BackoffMultiplier, _ = fs.GetFloat64("multiplier")
	}
	if fs.Changed("max-in-flight") {
		cfg.MaxInFlight, _ = fs.GetInt("max-in-flight")
	}
	applyLogFlags(fs, &cfg.Log)
	if err := cfg.Validate(); err != nil {
		return cfgpkg.Config{}, err
	}
	return cfg, nil
}

func applyLogFlags(fs *pflag.FlagSet, lc *log.Config) {
	if fs.Changed("log-level") {
		lc.Level, _ = fs.GetString("log-level")
	}
	if fs.Changed("log-format") {
		lc.Format, _ = fs.GetString("log-format")
	}
}

// newLogger builds the command logger. Logs go to stderr so stdout stays
// machine readable.
func newLogger(cmd *cobra.Command, lc log.Config) (log.Logger, error) {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	var formatter log.Formatter = &log.TextFormatter{}
	switch strings.ToLower(lc.Format) {
	case "", "text":
	case "json":
		formatter = &log.JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", lc.Format)
	}
	return log.NewLogger(
		log.WithLevel(level),
		log.WithFormatter(formatter),
		log.WithOutput(log.NewWriterOutput(cmd.ErrOrStderr())),
	), nil
}

// parseHeaders parses repeated key=value flags.
func parseHeaders(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --header %q; expected key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
