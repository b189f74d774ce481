package log

import (
	"fmt"
	"os"
	"strings"
)

// Config describes a logger declaratively.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// Output is one of "stderr" (default), "stdout" or "null".
	Output string `json:"output" yaml:"output"`
}

// ParseLevel maps a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	var output Output
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		output = NewConsoleOutput()
	case "stdout":
		output = NewWriterOutput(os.Stdout)
	case "null":
		output = NullOutput{}
	default:
		return nil, fmt.Errorf("unknown log output %q", cfg.Output)
	}
	return NewLogger(WithLevel(level), WithFormatter(formatter), WithOutput(output)), nil
}
