package log

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Context keys recognised by the formatters.
const (
	ComponentKey = "component"
	ErrorKey     = "error"
)

// Entry is a single log record after field merging.
type Entry struct {
	Level     Level
	Message   string
	Fields    []Field
	Timestamp time.Time
}

// Logger is the leveled, structured logging facade used across rtstream.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// With returns a child logger that adds fields to every entry.
	With(fields ...Field) Logger
	// WithComponent tags entries with a component name.
	WithComponent(component string) Logger
	// WithError attaches err under the "error" key.
	WithError(err error) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter renders an entry into bytes.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output receives formatted entries.
type Output interface {
	Write(entry *Entry, formatted []byte) error
	Close() error
}

// LoggerOption configures a logger built by NewLogger.
type LoggerOption func(*pipeline)

// pipeline is shared by a logger and all loggers derived from it.
type pipeline struct {
	level     atomic.Int32
	formatter Formatter
	outputs   []Output
	mu        sync.Mutex
}

// BaseLogger implements Logger on top of slog with the bridge handler.
type BaseLogger struct {
	p      *pipeline
	fields []Field
	slog   *slog.Logger
}

// NewLogger creates a new logger with the given options. Defaults are
// InfoLevel, JSON formatting and a stderr console output.
func NewLogger(options ...LoggerOption) Logger {
	p := &pipeline{formatter: &JSONFormatter{}}
	p.level.Store(int32(InfoLevel))
	for _, option := range options {
		option(p)
	}
	if len(p.outputs) == 0 {
		p.outputs = append(p.outputs, NewConsoleOutput())
	}
	return &BaseLogger{p: p, slog: slog.New(newBridgeHandler(p))}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return NewLogger(WithLevel(ErrorLevel+1), WithOutput(NullOutput{}))
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(p *pipeline) { p.level.Store(int32(level)) }
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(p *pipeline) { p.formatter = formatter }
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(p *pipeline) { p.outputs = append(p.outputs, output) }
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if Level(l.p.level.Load()) > level {
		return
	}
	all := fields
	if len(l.fields) > 0 {
		all = make([]Field, 0, len(l.fields)+len(fields))
		all = append(all, l.fields...)
		all = append(all, fields...)
	}
	l.slog.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFields(all)...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *BaseLogger) Debugf(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...), nil)
}

func (l *BaseLogger) Infof(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...), nil)
}

func (l *BaseLogger) Warnf(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...), nil)
}

func (l *BaseLogger) Errorf(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// With returns a child logger sharing the same pipeline.
func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &BaseLogger{p: l.p, fields: merged, slog: l.slog}
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

func (l *BaseLogger) WithError(err error) Logger {
	return l.With(Err(err))
}

func (l *BaseLogger) SetLevel(level Level) { l.p.level.Store(int32(level)) }

func (l *BaseLogger) GetLevel() Level { return Level(l.p.level.Load()) }

// Slog exposes the underlying slog.Logger for libraries that want one.
func (l *BaseLogger) Slog() *slog.Logger { return l.slog }
