// Package log provides rtstream's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by log/slog via
// a bridge handler that feeds our formatter and outputs, so every line has the
// same shape whether it came from the facade or from a library holding a
// *slog.Logger.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("stream"), log.Str("endpoint", "feed"))
//	l.Info("connection open", log.Int("attempt", 0))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level, text or JSON
// format, console/stdout/null output).
//
// # Interop
//
// RedirectStdLog routes the standard library logger through the facade so
// messages from net/http and friends share the same output.
package log
