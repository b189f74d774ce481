package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clientcmd "github.com/rzbill/rtstream/internal/cmd/client"
	logpkg "github.com/rzbill/rtstream/pkg/log"
)

func main() {
	// Respect RTSTREAM_LOG_LEVEL for library output routed through the std logger
	level := os.Getenv("RTSTREAM_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.WarnLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	restore := logpkg.RedirectStdLog(logger)
	defer restore()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := clientcmd.NewRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "rtstream:", err)
		cancel()
		restore()
		os.Exit(1)
	}
}
