// Command tracer is the per-developer background daemon: it watches the
// Claude Code journal directory, derives activity events, and ships them
// to each configured team instance. Invoked with the "status" subcommand
// it instead prints a read-only snapshot of the running daemon's state
// without touching the daemon itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcus/tracer/internal/adapter/claudecode"
	"github.com/marcus/tracer/internal/paths"
	"github.com/marcus/tracer/internal/tracer"
)

var (
	debug = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "status" {
		runStatus(os.Args[2:])
		return
	}

	flag.Parse()
	logger := newLogger(*debug)

	if _, err := paths.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "tracer: failed to create state directory: %v\n", err)
		os.Exit(1)
	}

	sup := tracer.New(claudecode.New(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sup.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tracer: failed to start: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("tracer: shutdown signal received, draining")

	done := make(chan struct{})
	go func() {
		sup.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		logger.Warn("tracer: shutdown timed out, exiting anyway")
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logPath := paths.LogPath()
	if _, err := paths.EnsureDir(); err == nil {
		if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
