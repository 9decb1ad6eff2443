// Package log builds the application's slog loggers.
//
// Loggers are injected, not global: each component receives one via its
// constructor and narrows it with logger.With("component", ...). The
// commands build the root logger here and set it as slog's default so
// library code that falls back to slog.Default() stays consistent.
//
//	logger := log.New(log.Config{Level: slog.LevelDebug})
//	idx := index.New(backend, logger.With("component", "index"))
//
// Tests use NewNop to silence output, or NewWithWriter with a buffer to
// assert on it.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so components depend on the standard type
// and keep With, groups, and the rest of the slog API.
type Logger = *slog.Logger

// Config selects handler behavior for New and NewWithWriter.
type Config struct {
	// Level is the minimum level emitted. The zero value is slog.LevelInfo.
	Level slog.Level

	// JSON switches from the text handler to the JSON handler.
	JSON bool

	// AddSource attaches source file and line to each record.
	AddSource bool
}

// New returns a logger writing to stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything. Test use only;
// production code should always log somewhere.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
