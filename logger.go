package scego

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with scego-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSeed adds the root seed field to the logger.
func (l *Logger) WithSeed(seed int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("seed", seed),
	}
}

// WithWorkers adds the logical worker count field to the logger.
func (l *Logger) WithWorkers(workers int) *Logger {
	return &Logger{
		Logger: l.Logger.With("workers", workers),
	}
}

// WithNodes adds a node count field to the logger.
func (l *Logger) WithNodes(nodes int) *Logger {
	return &Logger{
		Logger: l.Logger.With("nodes", nodes),
	}
}

// WithDevice adds a device ordinal field to the logger.
func (l *Logger) WithDevice(id int) *Logger {
	return &Logger{
		Logger: l.Logger.With("device", id),
	}
}

// LogAffinities logs the affinity calibration stage.
func (l *Logger) LogAffinities(ctx context.Context, edges int, perplexity float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "affinity calibration failed",
			"edges", edges,
			"perplexity", perplexity,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "affinity calibration completed",
			"edges", edges,
			"perplexity", perplexity,
		)
	}
}

// LogRun logs a completed optimization run.
func (l *Logger) LogRun(ctx context.Context, iterations uint64, eq float64, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "embedding run failed",
			"iterations", iterations,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "embedding run completed",
			"iterations", iterations,
			"eq", eq,
			"duration", duration,
		)
	}
}

// LogPersist logs a result save or load against a blob store.
func (l *Logger) LogPersist(ctx context.Context, op, key string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "result persistence failed",
			"op", op,
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "result persisted",
			"op", op,
			"key", key,
		)
	}
}
