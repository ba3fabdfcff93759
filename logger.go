package graphcheck

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/graphcheck/report"
)

// Logger wraps slog.Logger with graphcheck-specific context.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRun adds the run id to every record.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", runID),
	}
}

// LogPass logs the end of one pass over one node range.
func (l *Logger) LogPass(ctx context.Context, pass, nodeRange string, records int64, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "pass failed",
			"pass", pass,
			"range", nodeRange,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "pass completed",
			"pass", pass,
			"range", nodeRange,
			"records", records,
			"duration", d,
		)
	}
}

// LogRange logs a fully checked node range.
func (l *Logger) LogRange(ctx context.Context, nodeRange string, index, total int, d time.Duration) {
	l.InfoContext(ctx, "range checked",
		"range", nodeRange,
		"index", index,
		"ranges", total,
		"duration", d,
	)
}

// LogRun logs the outcome of a run.
func (l *Logger) LogRun(ctx context.Context, s *report.Summary, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "consistency check failed",
			"error", err,
		)
	case s.Consistent():
		l.InfoContext(ctx, "consistency check completed",
			"ranges", s.Ranges,
			"warnings", s.Warnings,
			"duration", s.Duration,
		)
	default:
		l.WarnContext(ctx, "consistency check found inconsistencies",
			"inconsistencies", s.Total,
			"warnings", s.Warnings,
			"ranges", s.Ranges,
			"duration", s.Duration,
		)
	}
}
