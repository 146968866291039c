// Package logging provides structured logging configuration using log/slog.
//
// Request loggers pick up chi's request ID so every entry written while
// serving one reconciliation can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type reportKey struct{}

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. The CLI uses it to log to stderr
// so stdout stays free for the exported report.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns a logger enriched with request context.
//
// It adds request_id when chi's RequestID middleware ran and report_id
// when the context was tagged with WithReport.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if id, ok := ctx.Value(reportKey{}).(string); ok && id != "" {
		logger = logger.With("report_id", id)
	}

	return logger
}

// WithReport tags ctx with the id of the report being generated.
func WithReport(ctx context.Context, reportID string) context.Context {
	return context.WithValue(ctx, reportKey{}, reportID)
}

// WithFields returns a logger with additional structured fields.
//
//	runLogger := logging.WithFields(ctx, "source", "upload")
//	runLogger.Info("reconciliation started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
