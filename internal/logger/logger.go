package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger interface defines the methods required for logging
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	WithContext(ctx context.Context) Logger
}

// SlogLogger implements the Logger interface using slog
type SlogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

// New creates a new SlogLogger with the given level and output
func New(level slog.Level, output io.Writer) *SlogLogger {
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(output, opts)

	return &SlogLogger{
		logger: slog.New(handler),
		ctx:    context.Background(),
	}
}

// Default returns a new SlogLogger with default settings
func Default() *SlogLogger {
	return New(slog.LevelInfo, os.Stdout)
}

// Discard returns a logger that drops everything
func Discard() *SlogLogger {
	return New(slog.LevelError+1, io.Discard)
}

// Slog exposes the underlying slog.Logger
func (l *SlogLogger) Slog() *slog.Logger {
	return l.logger
}

// Debug logs a debug message
func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Log(l.ctx, slog.LevelDebug, msg, args...)
}

// Info logs an info message
func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Log(l.ctx, slog.LevelInfo, msg, args...)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Log(l.ctx, slog.LevelWarn, msg, args...)
}

// Error logs an error message
func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Log(l.ctx, slog.LevelError, msg, args...)
}

// WithField returns a new logger with the given field
func (l *SlogLogger) WithField(key string, value any) Logger {
	return &SlogLogger{
		logger: l.logger.With(key, value),
		ctx:    l.ctx,
	}
}

// WithFields returns a new logger with the given fields
func (l *SlogLogger) WithFields(fields map[string]any) Logger {
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	return &SlogLogger{
		logger: l.logger.With(attrs...),
		ctx:    l.ctx,
	}
}

// WithContext returns a new logger bound to ctx, so handlers that read
// trace ids from the context can pick them up
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	return &SlogLogger{
		logger: l.logger,
		ctx:    ctx,
	}
}
