package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Format selects the zap encoder
type Format string

const (
	ConsoleFormat Format = "console"
	JSONFormat    Format = "json"
)

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// ParseFormat parses a string into a Format. Empty means console.
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "", "console", "text":
		return ConsoleFormat, nil
	case "json":
		return JSONFormat, nil
	default:
		return ConsoleFormat, fmt.Errorf("invalid log format: %s", format)
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type contextKey struct{}

var loggerKey = contextKey{}

// NewLogger creates a console logger with the specified level
func NewLogger(level LogLevel) (*zap.Logger, error) {
	return NewLoggerWithFormat(level, ConsoleFormat)
}

// NewLoggerWithFormat creates a zap logger writing to stderr.
// Task documents and CLI results go to stdout, so logs never mix with them.
func NewLoggerWithFormat(level LogLevel, format Format) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level.zapLevel())
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = true

	if format == JSONFormat {
		config.Encoding = "json"
	} else {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build(zap.AddCallerSkip(1))
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from the context
// If no logger is found, it creates a default info-level logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}

	logger, err := NewLogger(InfoLevel)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// SetupContext creates a context with a logger configured at the specified level and format
func SetupContext(ctx context.Context, level LogLevel, format Format) (context.Context, error) {
	logger, err := NewLoggerWithFormat(level, format)
	if err != nil {
		return ctx, fmt.Errorf("failed to create logger: %w", err)
	}

	return WithLogger(ctx, logger), nil
}
