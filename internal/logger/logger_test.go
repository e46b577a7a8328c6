package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    LogLevel
		expectError bool
	}{
		{name: "debug level", input: "debug", expected: DebugLevel},
		{name: "debug level uppercase", input: "DEBUG", expected: DebugLevel},
		{name: "info level", input: "info", expected: InfoLevel},
		{name: "warn level", input: "warn", expected: WarnLevel},
		{name: "warning level", input: "warning", expected: WarnLevel},
		{name: "error level", input: "error", expected: ErrorLevel},
		{name: "invalid level returns info with error", input: "invalid", expected: InfoLevel, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseLogLevel(tt.input)

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if result != tt.expected {
				t.Errorf("Expected %s but got %s", tt.expected, result)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input       string
		expected    Format
		expectError bool
	}{
		{input: "", expected: ConsoleFormat},
		{input: "console", expected: ConsoleFormat},
		{input: "TEXT", expected: ConsoleFormat},
		{input: "json", expected: JSONFormat},
		{input: "xml", expected: ConsoleFormat, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseFormat(tt.input)
			if (err != nil) != tt.expectError {
				t.Errorf("ParseFormat(%q) error = %v, expectError %v", tt.input, err, tt.expectError)
			}
			if result != tt.expected {
				t.Errorf("ParseFormat(%q) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogLevel_zapLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected zapcore.Level
	}{
		{DebugLevel, zapcore.DebugLevel},
		{InfoLevel, zapcore.InfoLevel},
		{WarnLevel, zapcore.WarnLevel},
		{ErrorLevel, zapcore.ErrorLevel},
		{LogLevel("invalid"), zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := tt.level.zapLevel(); got != tt.expected {
			t.Errorf("%s.zapLevel() = %v, want %v", tt.level, got, tt.expected)
		}
	}
}

func TestNewLoggerWithFormat(t *testing.T) {
	for _, format := range []Format{ConsoleFormat, JSONFormat} {
		t.Run(string(format), func(t *testing.T) {
			logger, err := NewLoggerWithFormat(WarnLevel, format)
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if logger.Core().Enabled(zapcore.InfoLevel) {
				t.Error("Expected info to be disabled for a warn logger")
			}
			if !logger.Core().Enabled(zapcore.WarnLevel) {
				t.Error("Expected warn to be enabled for a warn logger")
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Run("context with logger", func(t *testing.T) {
		logger := zap.NewNop()
		ctx := WithLogger(context.Background(), logger)

		if FromContext(ctx) != logger {
			t.Error("Expected to retrieve the same logger from context")
		}
	})

	t.Run("context without logger", func(t *testing.T) {
		logger := FromContext(context.Background())
		if logger == nil {
			t.Fatal("Expected fallback logger to be created")
		}
		logger.Info("test message")
	})
}

func TestSetupContext(t *testing.T) {
	ctx, err := SetupContext(context.Background(), DebugLevel, JSONFormat)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	logger := FromContext(ctx)
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug to be enabled")
	}
	logger.Debug("debug message")
}
