// Package logging configures the application's structured loggers.
// JSON logs go to stdout for machine consumption, per-service child
// loggers carry a 'service' attribute, and file loggers rotate via
// lumberjack.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const LevelFatal = slog.Level(12)

var levelNames = map[slog.Leveler]string{
	LevelFatal: "FATAL",
}

var (
	structuredLogger *slog.Logger
	levelVar         slog.LevelVar
	initOnce         sync.Once
)

// Init initializes the logging system. Safe to call more than once; only
// the first call takes effect.
func Init() {
	initOnce.Do(func() {
		levelVar.Set(slog.LevelInfo)
		handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       &levelVar,
			ReplaceAttr: replaceLevelNames,
		})
		structuredLogger = slog.New(handler)
		slog.SetDefault(structuredLogger)
	})
}

// SetLevel sets the minimum logging level for all loggers derived from
// the global handler.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		if label, ok := levelNames[level]; ok {
			a.Value = slog.StringValue(label)
		}
	}
	return a
}

// ForService creates a logger instance with the 'service' attribute added.
// Returns nil if Init() has not been called.
func ForService(serviceName string) *slog.Logger {
	if structuredLogger == nil {
		return nil
	}
	return structuredLogger.With("service", serviceName)
}

// Debug logs a debug message using the default slog logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message using the default slog logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message using the default slog logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message using the default slog logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal logs a message at the custom FATAL level and exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

// NewFileLogger creates a slog.Logger writing JSON logs to the given file
// path with lumberjack rotation, tagged with a 'service' attribute.
// It returns the logger, a close function for the underlying writer, and
// an error if setup fails.
func NewFileLogger(filePath, serviceName string, level slog.Level) (*slog.Logger, func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	handler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})
	logger := slog.New(handler).With("service", serviceName)

	return logger, logWriter.Close, nil
}
