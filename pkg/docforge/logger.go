package docforge

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	globalLogger     *slog.Logger
	globalLevel      = new(slog.LevelVar)
	globalLoggerMu   sync.RWMutex
	globalLoggerOnce sync.Once
)

func initGlobalLogger() {
	globalLoggerOnce.Do(func() {
		config := GetGlobalConfig()
		globalLevel.Set(ParseLogLevel(config.LogLevel))
		logger := newHandlerLogger(os.Stderr, globalLevel, config.LogFormat)
		globalLoggerMu.Lock()
		if globalLogger == nil {
			globalLogger = logger
		}
		globalLoggerMu.Unlock()
	})
}

// ParseLogLevel maps a level name to a slog level, defaulting to info.
func ParseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a slog.Logger writing to w in the given format
// ("text" or "json"). It does not replace the package logger.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	return newHandlerLogger(w, level, format)
}

func newHandlerLogger(w io.Writer, level slog.Leveler, format string) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("component", "docforge")
}

// SetLogger replaces the package logger used by engines created without
// an explicit logger.
func SetLogger(logger *slog.Logger) {
	initGlobalLogger()
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = logger
}

// GetLogger returns the package logger.
func GetLogger() *slog.Logger {
	initGlobalLogger()
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// UpdateLoggerFromConfig updates the package log level from the current global configuration
func UpdateLoggerFromConfig() {
	initGlobalLogger()
	globalLevel.Set(ParseLogLevel(GetGlobalConfig().LogLevel))
}

// discardLogger drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
