// Package logger provides the leveled logging helpers used across nisthourly.
// Messages go through log/slog. The text format uses a tint handler and the
// json format uses slog's JSON handler.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// LogLevel is a type representing the logging level.
// Smaller numbers indicate more detailed log levels.
type LogLevel int

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for potential issues.
	LevelWarn
	// LevelError is used for error messages.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

const (
	// FormatText renders human readable, colored lines.
	FormatText = "text"
	// FormatJSON renders one JSON object per line.
	FormatJSON = "json"
)

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	levelVar = new(slog.LevelVar)
	base     = newSlogLogger(os.Stderr, FormatText)
	exitFunc = os.Exit
)

func newSlogLogger(w io.Writer, format string) *slog.Logger {
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      levelVar,
		TimeFormat: time.DateTime,
		NoColor:    w != os.Stderr && w != os.Stdout,
	}))
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// An unknown value falls back to INFO and prints a notice.
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		logLevel = LevelDebug
		levelVar.Set(slog.LevelDebug)
	case "INFO":
		logLevel = LevelInfo
		levelVar.Set(slog.LevelInfo)
	case "WARN":
		logLevel = LevelWarn
		levelVar.Set(slog.LevelWarn)
	case "ERROR":
		logLevel = LevelError
		levelVar.Set(slog.LevelError)
	case "FATAL":
		logLevel = LevelFatal
		levelVar.Set(slog.LevelError + 4)
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		logLevel = LevelInfo
		levelVar.Set(slog.LevelInfo)
	}
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// SetOutput replaces the destination and format of all log records.
// format is "text" or "json"; anything else is treated as text.
func SetOutput(w io.Writer, format string) {
	mu.Lock()
	defer mu.Unlock()
	base = newSlogLogger(w, format)
}

// Slog returns the underlying structured logger for callers that want attributes.
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func logf(level LogLevel, slogLevel slog.Level, format string, v ...interface{}) {
	mu.RLock()
	enabled := logLevel <= level
	l := base
	mu.RUnlock()
	if !enabled {
		return
	}
	l.Log(context.Background(), slogLevel, fmt.Sprintf(format, v...))
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	logf(LevelDebug, slog.LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	logf(LevelInfo, slog.LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	logf(LevelWarn, slog.LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	logf(LevelError, slog.LevelError, format, v...)
}

// Fatalf outputs the message at the highest severity and terminates the process with exit code 1.
func Fatalf(format string, v ...interface{}) {
	mu.RLock()
	l := base
	mu.RUnlock()
	l.Log(context.Background(), slog.LevelError+4, fmt.Sprintf(format, v...))
	exitFunc(1)
}
