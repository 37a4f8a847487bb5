// Package logging provides leveled, process-wide logging backed by zap.
// Output is plain text ("2006-01-02 15:04:05 [INFO] msg") by default or
// JSON when SetFormat("json") is called. An optional rotating log file
// receives the same entries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents logging verbosity level
type Level int

const (
	// LevelError only logs errors
	LevelError Level = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs info, warnings, and errors (default)
	LevelInfo
	// LevelDebug logs everything including debug messages
	LevelDebug
)

// Logger provides leveled logging
type Logger struct {
	mu     sync.Mutex
	level  Level
	format string
	output io.Writer
	file   *lumberjack.Logger
	zl     *zap.Logger
}

var defaultLogger = newLogger()

func newLogger() *Logger {
	l := &Logger{
		level:  LevelInfo,
		format: "text",
		output: os.Stdout,
	}
	l.rebuild()
	return l
}

// ParseLevel converts a string to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown verbosity level: %s (valid: debug, info, warn, error)", s)
	}
}

// String returns the string representation of a level
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelError:
		return zapcore.ErrorLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel sets the global log level
func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = level
	defaultLogger.rebuild()
}

// SetOutput sets the output destination for logging. A nil writer
// restores stdout.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	defaultLogger.output = w
	defaultLogger.rebuild()
}

// SetFormat selects "text" or "json" output. Unknown formats fall back to text.
func SetFormat(format string) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	if strings.ToLower(format) == "json" {
		defaultLogger.format = "json"
	} else {
		defaultLogger.format = "text"
	}
	defaultLogger.rebuild()
}

// SetFile additionally writes log entries to path, rotating it once it
// reaches maxSizeMB. An empty path closes and detaches the current file.
func SetFile(path string, maxSizeMB int) error {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()

	if defaultLogger.file != nil {
		if err := defaultLogger.file.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
		defaultLogger.file = nil
	}
	if path != "" {
		if maxSizeMB <= 0 {
			maxSizeMB = 100
		}
		defaultLogger.file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
		}
	}
	defaultLogger.rebuild()
	return nil
}

// GetLevel returns the current log level
func GetLevel() Level {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	return defaultLogger.level
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	defaultLogger.log(LevelDebug, format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	defaultLogger.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	defaultLogger.log(LevelWarn, format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	defaultLogger.log(LevelError, format, args...)
}

// Print always prints regardless of level (for progress bars, summaries)
func Print(format string, args ...interface{}) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	fmt.Fprintf(defaultLogger.output, format, args...)
}

// Println always prints with newline regardless of level
func Println(args ...interface{}) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	fmt.Fprintln(defaultLogger.output, args...)
}

// Sync flushes buffered entries.
func Sync() error {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	return defaultLogger.zl.Sync()
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if strings.HasPrefix(msg, "\n") && l.format == "text" {
		// Handle leading newlines (preserve blank line formatting)
		msg = strings.TrimLeft(msg, "\n")
		fmt.Fprint(l.output, "\n")
	}
	msg = strings.TrimRight(msg, "\n")

	switch level {
	case LevelError:
		l.zl.Error(msg)
	case LevelWarn:
		l.zl.Warn(msg)
	case LevelInfo:
		l.zl.Info(msg)
	default:
		l.zl.Debug(msg)
	}
}

// rebuild recreates the zap logger from the current settings. Callers hold mu.
func (l *Logger) rebuild() {
	enc := l.encoder()
	lvl := l.level.zapLevel()

	core := zapcore.NewCore(enc, zapcore.AddSync(l.output), lvl)
	if l.file != nil {
		core = zapcore.NewTee(core, zapcore.NewCore(l.encoder(), zapcore.AddSync(l.file), lvl))
	}
	l.zl = zap.New(core)
}

func (l *Logger) encoder() zapcore.Encoder {
	if l.format == "json" {
		return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		})
	}
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      bracketLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
}

// bracketLevelEncoder renders levels as [INFO], [WARN], and so on.
func bracketLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

// Elapsed logs msg at debug level with the time since start.
func Elapsed(start time.Time, msg string) {
	Debug("%s (%s)", msg, time.Since(start).Round(time.Millisecond))
}

// IsDebug returns true if debug level is enabled
func IsDebug() bool {
	return GetLevel() >= LevelDebug
}

// IsInfo returns true if info level is enabled
func IsInfo() bool {
	return GetLevel() >= LevelInfo
}
