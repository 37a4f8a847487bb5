package gormdm

import (
	"context"
	"errors"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/johndauphine/go-dm/internal/logging"
)

// DefaultSlowThreshold is the duration above which queries are logged as
// warnings.
const DefaultSlowThreshold = 200 * time.Millisecond

// Logger sends gorm's log output to the logging package. SQL traces are
// logged at debug level.
type Logger struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

// NewLogger returns a logger whose gorm level follows the current logging
// level.
func NewLogger() *Logger {
	level := gormlogger.Warn
	switch logging.GetLevel() {
	case logging.LevelDebug:
		level = gormlogger.Info
	case logging.LevelError:
		level = gormlogger.Error
	}
	return &Logger{Level: level, SlowThreshold: DefaultSlowThreshold}
}

func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.Level = level
	return &c
}

func (l *Logger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Info {
		logging.Info(msg, args...)
	}
}

func (l *Logger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Warn {
		logging.Warn(msg, args...)
	}
}

func (l *Logger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Error {
		logging.Error(msg, args...)
	}
}

func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.Level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		sql, rows := fc()
		logging.Error("%s [%s, %d rows]: %v", sql, elapsed, rows, err)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.Level >= gormlogger.Warn:
		sql, rows := fc()
		logging.Warn("Slow query (%s > %s, %d rows): %s", elapsed, l.SlowThreshold, rows, sql)
	case l.Level >= gormlogger.Info:
		sql, rows := fc()
		logging.Debug("%s [%s, %d rows]", sql, elapsed, rows)
	}
}
