package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/storefront/logger"
)

// gormLevels maps database.log_level to gorm's levels.
var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

func gormLevel(name string) gormlogger.LogLevel {
	if level, ok := gormLevels[name]; ok {
		return level
	}
	return gormlogger.Warn
}

// queryLogger routes gorm output through the service logger under the
// "gorm" component.
type queryLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLogger(log *logger.Logger, cfg Config) *queryLogger {
	slow, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	return &queryLogger{log: log.WithComponent("gorm"), level: gormLevel(cfg.LogLevel), slow: slow}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *queryLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed statements at error, slow ones at warn and the rest
// at debug when the level is info.
func (l *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	statement, rows := fc()
	fields := map[string]interface{}{"sql": statement, "rows": rows, "duration": elapsed.String()}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		l.log.Error("Statement failed", logger.MergeWithError(fields, err))
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		l.log.Warn("Slow statement", fields)
	case l.level >= gormlogger.Info:
		l.log.Debug("Statement", fields)
	}
}
