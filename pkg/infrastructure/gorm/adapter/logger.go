package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mateusmacedo/expresso-van/pkg/application"
)

type gormLoggerAdapter struct {
	appLogger     application.AppLogger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(appLogger application.AppLogger, slowThreshold time.Duration) gormlogger.Interface {
	return &gormLoggerAdapter{
		appLogger:     appLogger,
		level:         gormlogger.Warn,
		slowThreshold: slowThreshold,
	}
}

func (l *gormLoggerAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLoggerAdapter) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.appLogger.Info(ctx, fmt.Sprintf(msg, args...), map[string]interface{}{"component": "gorm"})
	}
}

func (l *gormLoggerAdapter) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.appLogger.Warn(ctx, fmt.Sprintf(msg, args...), map[string]interface{}{"component": "gorm"})
	}
}

func (l *gormLoggerAdapter) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.appLogger.Error(ctx, fmt.Sprintf(msg, args...), map[string]interface{}{"component": "gorm"})
	}
}

func (l *gormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := map[string]interface{}{
		"component": "gorm",
		"sql":       sql,
		"rows":      rows,
		"elapsed":   elapsed.String(),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		application.LogError(ctx, l.appLogger, "query failed", err, fields)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		l.appLogger.Warn(ctx, "slow query", fields)
	case l.level >= gormlogger.Info:
		l.appLogger.Trace(ctx, "query", fields)
	}
}
