package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig tunes the GORM logger
type GormConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration // 0 disables slow query warnings
	LogNotFound   bool          // gorm.ErrRecordNotFound is an expected miss for plot lookups
}

// GormConfigFor derives the GORM config from the application log level.
// Statements are only traced at debug; other levels keep warnings and errors.
func GormConfigFor(level string, slow time.Duration) GormConfig {
	cfg := GormConfig{Level: gormlogger.Warn, SlowThreshold: slow}
	switch strings.ToLower(level) {
	case "silent":
		cfg.Level = gormlogger.Silent
	case "error":
		cfg.Level = gormlogger.Error
	case "debug":
		cfg.Level = gormlogger.Info
	}
	return cfg
}

// GormLogger writes GORM output to zap. Statements run inside a request or
// a sync job carry its id and the active trace.
type GormLogger struct {
	log *zap.Logger
	cfg GormConfig
}

var _ gormlogger.Interface = (*GormLogger)(nil)

func NewGormLogger(log *zap.Logger, cfg GormConfig) *GormLogger {
	return &GormLogger{log: log.Named("gorm"), cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.cfg.Level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.cfg.Level < min {
		return
	}
	l.contextual(ctx).Log(lvl, fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement: failures at error, slow statements at
// warn and everything else at debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case err != nil:
		if l.cfg.Level < gormlogger.Error || (!l.cfg.LogNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)) {
			return
		}
		lvl, msg = zapcore.ErrorLevel, "SQL failed"
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold:
		if l.cfg.Level < gormlogger.Warn {
			return
		}
		lvl, msg = zapcore.WarnLevel, "Slow SQL"
	default:
		if l.cfg.Level < gormlogger.Info {
			return
		}
		lvl, msg = zapcore.DebugLevel, "SQL"
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	} else if lvl == zapcore.WarnLevel {
		fields = append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))
	}
	l.contextual(ctx).Log(lvl, msg, fields...)
}

func (l *GormLogger) contextual(ctx context.Context) *zap.Logger {
	log := WithTraceContext(ctx, l.log)
	if id := GetRequestID(ctx); id != "" {
		log = log.With(zap.String("request_id", id))
	}
	if id := GetJobID(ctx); id != "" {
		log = log.With(zap.String("job_id", id))
	}
	return log
}
