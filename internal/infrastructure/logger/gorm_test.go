package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGorm(cfg GormConfig) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), cfg), logs
}

func selectPlots() (string, int64) { return `SELECT * FROM "plots"`, 3 }

func TestGormConfigFor(t *testing.T) {
	for level, want := range map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Warn,
		"DEBUG":   gormlogger.Info,
		"unknown": gormlogger.Warn,
		"":        gormlogger.Warn,
	} {
		cfg := GormConfigFor(level, time.Second)
		assert.Equal(t, want, cfg.Level, level)
		assert.Equal(t, time.Second, cfg.SlowThreshold)
		assert.False(t, cfg.LogNotFound)
	}
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	l, _ := newObservedGorm(GormConfig{Level: gormlogger.Info})
	quiet, ok := l.LogMode(gormlogger.Silent).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, l.cfg.Level)
	assert.Equal(t, gormlogger.Silent, quiet.cfg.Level)
}

func TestGormLogger_Printf(t *testing.T) {
	l, logs := newObservedGorm(GormConfig{Level: gormlogger.Warn})
	ctx := context.Background()

	l.Info(ctx, "dropped %s", "info")
	l.Warn(ctx, "replacing %d plots", 290)
	l.Error(ctx, "migration %s", "failed")

	all := logs.AllUntimed()
	require.Len(t, all, 2)
	assert.Equal(t, "replacing 290 plots", all[0].Message)
	assert.Equal(t, zapcore.WarnLevel, all[0].Level)
	assert.Equal(t, "migration failed", all[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, all[1].Level)
}

func TestGormLogger_Trace(t *testing.T) {
	slow := 50 * time.Millisecond
	tests := []struct {
		name    string
		cfg     GormConfig
		begin   time.Time
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{"query at info", GormConfig{Level: gormlogger.Info, SlowThreshold: slow}, time.Now(), nil, "SQL", zapcore.DebugLevel},
		{"query below info", GormConfig{Level: gormlogger.Warn, SlowThreshold: slow}, time.Now(), nil, "", 0},
		{"slow query", GormConfig{Level: gormlogger.Warn, SlowThreshold: slow}, time.Now().Add(-time.Second), nil, "Slow SQL", zapcore.WarnLevel},
		{"slow check off", GormConfig{Level: gormlogger.Warn}, time.Now().Add(-time.Second), nil, "", 0},
		{"failure", GormConfig{Level: gormlogger.Error}, time.Now(), errors.New("disk full"), "SQL failed", zapcore.ErrorLevel},
		{"not found skipped", GormConfig{Level: gormlogger.Info}, time.Now(), gormlogger.ErrRecordNotFound, "", 0},
		{"not found kept", GormConfig{Level: gormlogger.Info, LogNotFound: true}, time.Now(), gormlogger.ErrRecordNotFound, "SQL failed", zapcore.ErrorLevel},
		{"silent", GormConfig{Level: gormlogger.Silent}, time.Now(), errors.New("disk full"), "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, logs := newObservedGorm(tt.cfg)
			l.Trace(context.Background(), tt.begin, selectPlots, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLvl, entry.Level)
			assert.Equal(t, `SELECT * FROM "plots"`, entry.ContextMap()["sql"])
			assert.Equal(t, int64(3), entry.ContextMap()["rows"])
		})
	}
}

func TestGormLogger_TraceCarriesRequestAndJob(t *testing.T) {
	l, logs := newObservedGorm(GormConfig{Level: gormlogger.Info})

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-1")
	ctx, _ = WithJobID(ctx, zap.NewNop(), "job-7")
	l.Trace(ctx, time.Now(), selectPlots, nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "job-7", fields["job_id"])
}
