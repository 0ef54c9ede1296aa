package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/landplots/backend/internal/infrastructure/config"
	"github.com/landplots/backend/internal/infrastructure/scheduler"
	"github.com/landplots/backend/internal/infrastructure/telemetry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "plots.db"),
		},
		Log: config.LogConfig{Level: "info"},
		Sync: config.SyncConfig{
			Enabled:       true,
			Workers:       1,
			QueueSize:     4,
			JobTimeout:    time.Second,
			RetryAttempts: 0,
			HistorySize:   4,
		},
	}
}

func TestNewApp_FailureClosesOpenedComponents(t *testing.T) {
	ctx := context.Background()
	providers, err := telemetry.Setup(ctx, telemetry.Config{}, zap.NewNop())
	require.NoError(t, err)

	cfg := testConfig(t)
	// fails after the database, sync stores and event bus are up
	cfg.Sync.PullInterval = -time.Minute

	core, logs := observer.New(zapcore.InfoLevel)
	a, err := newApp(ctx, cfg, providers, zap.New(core))

	require.ErrorIs(t, err, scheduler.ErrInvalidConfig)
	assert.Nil(t, a)
	assert.Equal(t, 1, logs.FilterMessage("event bus stopped").Len())
	assert.Equal(t, 1, logs.FilterMessage("Sheets push events").Len())
	assert.Zero(t, logs.FilterMessage("Error closing database").Len())
}

func TestApp_ClosePartial(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a := &app{log: zap.New(core)}

	assert.NotPanics(t, func() { a.close(context.Background()) })
	assert.Zero(t, logs.Len())
}
