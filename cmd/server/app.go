package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/landplots/backend/internal/application/export"
	paymentapp "github.com/landplots/backend/internal/application/payment"
	plotapp "github.com/landplots/backend/internal/application/plot"
	reportapp "github.com/landplots/backend/internal/application/report"
	"github.com/landplots/backend/internal/infrastructure/cache"
	"github.com/landplots/backend/internal/infrastructure/config"
	"github.com/landplots/backend/internal/infrastructure/event"
	"github.com/landplots/backend/internal/infrastructure/logger"
	"github.com/landplots/backend/internal/infrastructure/migration"
	"github.com/landplots/backend/internal/infrastructure/persistence"
	"github.com/landplots/backend/internal/infrastructure/scheduler"
	"github.com/landplots/backend/internal/infrastructure/sheets"
	"github.com/landplots/backend/internal/infrastructure/storage"
	"github.com/landplots/backend/internal/infrastructure/telemetry"
	"github.com/landplots/backend/internal/interfaces/http/handler"
	"github.com/landplots/backend/internal/interfaces/http/router"
)

// app holds the long-lived components and knows how to stop them
type app struct {
	log *zap.Logger

	db        *persistence.Database
	dbMetrics *telemetry.DBMetrics
	stores    *cache.Stores
	bus       *event.InMemoryEventBus
	dedup     *event.DedupCounts
	scheduler *scheduler.SheetSyncScheduler
	gateway   *sheets.Gateway

	plots    *plotapp.PlotService
	payments *paymentapp.PaymentService
	reports  *reportapp.ReportsService
	archiver *export.Archiver
}

// newApp wires the components. On error whatever was opened is closed again.
func newApp(ctx context.Context, cfg *config.Config, providers *telemetry.Providers, log *zap.Logger) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.close(context.WithoutCancel(ctx))
		}
	}()

	if err := a.openDatabase(ctx, cfg, providers); err != nil {
		return nil, err
	}

	stores, err := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		return nil, err
	}
	a.stores = stores

	syncMetrics, err := telemetry.NewSyncMetrics(providers.Meter.Meter("sheets.sync"))
	if err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}

	a.gateway, err = sheets.NewGatewayFromConfig(ctx, sheets.FromConfig(cfg.Sheets), syncMetrics, log.Named("sheets"))
	if err != nil {
		return nil, err
	}

	if cfg.Sheets.Enabled && !a.gateway.Configured() {
		log.Warn("Google Sheets enabled but sheets.web_app_url is empty, starting with sheets disabled")
	}

	a.bus = event.NewInMemoryEventBus(log.Named("events"), event.WithAsync(2, 256))
	a.plots = plotapp.NewPlotService(a.gateway,
		plotapp.WithRepository(persistence.NewGormPlotRepository(a.db.DB)),
		plotapp.WithEventPublisher(a.bus),
		plotapp.WithLogger(log.Named("plots")),
		plotapp.WithBatchDelay(cfg.Sheets.BatchDelay),
		plotapp.WithSheetsEnabled(cfg.Sheets.Enabled && a.gateway.Configured()),
	)
	sheetsSync := plotapp.NewSheetsSyncHandler(a.gateway, a.plots.SheetsEnabled, log.Named("sheets"))
	a.dedup = &event.DedupCounts{}
	a.bus.Subscribe(event.NewIdempotentHandler(sheetsSync, stores.Idempotency, cfg.Sync.IdempotencyTTL, a.dedup, log))
	if err := a.bus.Start(ctx); err != nil {
		return nil, err
	}

	if cfg.Sync.Enabled {
		a.scheduler, err = scheduler.NewSheetSyncScheduler(
			scheduler.ConfigFromSync(cfg.Sync),
			scheduler.NewPlotSyncExecutor(a.plots, log.Named("sync")),
			log.Named("scheduler"),
			scheduler.WithLocker(stores.Locker),
			scheduler.WithMetrics(syncMetrics),
		)
		if err != nil {
			return nil, err
		}
		a.plots.SetSyncQueue(a.scheduler)
	}

	result, err := a.plots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load plots: %w", err)
	}
	log.Info("Plots loaded", zap.String("source", result.Source), zap.Int("count", result.Count))

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return nil, err
		}
	}

	a.payments = paymentapp.NewPaymentService(a.plots, log.Named("payments"))
	a.reports = reportapp.NewReportsService(log.Named("reports"))

	if err := a.openArchive(ctx, cfg.Storage); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openDatabase(ctx context.Context, cfg *config.Config, providers *telemetry.Providers) error {
	gormLog := logger.NewGormLogger(a.log, logger.GormConfigFor(cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	a.db = db

	dbSystem := "sqlite"
	if cfg.Database.Driver == config.DriverPostgres {
		dbSystem = "postgresql"
	}
	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, a.log)
	if err := tracing.RegisterOtelGorm(db.DB); err != nil {
		return fmt.Errorf("register db tracing: %w", err)
	}

	metricsCfg := telemetry.DefaultDBMetricsConfig()
	metricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	a.dbMetrics, err = telemetry.RegisterDBMetrics(db.DB, providers.Meter, metricsCfg, a.log)
	if err != nil {
		return fmt.Errorf("register db metrics: %w", err)
	}

	if cfg.Database.Driver == config.DriverSQLite {
		return persistence.AutoMigrate(db.DB.WithContext(ctx))
	}
	// not closed: the migrate driver would close the pool it was given
	m, err := migration.New(db.SQL(), a.log.Named("migrate"))
	if err != nil {
		return err
	}
	return m.Up()
}

func (a *app) openArchive(ctx context.Context, cfg config.StorageConfig) error {
	if !cfg.Enabled {
		a.archiver = export.NewArchiver(nil, cfg.Prefix, cfg.PresignExpiry)
		return nil
	}
	s3, err := storage.NewS3ObjectStorage(ctx, &cfg,
		storage.WithLogger(a.log.Named("storage")),
		storage.WithPresignExpiry(cfg.PresignExpiry),
	)
	if err != nil {
		return err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return err
	}
	a.archiver = export.NewArchiver(s3, cfg.Prefix, cfg.PresignExpiry)
	return nil
}

func (a *app) handlers(name, version string) router.Handlers {
	system := handler.NewSystemHandler(name, version)
	system.AddCheck("database", a.db)

	// a nil *SheetSyncScheduler must not become a non-nil interface
	var jobs handler.SyncJobs
	if a.scheduler != nil {
		jobs = a.scheduler
	}

	return router.Handlers{
		Plots:    handler.NewPlotHandler(a.plots),
		Payments: handler.NewPaymentHandler(a.payments),
		Reports:  handler.NewReportHandler(a.plots, a.reports),
		Exports:  handler.NewExportHandler(a.plots, a.payments, a.reports, a.archiver),
		Sync:     handler.NewSyncHandler(a.plots, jobs, a.gateway),
		System:   system,
	}
}

// close stops the components in reverse order of start. It copes with a
// partly built app.
func (a *app) close(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Warn("Sync scheduler stop", zap.Error(err))
		}
	}
	if a.bus != nil {
		if err := a.bus.Stop(ctx); err != nil {
			a.log.Warn("Event bus stop", zap.Error(err))
		}
	}
	if a.dedup != nil {
		a.log.Info("Sheets push events", zap.Any("dedup", a.dedup.Snapshot()))
	}
	if a.stores != nil {
		if err := a.stores.Close(); err != nil {
			a.log.Warn("Closing sync stores", zap.Error(err))
		}
	}
	if a.dbMetrics != nil {
		a.dbMetrics.Stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("Error closing database", zap.Error(err))
		}
	}
}
