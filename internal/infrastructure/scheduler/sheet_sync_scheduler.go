package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/infrastructure/cache"
	"github.com/landplots/backend/internal/infrastructure/config"
	"github.com/landplots/backend/internal/infrastructure/logger"
	"github.com/landplots/backend/internal/infrastructure/telemetry"
)

// SyncLockName is the lock every push and pull holds while it runs
const SyncLockName = "plots-sync"

// Executor runs a single sync job
type Executor interface {
	Execute(ctx context.Context, job *SyncJob) (Result, error)
}

// Metrics receives job outcomes. *telemetry.SyncMetrics satisfies it.
type Metrics interface {
	RecordJob(ctx context.Context, jobType, status string, duration time.Duration)
	RecordQueueDepth(ctx context.Context, depth int)
}

type nopMetrics struct{}

func (nopMetrics) RecordJob(context.Context, string, string, time.Duration) {}
func (nopMetrics) RecordQueueDepth(context.Context, int)                    {}

// Config holds the sheet sync scheduler settings
type Config struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	HistorySize   int
	// PullInterval schedules periodic pulls; zero disables them
	PullInterval time.Duration
	LockTTL      time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Workers:       1,
		QueueSize:     32,
		JobTimeout:    10 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    30 * time.Second,
		HistorySize:   50,
		LockTTL:       15 * time.Minute,
	}
}

// ConfigFromSync maps the sync config section, keeping defaults for unset values
func ConfigFromSync(c config.SyncConfig) Config {
	cfg := DefaultConfig()
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	if c.QueueSize > 0 {
		cfg.QueueSize = c.QueueSize
	}
	if c.JobTimeout > 0 {
		cfg.JobTimeout = c.JobTimeout
		cfg.LockTTL = c.JobTimeout + time.Minute
	}
	if c.RetryAttempts >= 0 {
		cfg.RetryAttempts = c.RetryAttempts
	}
	if c.RetryDelay > 0 {
		cfg.RetryDelay = c.RetryDelay
	}
	if c.HistorySize > 0 {
		cfg.HistorySize = c.HistorySize
	}
	cfg.PullInterval = c.PullInterval
	return cfg
}

// Validate validates the configuration
func (c Config) Validate() error {
	switch {
	case c.Workers <= 0, c.QueueSize <= 0, c.HistorySize <= 0:
		return fmt.Errorf("%w: workers, queue size and history size must be positive", ErrInvalidConfig)
	case c.JobTimeout <= 0, c.LockTTL <= 0:
		return fmt.Errorf("%w: job timeout and lock ttl must be positive", ErrInvalidConfig)
	case c.RetryAttempts < 0, c.RetryDelay < 0, c.PullInterval < 0:
		return fmt.Errorf("%w: negative retry or interval", ErrInvalidConfig)
	}
	return nil
}

// Option configures a SheetSyncScheduler
type Option func(*SheetSyncScheduler)

// WithMetrics records job outcomes and queue depth
func WithMetrics(m Metrics) Option {
	return func(s *SheetSyncScheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLocker serialises jobs across processes sharing the locker
func WithLocker(l cache.Locker) Option {
	return func(s *SheetSyncScheduler) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *SheetSyncScheduler) {
		s.now = now
	}
}

// SheetSyncScheduler runs pushes and pulls against the spreadsheet on a
// small worker pool. Pushes requested while one is still queued are merged.
type SheetSyncScheduler struct {
	config   Config
	executor Executor
	locker   cache.Locker
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	pushQueued atomic.Bool

	historyMu sync.RWMutex
	history   []*SyncJob
}

// NewSheetSyncScheduler creates a scheduler; it runs nothing until Start
func NewSheetSyncScheduler(cfg Config, executor Executor, logger *zap.Logger, opts ...Option) (*SheetSyncScheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &SheetSyncScheduler{
		config:   cfg,
		executor: executor,
		locker:   cache.NewLocalLocker(),
		metrics:  nopMetrics{},
		logger:   logger,
		now:      time.Now,
		jobs:     make(chan *SyncJob, cfg.QueueSize),
		history:  make([]*SyncJob, 0, cfg.HistorySize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the workers and, when configured, the pull ticker
func (s *SheetSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	if s.config.PullInterval > 0 {
		s.wg.Add(1)
		go s.pullLoop(ctx)
	}

	s.logger.Info("Sheet sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Duration("pull_interval", s.config.PullInterval),
	)
	return nil
}

// Stop cancels running jobs, marks queued ones cancelled and waits for the
// workers, bounded by ctx.
func (s *SheetSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	close(s.jobs)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Sheet sync scheduler stop timed out")
		return ctx.Err()
	}

	for job := range s.jobs {
		s.update(job, func(j *SyncJob) { j.Cancel("scheduler stopped", s.now()) })
	}
	s.logger.Info("Sheet sync scheduler stopped")
	return nil
}

// EnqueuePush queues a full push. A push that is queued and not yet
// running absorbs later requests.
func (s *SheetSyncScheduler) EnqueuePush(ctx context.Context, reason string) error {
	if !s.pushQueued.CompareAndSwap(false, true) {
		logger.WithTraceContext(ctx, s.logger).Debug("Push already queued", zap.String("reason", reason))
		return nil
	}
	if _, err := s.Submit(ctx, JobTypePush, reason); err != nil {
		s.pushQueued.Store(false)
		return err
	}
	return nil
}

// EnqueuePull queues a pull from the spreadsheet
func (s *SheetSyncScheduler) EnqueuePull(ctx context.Context, reason string) (*SyncJob, error) {
	return s.Submit(ctx, JobTypePull, reason)
}

// Submit queues a new job and returns a snapshot of it
func (s *SheetSyncScheduler) Submit(ctx context.Context, jobType JobType, reason string) (*SyncJob, error) {
	job := NewSyncJob(jobType, reason, s.config.RetryAttempts, s.now())
	if err := s.enqueue(job); err != nil {
		return nil, err
	}
	s.addToHistory(job)
	logger.WithTraceContext(ctx, s.logger).Debug("Sync job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("type", string(job.Type)),
		zap.String("reason", reason),
	)
	return s.snapshot(job), nil
}

func (s *SheetSyncScheduler) enqueue(job *SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *SheetSyncScheduler) pullLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Submit(ctx, JobTypePull, "scheduled"); err != nil {
				s.logger.Warn("Failed to schedule pull", zap.Error(err))
			}
		}
	}
}

func (s *SheetSyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				s.update(job, func(j *SyncJob) { j.Cancel("scheduler stopped", s.now()) })
				return
			}
			s.metrics.RecordQueueDepth(ctx, len(s.jobs))
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *SheetSyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	if job.Type == JobTypePush {
		// changes made from here on need another push
		s.pushQueued.Store(false)
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	jobCtx, log := logger.WithJobID(jobCtx, s.logger, job.ID.String())
	jobCtx, span := telemetry.StartSpan(jobCtx, "sync."+string(job.Type),
		telemetry.WithAttribute(telemetry.SpanAttrJobID, job.ID.String()))
	defer span.End()

	s.update(job, func(j *SyncJob) { j.Start(s.now()) })
	log.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("type", string(job.Type)),
		zap.Int("retry", job.RetryCount),
	)

	result, err := s.run(jobCtx, job)

	var snap *SyncJob
	switch {
	case errors.Is(err, ErrJobSkipped):
		snap = s.update(job, func(j *SyncJob) { j.Cancel(err.Error(), s.now()) })
		log.Info("Sync job skipped", zap.Error(err))
	case err != nil:
		snap = s.update(job, func(j *SyncJob) { j.Fail(err.Error(), s.now()) })
		telemetry.RecordError(span, err)
		log.Error("Sync job failed", zap.Error(err))
	default:
		snap = s.update(job, func(j *SyncJob) { j.Complete(result, s.now()) })
		telemetry.SetAttributes(span, telemetry.SpanAttrPlotCount, result.Total)
		log.Info("Sync job completed",
			zap.String("status", string(snap.Status)),
			zap.Int("total", result.Total),
			zap.Int("saved", result.Saved),
			zap.Int("failed", result.Failed),
		)
	}
	s.metrics.RecordJob(ctx, string(snap.Type), string(snap.Status), snap.Duration())

	if snap.ShouldRetry() && ctx.Err() == nil {
		s.retryLater(ctx, job, log)
	}
}

// run holds the sync lock around the executor
func (s *SheetSyncScheduler) run(ctx context.Context, job *SyncJob) (Result, error) {
	unlock, ok, err := s.locker.TryLock(ctx, SyncLockName, s.config.LockTTL)
	if err != nil {
		return Result{}, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		// another instance is syncing; retrying would only race it
		return Result{}, fmt.Errorf("%w: %w", ErrJobSkipped, ErrSyncInProgress)
	}
	defer func() {
		// the job context may already be done
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.L(ctx).Warn("Failed to release sync lock", zap.Error(err))
		}
	}()
	return s.executor.Execute(ctx, job)
}

func (s *SheetSyncScheduler) retryLater(ctx context.Context, job *SyncJob, log *zap.Logger) {
	var delay time.Duration
	snap := s.update(job, func(j *SyncJob) { delay = j.ScheduleRetry(s.config.RetryDelay, s.now()) })
	log.Info("Sync job scheduled for retry",
		zap.Int("retry_count", snap.RetryCount),
		zap.Int("max_retries", snap.MaxRetries),
		zap.Duration("delay", delay),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			s.update(job, func(j *SyncJob) { j.Cancel("scheduler stopped", s.now()) })
			return
		case <-timer.C:
		}
		if err := s.enqueue(job); err != nil {
			s.update(job, func(j *SyncJob) { j.Fail("retry not queued: "+err.Error(), s.now()) })
			log.Warn("Failed to re-queue sync job", zap.Error(err))
		}
	}()
}

// update mutates a job under the history lock and returns a snapshot
func (s *SheetSyncScheduler) update(job *SyncJob, fn func(*SyncJob)) *SyncJob {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	fn(job)
	cp := *job
	return &cp
}

func (s *SheetSyncScheduler) snapshot(job *SyncJob) *SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	cp := *job
	return &cp
}

func (s *SheetSyncScheduler) addToHistory(job *SyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append([]*SyncJob{job}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

// Jobs returns snapshots of recent jobs, newest first
func (s *SheetSyncScheduler) Jobs(limit int) []SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]SyncJob, limit)
	for i := 0; i < limit; i++ {
		out[i] = *s.history[i]
	}
	return out
}

// Job returns a snapshot of one job from the history
func (s *SheetSyncScheduler) Job(id uuid.UUID) (SyncJob, error) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	for _, j := range s.history {
		if j.ID == id {
			return *j, nil
		}
	}
	return SyncJob{}, ErrJobNotFound
}

// LastJob returns the newest job of a type, if any
func (s *SheetSyncScheduler) LastJob(jobType JobType) (SyncJob, bool) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	for _, j := range s.history {
		if j.Type == jobType {
			return *j, true
		}
	}
	return SyncJob{}, false
}

// QueueDepth returns the number of jobs waiting for a worker
func (s *SheetSyncScheduler) QueueDepth() int {
	return len(s.jobs)
}
