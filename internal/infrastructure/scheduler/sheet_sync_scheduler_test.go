package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/infrastructure/cache"
	"github.com/landplots/backend/internal/infrastructure/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedExecutor returns queued outcomes in order and can hold jobs at a gate
type scriptedExecutor struct {
	mu       sync.Mutex
	outcomes []error
	calls    []JobType
	gate     chan struct{}
	started  chan JobType
}

func (e *scriptedExecutor) Execute(ctx context.Context, job *SyncJob) (Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, job.Type)
	var err error
	if len(e.outcomes) > 0 {
		err, e.outcomes = e.outcomes[0], e.outcomes[1:]
	}
	gate, started := e.gate, e.started
	e.mu.Unlock()

	if started != nil {
		started <- job.Type
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Total: 2, Saved: 2}, nil
}

func (e *scriptedExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type recordedJob struct {
	jobType, status string
}

type recordingMetrics struct {
	mu   sync.Mutex
	jobs []recordedJob
}

func (m *recordingMetrics) RecordJob(_ context.Context, jobType, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, recordedJob{jobType, status})
}

func (m *recordingMetrics) RecordQueueDepth(context.Context, int) {}

func (m *recordingMetrics) recorded() []recordedJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedJob(nil), m.jobs...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.QueueSize = 4
	cfg.JobTimeout = 5 * time.Second
	cfg.RetryAttempts = 0
	cfg.RetryDelay = 5 * time.Millisecond
	return cfg
}

func startScheduler(t *testing.T, cfg Config, exec Executor, opts ...Option) *SheetSyncScheduler {
	t.Helper()
	s, err := NewSheetSyncScheduler(cfg, exec, zap.NewNop(), opts...)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitForStatus(t *testing.T, s *SheetSyncScheduler, jobType JobType, want JobStatus) SyncJob {
	t.Helper()
	var last SyncJob
	require.Eventually(t, func() bool {
		j, ok := s.LastJob(jobType)
		last = j
		return ok && j.Status == want
	}, 2*time.Second, 5*time.Millisecond, "last status %s", last.Status)
	return last
}

func TestSheetSyncScheduler_Push(t *testing.T) {
	metrics := &recordingMetrics{}
	exec := &scriptedExecutor{}
	s := startScheduler(t, testConfig(), exec, WithMetrics(metrics))

	require.NoError(t, s.EnqueuePush(context.Background(), "plot updated"))

	job := waitForStatus(t, s, JobTypePush, JobStatusSuccess)
	assert.Equal(t, "plot updated", job.Reason)
	assert.Equal(t, Result{Total: 2, Saved: 2}, job.Result)
	assert.NotNil(t, job.StartedAt)
	assert.Eventually(t, func() bool {
		return len(metrics.recorded()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, recordedJob{"PUSH", "SUCCESS"}, metrics.recorded()[0])
}

func TestSheetSyncScheduler_PushRequestsCoalesce(t *testing.T) {
	exec := &scriptedExecutor{gate: make(chan struct{}), started: make(chan JobType, 4)}
	s := startScheduler(t, testConfig(), exec)
	ctx := context.Background()

	require.NoError(t, s.EnqueuePush(ctx, "first"))
	<-exec.started

	// one push is running; the next two requests share a single queued job
	require.NoError(t, s.EnqueuePush(ctx, "second"))
	require.NoError(t, s.EnqueuePush(ctx, "third"))
	assert.Len(t, s.Jobs(0), 2)

	exec.gate <- struct{}{}
	<-exec.started
	exec.gate <- struct{}{}

	waitForStatus(t, s, JobTypePush, JobStatusSuccess)
	assert.Equal(t, 2, exec.callCount())
	assert.Equal(t, "second", s.Jobs(1)[0].Reason)
}

func TestSheetSyncScheduler_RetriesFailedJob(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 2
	exec := &scriptedExecutor{outcomes: []error{errors.New("timeout"), errors.New("timeout")}}
	s := startScheduler(t, cfg, exec)

	_, err := s.EnqueuePull(context.Background(), "manual")
	require.NoError(t, err)

	job := waitForStatus(t, s, JobTypePull, JobStatusSuccess)
	assert.Equal(t, 2, job.RetryCount)
	assert.Equal(t, 3, exec.callCount())
	assert.Empty(t, job.Error)
}

func TestSheetSyncScheduler_FailsWithoutRetries(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []error{errors.New("quota exceeded")}}
	s := startScheduler(t, testConfig(), exec)

	_, err := s.EnqueuePull(context.Background(), "manual")
	require.NoError(t, err)

	job := waitForStatus(t, s, JobTypePull, JobStatusFailed)
	assert.Equal(t, "quota exceeded", job.Error)
	assert.Equal(t, 1, exec.callCount())
}

func TestSheetSyncScheduler_SkippedJobIsCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.RetryAttempts = 3
	exec := &scriptedExecutor{outcomes: []error{ErrJobSkipped}}
	s := startScheduler(t, cfg, exec)

	require.NoError(t, s.EnqueuePush(context.Background(), "plot created"))

	job := waitForStatus(t, s, JobTypePush, JobStatusCancelled)
	assert.Zero(t, job.RetryCount)
	assert.Equal(t, 1, exec.callCount())
}

func TestSheetSyncScheduler_LockHeldElsewhere(t *testing.T) {
	locker := cache.NewLocalLocker()
	unlock, ok, err := locker.TryLock(context.Background(), SyncLockName, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = unlock(context.Background()) }()

	cfg := testConfig()
	cfg.RetryAttempts = 3
	exec := &scriptedExecutor{}
	s := startScheduler(t, cfg, exec, WithLocker(locker))
	_, err = s.EnqueuePull(context.Background(), "manual")
	require.NoError(t, err)

	job := waitForStatus(t, s, JobTypePull, JobStatusCancelled)
	assert.Contains(t, job.Error, ErrSyncInProgress.Error())
	assert.Zero(t, job.RetryCount)
	assert.Nil(t, job.NextRetryAt)
	assert.False(t, job.ShouldRetry())
	assert.Zero(t, exec.callCount())
}

func TestSheetSyncScheduler_PeriodicPull(t *testing.T) {
	cfg := testConfig()
	cfg.PullInterval = 10 * time.Millisecond
	exec := &scriptedExecutor{}
	s := startScheduler(t, cfg, exec)

	job := waitForStatus(t, s, JobTypePull, JobStatusSuccess)
	assert.Equal(t, "scheduled", job.Reason)
}

func TestSheetSyncScheduler_StopCancelsQueuedJobs(t *testing.T) {
	exec := &scriptedExecutor{gate: make(chan struct{}), started: make(chan JobType, 4)}
	s, err := NewSheetSyncScheduler(testConfig(), exec, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	running, err := s.EnqueuePull(context.Background(), "first")
	require.NoError(t, err)
	<-exec.started
	queued, err := s.EnqueuePull(context.Background(), "second")
	require.NoError(t, err)

	require.NoError(t, s.Stop(context.Background()))

	first, err := s.Job(running.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, first.Status)
	second, err := s.Job(queued.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCancelled, second.Status)

	_, err = s.EnqueuePull(context.Background(), "late")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestSheetSyncScheduler_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 1
	exec := &scriptedExecutor{gate: make(chan struct{}), started: make(chan JobType, 4)}
	s := startScheduler(t, cfg, exec)
	ctx := context.Background()

	_, err := s.EnqueuePull(ctx, "running")
	require.NoError(t, err)
	<-exec.started
	_, err = s.EnqueuePull(ctx, "queued")
	require.NoError(t, err)

	_, err = s.EnqueuePull(ctx, "overflow")
	assert.ErrorIs(t, err, ErrJobQueueFull)

	// a rejected push must not block later push requests
	assert.ErrorIs(t, s.EnqueuePush(ctx, "overflow"), ErrJobQueueFull)
	assert.ErrorIs(t, s.EnqueuePush(ctx, "overflow"), ErrJobQueueFull)
}

func TestSheetSyncScheduler_NotStarted(t *testing.T) {
	s, err := NewSheetSyncScheduler(testConfig(), &scriptedExecutor{}, zap.NewNop())
	require.NoError(t, err)

	assert.ErrorIs(t, s.EnqueuePush(context.Background(), "x"), ErrSchedulerNotRunning)
	assert.NoError(t, s.Stop(context.Background()))
	_, err = s.Job(NewSyncJob(JobTypePush, "", 0, t0).ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.PullInterval = -time.Second
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err := NewSheetSyncScheduler(cfg, &scriptedExecutor{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigFromSync(t *testing.T) {
	cfg := ConfigFromSync(config.SyncConfig{
		Workers:       2,
		JobTimeout:    time.Minute,
		RetryAttempts: 5,
		PullInterval:  time.Hour,
	})

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, DefaultConfig().QueueSize, cfg.QueueSize)
	assert.Equal(t, time.Minute, cfg.JobTimeout)
	assert.Equal(t, 2*time.Minute, cfg.LockTTL)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, time.Hour, cfg.PullInterval)
	assert.NoError(t, cfg.Validate())
}
