package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	_, err := NewSyncMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestSyncMetrics_Record(t *testing.T) {
	reader, provider := newManualMeter(t)
	m, err := NewSyncMetrics(provider.Meter("sync"))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordRequest(ctx, "fetch", 300*time.Millisecond, nil)
	m.RecordRequest(ctx, "save", time.Second, errors.New("boom"))
	m.RecordRequest(ctx, "save", time.Second, nil)
	m.RecordPlots(ctx, "fetch", 12)
	m.RecordPlots(ctx, "save", 0)
	m.RecordJob(ctx, "push", "SUCCESS", 3*time.Second)
	m.RecordJob(ctx, "pull", "FAILED", time.Second)
	m.RecordQueueDepth(ctx, 2)

	got := collect(t, reader)
	reqs := got["sheets_requests_total"]
	assert.Equal(t, int64(1), sumFor(t, reqs, AttrOperation.String("fetch"), AttrOutcome.String(OutcomeSuccess)))
	assert.Equal(t, int64(1), sumFor(t, reqs, AttrOperation.String("save"), AttrOutcome.String(OutcomeFailure)))
	assert.Equal(t, int64(2), sumFor(t, reqs, AttrOperation.String("save")))
	assert.Equal(t, uint64(3), histogramCount(t, got["sheets_request_duration_seconds"]))

	assert.Equal(t, int64(12), sumFor(t, got["sheets_plots_total"]))
	assert.Equal(t, int64(0), sumFor(t, got["sheets_plots_total"], AttrOperation.String("save")))

	assert.Equal(t, int64(1), sumFor(t, got["sync_jobs_total"], AttrJobType.String("push"), AttrJobStatus.String("SUCCESS")))
	assert.Equal(t, uint64(1), histogramCount(t, got["sync_job_duration_seconds"], AttrJobType.String("pull")))

	depth, ok := gaugeFor(t, got["sync_queue_depth"])
	require.True(t, ok)
	assert.Equal(t, int64(2), depth)
}
