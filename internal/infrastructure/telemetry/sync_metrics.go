package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when an instrument set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Outcome attribute values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// SyncMetrics records spreadsheet round-trips and background sync jobs.
type SyncMetrics struct {
	requests        *Counter
	requestDuration *Histogram
	plots           *Counter
	jobs            *Counter
	jobDuration     *Histogram
	queueDepth      *Gauge
}

// NewSyncMetrics creates the instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	requests, err := NewCounter(meter, "sheets_requests_total", "Spreadsheet requests by operation and outcome", "{request}")
	if err != nil {
		return nil, err
	}
	requestDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "sheets_request_duration_seconds",
		Description: "Spreadsheet request latency in seconds",
		Unit:        "s",
		Boundaries:  RemoteDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	plots, err := NewCounter(meter, "sheets_plots_total", "Plots transferred to or from the spreadsheet", "{plot}")
	if err != nil {
		return nil, err
	}
	jobs, err := NewCounter(meter, "sync_jobs_total", "Finished sync jobs by type and status", "{job}")
	if err != nil {
		return nil, err
	}
	jobDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "sync_job_duration_seconds",
		Description: "Sync job run time in seconds",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	queueDepth, err := NewGauge(meter, "sync_queue_depth", "Jobs waiting for a worker", "{job}")
	if err != nil {
		return nil, err
	}
	return &SyncMetrics{
		requests:        requests,
		requestDuration: requestDuration,
		plots:           plots,
		jobs:            jobs,
		jobDuration:     jobDuration,
		queueDepth:      queueDepth,
	}, nil
}

// RecordRequest records one spreadsheet call.
func (m *SyncMetrics) RecordRequest(ctx context.Context, operation string, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.requests.Inc(ctx, AttrOperation.String(operation), AttrOutcome.String(outcome))
	m.requestDuration.RecordDuration(ctx, duration, AttrOperation.String(operation))
}

// RecordPlots counts plots moved by operation.
func (m *SyncMetrics) RecordPlots(ctx context.Context, operation string, count int) {
	if count <= 0 {
		return
	}
	m.plots.Add(ctx, int64(count), AttrOperation.String(operation))
}

// RecordJob records a finished job.
func (m *SyncMetrics) RecordJob(ctx context.Context, jobType, status string, duration time.Duration) {
	m.jobs.Inc(ctx, AttrJobType.String(jobType), AttrJobStatus.String(status))
	m.jobDuration.RecordDuration(ctx, duration, AttrJobType.String(jobType))
}

// RecordQueueDepth records the number of queued jobs.
func (m *SyncMetrics) RecordQueueDepth(ctx context.Context, depth int) {
	m.queueDepth.Record(ctx, int64(depth))
}
