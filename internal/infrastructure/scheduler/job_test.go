package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func TestNewSyncJob(t *testing.T) {
	job := NewSyncJob(JobTypePush, "plot updated", 3, t0)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxRetries)
	assert.Equal(t, t0, job.CreatedAt)
	assert.Nil(t, job.StartedAt)
	assert.False(t, job.IsFinished())
}

func TestSyncJob_Complete(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   JobStatus
	}{
		{"all saved", Result{Total: 5, Saved: 5}, JobStatusSuccess},
		{"nothing to do", Result{}, JobStatusSuccess},
		{"some failed", Result{Total: 5, Saved: 3, Failed: 2}, JobStatusPartial},
		{"all failed", Result{Total: 5, Failed: 5}, JobStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewSyncJob(JobTypePush, "", 0, t0)
			job.Start(t0)
			job.Complete(tt.result, t0.Add(2*time.Second))

			assert.Equal(t, tt.want, job.Status)
			assert.Equal(t, tt.result, job.Result)
			assert.Equal(t, 2*time.Second, job.Duration())
			assert.True(t, job.IsFinished())
		})
	}
}

func TestSyncJob_StartClearsPreviousError(t *testing.T) {
	job := NewSyncJob(JobTypePull, "", 1, t0)
	job.Fail("timeout", t0)
	job.ScheduleRetry(time.Second, t0)

	job.Start(t0.Add(time.Second))

	assert.Equal(t, JobStatusRunning, job.Status)
	assert.Empty(t, job.Error)
	assert.Nil(t, job.NextRetryAt)
	assert.Nil(t, job.CompletedAt)
}

func TestSyncJob_RetryBackoff(t *testing.T) {
	job := NewSyncJob(JobTypePush, "", 3, t0)

	var delays []time.Duration
	for job.Fail("boom", t0); job.ShouldRetry(); job.Fail("boom", t0) {
		delays = append(delays, job.ScheduleRetry(10*time.Second, t0))
		assert.Equal(t, JobStatusPending, job.Status)
	}

	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second}, delays)
	assert.Equal(t, 3, job.RetryCount)
	assert.Equal(t, t0.Add(40*time.Second), *job.NextRetryAt)
}

func TestSyncJob_RetryBackoffCapped(t *testing.T) {
	job := NewSyncJob(JobTypePush, "", 10, t0)
	job.RetryCount = 8

	assert.Equal(t, maxRetryDelay, job.ScheduleRetry(time.Minute, t0))
}

func TestSyncJob_Cancel(t *testing.T) {
	job := NewSyncJob(JobTypePush, "", 3, t0)
	job.Cancel("scheduler stopped", t0)

	assert.Equal(t, JobStatusCancelled, job.Status)
	assert.False(t, job.ShouldRetry())
	assert.True(t, job.IsFinished())
}
