package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// JobType is the direction of a sync job
type JobType string

const (
	JobTypePush JobType = "PUSH"
	JobTypePull JobType = "PULL"
)

// JobStatus represents the status of a sync job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSuccess   JobStatus = "SUCCESS"
	JobStatusPartial   JobStatus = "PARTIAL"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// maxRetryDelay caps the exponential backoff
const maxRetryDelay = 30 * time.Minute

// Result counts what a job did
type Result struct {
	Total  int `json:"total"`
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

// SyncJob is one push or pull between the plot list and the spreadsheet
type SyncJob struct {
	ID          uuid.UUID  `json:"id"`
	Type        JobType    `json:"type"`
	Reason      string     `json:"reason"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	Result      Result     `json:"result"`
}

// NewSyncJob creates a pending job
func NewSyncJob(jobType JobType, reason string, maxRetries int, now time.Time) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		Type:       jobType,
		Reason:     reason,
		Status:     JobStatusPending,
		CreatedAt:  now,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *SyncJob) Start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.CompletedAt = nil
	j.NextRetryAt = nil
	j.Error = ""
}

// Complete records the result; any failure downgrades the status
func (j *SyncJob) Complete(r Result, now time.Time) {
	j.Result = r
	j.CompletedAt = &now
	switch {
	case r.Failed == 0:
		j.Status = JobStatusSuccess
	case r.Saved > 0:
		j.Status = JobStatusPartial
	default:
		j.Status = JobStatusFailed
		j.Error = "no plots were saved"
	}
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string, now time.Time) {
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// Cancel marks the job as cancelled
func (j *SyncJob) Cancel(reason string, now time.Time) {
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.Error = reason
}

// ShouldRetry reports whether a failed job has retries left
func (j *SyncJob) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending and returns the backoff:
// base * 2^(retry-1), capped.
func (j *SyncJob) ScheduleRetry(base time.Duration, now time.Time) time.Duration {
	j.RetryCount++
	j.Status = JobStatusPending
	delay := base * time.Duration(1<<(j.RetryCount-1))
	if delay > maxRetryDelay || delay <= 0 {
		delay = maxRetryDelay
	}
	if base <= 0 {
		delay = 0
	}
	next := now.Add(delay)
	j.NextRetryAt = &next
	return delay
}

// Duration is the run time of a finished job
func (j *SyncJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// IsFinished reports whether the job reached a terminal status
func (j *SyncJob) IsFinished() bool {
	switch j.Status {
	case JobStatusSuccess, JobStatusPartial, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
