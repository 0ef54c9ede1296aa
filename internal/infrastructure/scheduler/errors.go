package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrJobNotFound is returned when a job id is not in the history
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSyncInProgress is returned when another sync holds the lock
	ErrSyncInProgress = errors.New("plot sync already in progress")

	// ErrJobSkipped marks a job that had nothing to do, e.g. with sheets off
	ErrJobSkipped = errors.New("sync job skipped")
)
