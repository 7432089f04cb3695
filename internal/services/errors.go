package services

import "errors"

var (
	// ErrInvalidRequest is returned when an analysis names no source.
	ErrInvalidRequest = errors.New("invalid analysis request")
	// ErrReportNotFound is returned for unknown report IDs.
	ErrReportNotFound = errors.New("report not found")
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotCancellable is returned when cancelling a finished job.
	ErrJobNotCancellable = errors.New("job cannot be cancelled")
	// ErrQueueFull is returned when the job queue has no room.
	ErrQueueFull = errors.New("job queue is full")
)
