package models

import "errors"

var (
	// ErrNotFound is returned when a job id is unknown to the store.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when a status change violates the
	// job state machine, including a second claim on an already claimed job.
	ErrInvalidTransition = errors.New("invalid job transition")
	// ErrQueueFull is returned when the work queue rejects an enqueue
	// because it is at maximum depth.
	ErrQueueFull = errors.New("work queue is full")
	// ErrNoInput is returned when a submission carries no usable file.
	ErrNoInput = errors.New("no input file provided")
)
