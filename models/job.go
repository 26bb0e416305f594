package models

import (
	"time"
)

// JobStatus represents the current state of a job in the system
type JobStatus string

const (
	StatusPending  JobStatus = "pending"
	StatusRunning  JobStatus = "running"
	StatusFinished JobStatus = "finished"
	StatusFailed   JobStatus = "failed"
)

// Valid returns true if the JobStatus is one of the known states.
func (s JobStatus) Valid() bool {
	return s == StatusPending || s == StatusRunning || s == StatusFinished || s == StatusFailed
}

// Terminal returns true if no further transitions are permitted from s.
func (s JobStatus) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next. The only legal steps are pending->running and running->finished or
// running->failed; a job must be claimed before it can complete.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusFinished || next == StatusFailed
	default:
		return false
	}
}

// Job represents one request to extract a bill of quantities from a drawing file
type Job struct {
	ID           string     `json:"id"`
	SourceFile   string     `json:"source_file"`
	Status       JobStatus  `json:"status"`
	Result       *BoQ       `json:"result,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Worker       string     `json:"worker,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the job so the store can hand out snapshots
// without exposing its internals to mutation.
func (j *Job) Clone() *Job {
	c := *j
	if j.Result != nil {
		r := *j.Result
		r.Items = make([]BoQItem, len(j.Result.Items))
		copy(r.Items, j.Result.Items)
		c.Result = &r
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
