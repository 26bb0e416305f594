package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/boqai/boq-server/models"
)

// MemoryStore is an in-process job store backed by a mutex-guarded map.
// The single lock serializes writes per record; reads hand out deep copies
// so callers never observe a half-applied transition.
type MemoryStore struct {
	mu       sync.RWMutex
	jobsByID map[string]*models.Job
	log      zerolog.Logger
}

// NewMemoryStore creates a new in-memory job store
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		jobsByID: make(map[string]*models.Job),
		log:      log.With().Str("component", "memory_store").Logger(),
	}
}

// Create inserts a new pending job for sourceFile
func (s *MemoryStore) Create(ctx context.Context, sourceFile string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// uuid collisions are practically impossible, but ids are the sole
	// lookup key so regenerate rather than overwrite.
	jobID := uuid.New().String()
	for {
		if _, exists := s.jobsByID[jobID]; !exists {
			break
		}
		jobID = uuid.New().String()
	}

	now := time.Now()
	job := &models.Job{
		ID:         jobID,
		SourceFile: sourceFile,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.jobsByID[jobID] = job

	s.log.Info().Str("job_id", jobID).Str("source_file", sourceFile).Msg("job created")
	return job.Clone(), nil
}

// Get retrieves a snapshot of a job by ID
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobsByID[id]
	if !exists {
		return nil, models.ErrNotFound
	}
	return job.Clone(), nil
}

// List returns snapshots of all jobs, optionally filtered by status
func (s *MemoryStore) List(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(s.jobsByID))
	for _, job := range s.jobsByID {
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, job.Clone())
	}
	return jobs, nil
}

// Transition atomically moves a job to the next status. The check-and-set
// happens under the write lock, so two workers racing to claim the same
// pending job resolve to exactly one success and one ErrInvalidTransition.
func (s *MemoryStore) Transition(ctx context.Context, id string, next models.JobStatus, payload TransitionPayload) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobsByID[id]
	if !exists {
		return nil, models.ErrNotFound
	}
	if !job.Status.CanTransitionTo(next) {
		return nil, models.ErrInvalidTransition
	}

	now := time.Now()
	job.Status = next
	job.UpdatedAt = now

	switch next {
	case models.StatusRunning:
		job.StartedAt = &now
		job.Worker = payload.Worker
	case models.StatusFinished:
		job.CompletedAt = &now
		job.Result = payload.Result
	case models.StatusFailed:
		job.CompletedAt = &now
		job.ErrorMessage = payload.Error
	}

	return job.Clone(), nil
}

// Delete removes a job record outright.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobsByID[id]; !exists {
		return models.ErrNotFound
	}
	delete(s.jobsByID, id)
	return nil
}

// PurgeTerminal removes finished and failed jobs whose last update is older
// than the given age, returning how many were dropped. Retention of terminal
// records is bounded so the store does not grow without limit.
func (s *MemoryStore) PurgeTerminal(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	purged := 0
	for id, job := range s.jobsByID {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobsByID, id)
			purged++
		}
	}
	if purged > 0 {
		s.log.Info().Int("purged", purged).Msg("purged terminal jobs")
	}
	return purged
}
