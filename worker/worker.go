// Package worker runs the consumers that turn queued job ids into executed
// extractions. Each worker processes one job at a time; workers run in
// parallel with each other and with the submission service.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/boqai/boq-server/extractor"
	"github.com/boqai/boq-server/models"
	"github.com/boqai/boq-server/queue"
	"github.com/boqai/boq-server/store"
)

// Notifier is called with a snapshot after every committed transition,
// e.g. to push updates to WebSocket clients.
type Notifier func(job *models.Job)

// Worker consumes jobs from the queue and records outcomes in the store.
type Worker struct {
	ID        string
	queue     queue.Queue
	store     store.Store
	extractor extractor.Extractor

	// Timeout bounds a single extraction; zero means no limit, matching
	// the base contract where a task may take arbitrarily long.
	Timeout time.Duration

	notify Notifier
	log    zerolog.Logger
}

// New creates a worker instance
func New(id string, q queue.Queue, s store.Store, e extractor.Extractor, log zerolog.Logger) *Worker {
	return &Worker{
		ID:        id,
		queue:     q,
		store:     s,
		extractor: e,
		log:       log.With().Str("component", "worker").Str("worker_id", id).Logger(),
	}
}

// SetNotifier installs a callback invoked after each committed transition.
func (w *Worker) SetNotifier(n Notifier) {
	w.notify = n
}

// Run processes jobs until ctx is cancelled. It returns a non-nil error
// only for infrastructure failures (queue or store gone), which the caller
// should treat as fatal for this worker.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Msg("worker starting")

	for {
		jobID, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				w.log.Info().Msg("worker stopping")
				return nil
			}
			return fmt.Errorf("dequeue: %w", err)
		}

		if err := w.process(ctx, jobID); err != nil {
			return err
		}
	}
}

// process claims the job, runs the extractor, and records the outcome.
// An extraction failure is captured on the job record and never returned;
// only store failures bubble up.
func (w *Worker) process(ctx context.Context, jobID string) error {
	job, err := w.store.Transition(ctx, jobID, models.StatusRunning, store.TransitionPayload{Worker: w.ID})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidTransition):
			// Redelivered or already claimed elsewhere; drop it.
			w.log.Warn().Str("job_id", jobID).Msg("claim rejected, discarding delivery")
			return nil
		case errors.Is(err, models.ErrNotFound):
			w.log.Warn().Str("job_id", jobID).Msg("queued job unknown to store, discarding")
			return nil
		default:
			return fmt.Errorf("claim job %s: %w", jobID, err)
		}
	}
	w.emit(job)

	w.log.Info().Str("job_id", jobID).Str("source_file", job.SourceFile).Msg("processing job")

	result, extractErr := w.runExtractor(ctx, job.SourceFile)

	if extractErr != nil {
		w.log.Error().Err(extractErr).Str("job_id", jobID).Msg("extraction failed")
		job, err = w.store.Transition(ctx, jobID, models.StatusFailed, store.TransitionPayload{Error: extractErr.Error()})
	} else {
		w.log.Info().Str("job_id", jobID).Int("items", len(result.Items)).Msg("extraction finished")
		job, err = w.store.Transition(ctx, jobID, models.StatusFinished, store.TransitionPayload{Result: result})
	}
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) || errors.Is(err, models.ErrNotFound) {
			// Should not happen while this worker holds the claim.
			w.log.Error().Err(err).Str("job_id", jobID).Msg("could not record job outcome")
			return nil
		}
		return fmt.Errorf("record outcome for job %s: %w", jobID, err)
	}
	w.emit(job)

	return nil
}

func (w *Worker) runExtractor(ctx context.Context, sourceFile string) (*models.BoQ, error) {
	if w.Timeout <= 0 {
		return w.extractor.Extract(ctx, sourceFile)
	}
	runCtx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	return w.extractor.Extract(runCtx, sourceFile)
}

func (w *Worker) emit(job *models.Job) {
	if w.notify != nil && job != nil {
		w.notify(job)
	}
}

// Pool runs a fixed number of workers over the same queue and store.
type Pool struct {
	workers []*Worker
	log     zerolog.Logger
}

// NewPool creates size workers named worker-1..worker-N.
func NewPool(size int, q queue.Queue, s store.Store, e extractor.Extractor, log zerolog.Logger) *Pool {
	workers := make([]*Worker, size)
	for i := range workers {
		workers[i] = New(fmt.Sprintf("worker-%d", i+1), q, s, e, log)
	}
	return &Pool{workers: workers, log: log.With().Str("component", "worker_pool").Logger()}
}

// SetNotifier installs the callback on every worker in the pool.
func (p *Pool) SetNotifier(n Notifier) {
	for _, w := range p.workers {
		w.SetNotifier(n)
	}
}

// SetTimeout bounds each extraction on every worker in the pool.
func (p *Pool) SetTimeout(d time.Duration) {
	for _, w := range p.workers {
		w.Timeout = d
	}
}

// Start launches every worker in its own goroutine. A worker that stops
// with an infrastructure error is logged as fatal for that worker; the
// surrounding supervisor restarts the process.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go func(w *Worker) {
			if err := w.Run(ctx); err != nil {
				p.log.Error().Err(err).Str("worker_id", w.ID).Msg("worker terminated")
			}
		}(w)
	}
	p.log.Info().Int("workers", len(p.workers)).Msg("worker pool started")
}
