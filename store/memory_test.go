package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boqai/boq-server/models"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(zerolog.Nop())
}

func TestMemoryStore_Create(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	job, err := s.Create(ctx, "drawings/plan.dwg")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.Equal(t, "drawings/plan.dwg", job.SourceFile)
	assert.Nil(t, job.Result)
	assert.Empty(t, job.ErrorMessage)

	// Visible to reads immediately, before any worker touches it.
	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestMemoryStore_Create_UniqueIDs(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		job, err := s.Create(ctx, "a.dwg")
		require.NoError(t, err)
		assert.False(t, seen[job.ID], "duplicate job id %s", job.ID)
		seen[job.ID] = true
	}
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	s := newTestStore()

	_, err := s.Get(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_Get_Idempotent(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	job, err := s.Create(ctx, "a.dwg")
	require.NoError(t, err)

	first, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	second, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMemoryStore_Transition_FullLifecycle(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	job, err := s.Create(ctx, "a.dwg")
	require.NoError(t, err)

	running, err := s.Transition(ctx, job.ID, models.StatusRunning, TransitionPayload{Worker: "worker-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, running.Status)
	assert.Equal(t, "worker-1", running.Worker)
	require.NotNil(t, running.StartedAt)

	result := &models.BoQ{File: "a.dwg", Items: []models.BoQItem{{ItemCode: "A001", Description: "Mock Item", Quantity: 1, Unit: "m"}}}
	finished, err := s.Transition(ctx, job.ID, models.StatusFinished, TransitionPayload{Result: result})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, finished.Status)
	require.NotNil(t, finished.Result)
	assert.Equal(t, result.Items, finished.Result.Items)
	assert.Empty(t, finished.ErrorMessage)
	require.NotNil(t, finished.CompletedAt)
}

func TestMemoryStore_Transition_FailureAttachesError(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	job, err := s.Create(ctx, "a.dwg")
	require.NoError(t, err)

	_, err = s.Transition(ctx, job.ID, models.StatusRunning, TransitionPayload{Worker: "worker-1"})
	require.NoError(t, err)

	failed, err := s.Transition(ctx, job.ID, models.StatusFailed, TransitionPayload{Error: "parse error"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, "parse error", failed.ErrorMessage)
	assert.Nil(t, failed.Result)
}

func TestMemoryStore_Transition_Rejections(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, err := s.Transition(ctx, "no-such-job", models.StatusRunning, TransitionPayload{})
	assert.ErrorIs(t, err, models.ErrNotFound)

	job, err := s.Create(ctx, "a.dwg")
	require.NoError(t, err)

	// A job cannot skip the claim.
	_, err = s.Transition(ctx, job.ID, models.StatusFinished, TransitionPayload{})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = s.Transition(ctx, job.ID, models.StatusRunning, TransitionPayload{Worker: "worker-1"})
	require.NoError(t, err)

	// Second claim loses.
	_, err = s.Transition(ctx, job.ID, models.StatusRunning, TransitionPayload{Worker: "worker-2"})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = s.Transition(ctx, job.ID, models.StatusFinished, TransitionPayload{Result: &models.BoQ{File: "a.dwg"}})
	require.NoError(t, err)

	// Terminal records are immutable.
	_, err = s.Transition(ctx, job.ID, models.StatusFailed, TransitionPayload{Error: "late"})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, got.Status)
}

func TestMemoryStore_Transition_AtMostOneClaim(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	job, err := s.Create(ctx, "a.dwg")
	require.NoError(t, err)

	const claimers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejects   int
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Transition(ctx, job.ID, models.StatusRunning, TransitionPayload{Worker: "racer"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrInvalidTransition):
				rejects++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, claimers-1, rejects)
}

func TestMemoryStore_List(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	a, err := s.Create(ctx, "a.dwg")
	require.NoError(t, err)
	_, err = s.Create(ctx, "b.dwg")
	require.NoError(t, err)

	_, err = s.Transition(ctx, a.ID, models.StatusRunning, TransitionPayload{Worker: "worker-1"})
	require.NoError(t, err)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := s.List(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b.dwg", pending[0].SourceFile)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	job, err := s.Create(ctx, "a.dwg")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, job.ID))
	_, err = s.Get(ctx, job.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, job.ID), models.ErrNotFound)
}

func TestMemoryStore_PurgeTerminal(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	done, err := s.Create(ctx, "done.dwg")
	require.NoError(t, err)
	_, err = s.Transition(ctx, done.ID, models.StatusRunning, TransitionPayload{Worker: "worker-1"})
	require.NoError(t, err)
	_, err = s.Transition(ctx, done.ID, models.StatusFinished, TransitionPayload{Result: &models.BoQ{File: "done.dwg"}})
	require.NoError(t, err)

	fresh, err := s.Create(ctx, "fresh.dwg")
	require.NoError(t, err)

	// Nothing is old enough yet.
	assert.Equal(t, 0, s.PurgeTerminal(time.Hour))

	// With a zero retention every terminal record qualifies; pending jobs stay.
	assert.Equal(t, 1, s.PurgeTerminal(0))

	_, err = s.Get(ctx, done.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
