package queue

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boqai/boq-server/models"
)

// setupTestRedis returns a client against REDIS_ADDR (default
// localhost:6379) and skips the test when no server answers.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func testQueueKey(t *testing.T) string {
	return fmt.Sprintf("boq:test:%s:%d", t.Name(), time.Now().UnixNano())
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	q := NewRedisQueue(client, testQueueKey(t), 0)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	require.NoError(t, q.Enqueue(ctx, "job-2"))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	second, err := q.Dequeue(ctx)
	require.NoError(t, err)

	assert.Equal(t, "job-1", first)
	assert.Equal(t, "job-2", second)
}

func TestRedisQueue_QueueFull(t *testing.T) {
	client := setupTestRedis(t)
	q := NewRedisQueue(client, testQueueKey(t), 2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	require.NoError(t, q.Enqueue(ctx, "job-2"))
	assert.ErrorIs(t, q.Enqueue(ctx, "job-3"), models.ErrQueueFull)
}

func TestRedisQueue_DequeueHonorsCancellation(t *testing.T) {
	client := setupTestRedis(t)
	q := NewRedisQueue(client, testQueueKey(t), 0)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errc <- err
	}()

	cancel()
	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dequeue did not return on cancellation")
	}
}
