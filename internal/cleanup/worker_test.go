package cleanup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telavo/activation-backend/pkg/logger"
)

type stubQueue struct {
	tasks []Task
}

func (q *stubQueue) Enqueue(ctx context.Context, task Task) error {
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *stubQueue) Dequeue(ctx context.Context) (*Task, error) {
	if len(q.tasks) == 0 {
		return nil, nil
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return &task, nil
}

func (q *stubQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.tasks)), nil
}

type stubDeleter struct {
	calls    int
	failures int
}

func (d *stubDeleter) DeleteOrder(ctx context.Context, userID, orderID string) error {
	d.calls++
	if d.calls <= d.failures {
		return fmt.Errorf("store unavailable")
	}
	return nil
}

func newTestWorker(t *testing.T, queue Queue, deleter Deleter, maxAttempts int) *Worker {
	t.Helper()
	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	worker, err := NewWorker(queue, deleter, log, nil, WorkerConfig{
		PollInterval: time.Minute,
		MaxAttempts:  maxAttempts,
		BaseBackoff:  time.Millisecond,
	})
	require.NoError(t, err)
	return worker
}

func TestDrainDeletesQueuedOrders(t *testing.T) {
	queue := &stubQueue{tasks: []Task{{UserID: "u-1", OrderID: "o-1"}}}
	deleter := &stubDeleter{}
	worker := newTestWorker(t, queue, deleter, 8)

	require.NoError(t, worker.Drain(context.Background()))
	assert.Equal(t, 1, deleter.calls)
	assert.Empty(t, queue.tasks)
}

func TestDrainRetriesWithinOnePass(t *testing.T) {
	queue := &stubQueue{tasks: []Task{{UserID: "u-1", OrderID: "o-1"}}}
	deleter := &stubDeleter{failures: 2}
	worker := newTestWorker(t, queue, deleter, 8)

	require.NoError(t, worker.Drain(context.Background()))
	// Two failed attempts then a success inside the backoff loop.
	assert.Equal(t, 3, deleter.calls)
	assert.Empty(t, queue.tasks)
}

func TestDrainRequeuesAfterBackoffExhaustion(t *testing.T) {
	queue := &stubQueue{}
	deleter := &stubDeleter{failures: 100}
	worker := newTestWorker(t, queue, deleter, 8)

	require.NoError(t, queue.Enqueue(context.Background(), Task{UserID: "u-1", OrderID: "o-1"}))
	require.NoError(t, worker.Drain(context.Background()))

	// Drain keeps pulling the re-queued task until its attempt budget runs
	// out, then drops it.
	assert.Empty(t, queue.tasks)
	assert.Equal(t, 8*3, deleter.calls)
}

func TestDrainStopsOnCancelledContext(t *testing.T) {
	queue := &stubQueue{tasks: []Task{{UserID: "u-1", OrderID: "o-1"}}}
	worker := newTestWorker(t, queue, &stubDeleter{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := worker.Drain(ctx)
	require.Error(t, err)
	assert.Len(t, queue.tasks, 1)
}
