// Package cleanup retries order-document deletes that failed during a
// cancellation. Cancellation never blocks on the delete; the failed target
// goes onto a redis-backed queue and a background worker drains it.
package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/redis"
)

// Task is one pending order-document delete.
type Task struct {
	UserID     string    `json:"user_id"`
	OrderID    string    `json:"order_id"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue holds pending delete tasks in FIFO order.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (*Task, error)
	Len(ctx context.Context) (int64, error)
}

type redisQueue struct {
	client *redis.Client
	key    string
}

// NewQueue builds a queue over the shared redis client, namespaced per
// environment.
func NewQueue(client *redis.Client, env string) (Queue, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &redisQueue{client: client, key: client.CleanupQueueKey(env)}, nil
}

func (q *redisQueue) Enqueue(ctx context.Context, task Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cleanup task failed")
	}
	if err := q.client.LPush(ctx, q.key, payload); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue cleanup task failed")
	}
	return nil
}

// Dequeue pops the oldest task. An empty queue yields (nil, nil).
func (q *redisQueue) Dequeue(ctx context.Context) (*Task, error) {
	raw, err := q.client.RPop(ctx, q.key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dequeue cleanup task failed")
	}
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cleanup task failed")
	}
	return &task, nil
}

func (q *redisQueue) Len(ctx context.Context) (int64, error) {
	length, err := q.client.LLen(ctx, q.key)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cleanup queue length failed")
	}
	return length, nil
}
