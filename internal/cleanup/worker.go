package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/metrics"
)

// Deleter removes an order document. Implemented by the order persister.
type Deleter interface {
	DeleteOrder(ctx context.Context, userID, orderID string) error
}

// WorkerConfig tunes the drain loop.
type WorkerConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	BaseBackoff  time.Duration
}

// Worker drains the cleanup queue, retrying each delete with exponential
// backoff. A task that keeps failing goes back on the queue until its
// attempt budget runs out.
type Worker struct {
	queue   Queue
	deleter Deleter
	log     *logger.Logger
	metrics *metrics.WizardMetrics
	cfg     WorkerConfig
}

func NewWorker(queue Queue, deleter Deleter, log *logger.Logger, wizardMetrics *metrics.WizardMetrics, cfg WorkerConfig) (*Worker, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if deleter == nil {
		return nil, fmt.Errorf("deleter is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	return &Worker{queue: queue, deleter: deleter, log: log, metrics: wizardMetrics, cfg: cfg}, nil
}

// Run blocks until ctx is cancelled, draining the queue on every tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.log.Error(ctx, "cleanup drain failed", err)
			}
		}
	}
}

// Drain processes queued tasks until the queue is empty or ctx is cancelled.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			return err
		}
		if task == nil {
			return nil
		}
		w.process(ctx, *task)
	}
}

func (w *Worker) process(ctx context.Context, task Task) {
	logCtx := w.log.WithOrderID(w.log.WithUserID(ctx, task.UserID), task.OrderID)

	backoff := retry.WithMaxRetries(2, retry.NewExponential(w.cfg.BaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := w.deleter.DeleteOrder(ctx, task.UserID, task.OrderID); err != nil {
			w.metrics.IncCleanupRetry()
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		w.log.Info(logCtx, "cancelled order document deleted")
		return
	}

	task.Attempts++
	if task.Attempts >= w.cfg.MaxAttempts {
		// The document stays behind marked cancelled, hidden from order
		// lists and resumes; an operator has to remove it.
		w.log.Error(logCtx, "cleanup attempts exhausted, dropping task", err)
		return
	}
	w.log.Warn(logCtx, "cleanup delete failed, re-queueing")
	if enqueueErr := w.queue.Enqueue(ctx, task); enqueueErr != nil {
		w.log.Error(logCtx, "re-queue of cleanup task failed", enqueueErr)
	}
}
