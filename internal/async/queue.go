package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/wenjia-zhai/genbridge/internal/core"
	"github.com/wenjia-zhai/genbridge/internal/vendors"
)

// Job is one queued generation request.
type Job struct {
	UserID uuid.UUID
	Vendor string
	Params vendors.GenerationParams
}

// GeneratorQueue runs generations on a bounded worker pool. Each worker
// drives one orchestration at a time, so the pool size caps concurrent
// vendor jobs in flight.
type GeneratorQueue struct {
	gen     *core.Generator
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*GeneratorQueue)

func WithWorkers(n int) Option {
	return func(q *GeneratorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *GeneratorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *GeneratorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewGeneratorQueue(gen *core.Generator, logger *slog.Logger, opts ...Option) *GeneratorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &GeneratorQueue{
		gen:     gen,
		logger:  logger,
		workers: 4,
		// Video jobs routinely poll for many minutes.
		timeout: 15 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *GeneratorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					asset, err := q.gen.Generate(ctx, job.UserID, job.Vendor, job.Params)
					cancel()

					if err != nil {
						q.logger.Error("generation failed", "worker_id", workerID, "user_id", job.UserID, "vendor", job.Vendor, "error", err)
					} else {
						q.logger.Info("generation complete", "worker_id", workerID, "user_id", job.UserID, "asset_id", asset.ID, "durable", asset.Durable)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *GeneratorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "user_id", job.UserID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued generation", "user_id", job.UserID, "vendor", job.Vendor, "kind", job.Params.Kind)
	default:
		q.logger.Warn("queue full, applying backpressure", "user_id", job.UserID)
		q.ch <- job
	}
	return nil
}

func (q *GeneratorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
