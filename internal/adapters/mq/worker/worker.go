// Package worker recomputes round results in the background whenever the
// submissions of a round change.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/skating/internal/adapters/mq/queue"
	"github.com/okian/skating/internal/adapters/repository"
	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/internal/domain/types"
	"github.com/okian/skating/pkg/logger"
	"github.com/okian/skating/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultComputeTimeout = 10 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Snapshotter reads a consistent view of a round.
type Snapshotter interface {
	Snapshot(ctx context.Context, roundID string) (model.Snapshot, error)
}

// Scorer computes a result from a snapshot.
type Scorer interface {
	Score(ctx context.Context, snap model.Snapshot) (types.Result, error)
}

// ResultWriter stores computed results.
type ResultWriter interface {
	SaveResult(ctx context.Context, res types.Result) (bool, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker processes recompute requests.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the request in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue          Queue
	snapshots      Snapshotter
	scorer         Scorer
	results        ResultWriter
	name           string
	computeTimeout time.Duration
	active         *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, snapshots Snapshotter, scorer Scorer, results ResultWriter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          q,
		snapshots:      snapshots,
		scorer:         scorer,
		results:        results,
		name:           "worker",
		computeTimeout: defaultComputeTimeout,
		active:         new(atomic.Int64),
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, event); err != nil {
				w.logger.Error(ctx, "recompute failed",
					logger.String("round_id", event.RoundID),
					logger.Int64("revision", event.Revision),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown implements Worker.Shutdown.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process recomputes the result of one round from its latest snapshot.
func (w *InMemoryWorker) process(ctx context.Context, event queue.Event) error {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx, cancel := context.WithTimeout(ctx, w.computeTimeout)
	defer cancel()

	snap, err := w.snapshots.Snapshot(ctx, event.RoundID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "snapshot")
		return fmt.Errorf("snapshot round %s: %w", event.RoundID, err)
	}
	if snap.Round.Closed {
		// Closing computes the final result itself.
		return nil
	}

	computeStart := time.Now()
	res, err := w.scorer.Score(ctx, snap)
	latency := float64(time.Since(computeStart).Microseconds()) / 1000
	if err != nil {
		metrics.RecordAggregation(string(snap.Round.Kind), "error", latency)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "aggregate")
		return fmt.Errorf("aggregate round %s at revision %d: %w", snap.Round.ID, snap.Revision, err)
	}
	metrics.RecordAggregation(string(snap.Round.Kind), "ok", latency)

	saved, err := w.results.SaveResult(ctx, res)
	switch {
	case errors.Is(err, repository.ErrResultFrozen):
		w.logger.Debug(ctx, "round closed while computing", logger.String("round_id", snap.Round.ID))
		return nil
	case err != nil:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "save_result")
		return fmt.Errorf("save result for round %s: %w", snap.Round.ID, err)
	case !saved:
		metrics.RecordStaleResult()
	}

	w.logger.Debug(ctx, "result recomputed",
		logger.String("round_id", snap.Round.ID),
		logger.Int64("revision", snap.Revision),
		logger.Int("standings", len(res.Standings)),
		logger.Bool("stored", saved),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool. A count below one uses one worker per CPU.
func NewPool(workerCount int, q Queue, snapshots Snapshotter, scorer Scorer, results ResultWriter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	active := new(atomic.Int64)
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, snapshots, scorer, results, wopts...)
		pool.workers[i].active = active
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			_ = worker.Shutdown(shutdownCtx)
		}
	}
	return nil
}
