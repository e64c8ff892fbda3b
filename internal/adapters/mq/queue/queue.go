// Package queue carries "round changed" notifications from the submission
// path to the recompute workers.
//
// Requests for the same round are coalesced while one is pending: the worker
// always reads the latest snapshot, so a second pending request would only
// repeat the same computation.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Event represents the payload type flowing through the queue.
type Event = model.RoundChanged

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue requests a recompute. Returns false if the queue is full or
	// closed and the request was dropped.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel that will receive events as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu      sync.RWMutex
	closed  bool
	pending map[string]struct{}
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}

	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue implements Queue.Enqueue. A request for a round that already has
// one pending is absorbed and reported as accepted.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if _, ok := q.pending[e.RoundID]; ok {
		return true
	}
	if e.TS.IsZero() {
		e.TS = time.Now()
	}

	select {
	case q.events <- e:
		q.pending[e.RoundID] = struct{}{}
		metrics.RecordQueueEnqueue()
		q.observeSize()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue implements Queue.Dequeue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for event := range q.events {
			// Release the round before delivery so writes landing while the
			// worker computes schedule a fresh request.
			q.mu.Lock()
			delete(q.pending, event.RoundID)
			q.mu.Unlock()

			metrics.RecordQueueWaitLatency(float64(time.Since(event.TS).Microseconds()) / 1000)
			select {
			case out <- event:
				metrics.RecordQueueDequeue()
				q.observeSize()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	q.observeSize()
	return len(q.events)
}

// Close implements Queue.Close. Pending events are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed implements Queue.IsClosed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observeSize() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
