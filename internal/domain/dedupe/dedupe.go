// Package dedupe defines the interface for idempotency tracking.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSize is the number of submission ids remembered when no size is configured.
const DefaultMaxSize = 50000

// Deduper records seen submission IDs so a retried submission is acknowledged
// without being applied twice.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the submission can be retried. Used when a
	// recorded submission was rejected before it was stored.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
// Bounded mode (max size > 0) evicts the least recently seen ids; otherwise
// ids are kept forever.
func NewInMemoryDeduper(opts ...Option) Deduper {
	cfg := config{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.maxSize <= 0 {
		return &mapDeduper{seen: make(map[string]struct{})}
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, struct{}](cfg.maxSize)
	return &lruDeduper{cache: cache}
}

// lruDeduper is the bounded mode. The cache is safe for concurrent use and
// ContainsOrAdd is a single locked operation.
type lruDeduper struct {
	cache *lru.Cache[string, struct{}]
}

func (d *lruDeduper) SeenAndRecord(_ context.Context, id string) bool {
	seen, _ := d.cache.ContainsOrAdd(id, struct{}{})
	return seen
}

func (d *lruDeduper) Unrecord(_ context.Context, id string) {
	d.cache.Remove(id)
}

func (d *lruDeduper) Size() int64 {
	return int64(d.cache.Len())
}

// mapDeduper is the unbounded mode.
type mapDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (d *mapDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *mapDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

func (d *mapDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
