package threadcache

import (
	"sync"

	"github.com/petermattis/goid"
	"go.uber.org/zap"

	"github.com/cloudfly/tcpool/centralcache"
)

// Registry lazily constructs, and hands back, one Cache per
// goroutine - the Go realization of spec.md §3's "for each thread
// that ever allocates... creation is lazy on first use." Lookups take
// a read lock on the fast path (an existing Cache) and only escalate
// to a write lock the first time a goroutine is seen.
type Registry struct {
	central   *centralcache.CentralCache
	threshold int
	log       *zap.Logger

	mu   sync.RWMutex
	byID map[int64]*Cache
}

// NewRegistry constructs a Registry whose caches refill against
// central.
func NewRegistry(central *centralcache.CentralCache, threshold int, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		central:   central,
		threshold: threshold,
		log:       log,
		byID:      make(map[int64]*Cache),
	}
}

// Mine returns the calling goroutine's Cache, constructing it on
// first use.
//
// Registry intentionally never evicts a goroutine's Cache once
// created (spec.md's thread-cache lifetime is the thread's lifetime,
// and teardown of the process-wide tiers is explicitly left
// undefined); a process that churns through very many short-lived
// goroutines will grow this map unboundedly. That tracks spec.md's
// own non-goal ("No hard ceiling on total mapped bytes - growth is
// governed only by workload"), extended here to per-goroutine
// bookkeeping rather than just mapped pages.
func (r *Registry) Mine() *Cache {
	id := goid.Get()

	r.mu.RLock()
	c, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byID[id]; ok {
		return c
	}
	c = newCache(r.central, r.threshold, r.log)
	r.byID[id] = c
	return c
}
