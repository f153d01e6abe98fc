// Package tcpool is a tiered, thread-aware allocator for small and
// medium objects: a per-goroutine front cache backed by a process-wide
// central cache backed by a page cache that maps memory from the OS.
// Requests above sizeclass.MaxSmall bypass all three tiers and are
// mapped directly.
package tcpool

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/cloudfly/tcpool/centralcache"
	"github.com/cloudfly/tcpool/pagecache"
	"github.com/cloudfly/tcpool/sizeclass"
	"github.com/cloudfly/tcpool/threadcache"
)

// Pool is the public entry point. A Pool is safe for concurrent use by
// many goroutines: each gets its own thread cache, and the shared
// tiers below synchronize internally.
type Pool struct {
	pager   pagecache.Pager
	pages   *pagecache.PageCache
	central *centralcache.CentralCache
	threads *threadcache.Registry
	metrics *Metrics
	log     *zap.Logger
}

// New constructs a Pool. With no options it uses
// sizeclass.DefaultThreshold, a real OS pager on unix (a heap-backed
// one elsewhere), a no-op logger, and no metrics.
func New(opts ...Option) *Pool {
	cfg := newConfig(opts...)

	pages := pagecache.New(cfg.pager, cfg.logger)
	central := centralcache.New(pages, cfg.logger)
	threads := threadcache.NewRegistry(central, cfg.threshold, cfg.logger)

	return &Pool{
		pager:   cfg.pager,
		pages:   pages,
		central: central,
		threads: threads,
		metrics: cfg.metrics,
		log:     cfg.logger,
	}
}

// Allocate returns a pointer to at least size usable bytes, or nil on
// out-of-memory. size == 0 is treated as sizeclass.Alignment. The
// returned memory is not zeroed.
func (p *Pool) Allocate(size int) unsafe.Pointer {
	if size > sizeclass.MaxSmall {
		return p.allocateLarge(size)
	}

	ptr := p.threads.Mine().Allocate(size)
	if ptr == nil {
		p.metrics.observeOOM()
		return nil
	}
	p.metrics.observeAllocate(size)
	return ptr
}

// Deallocate returns a pointer previously obtained from Allocate.
// size must be the same value passed to the matching Allocate call;
// passing a different value is undefined behavior, not a checked
// error, for the same reason no allocator in this tier tracks
// per-allocation size. A nil ptr is a no-op.
func (p *Pool) Deallocate(ptr unsafe.Pointer, size int) {
	if ptr == nil {
		return
	}

	if size > sizeclass.MaxSmall {
		p.deallocateLarge(ptr, size)
		return
	}

	p.threads.Mine().Deallocate(ptr, size)
	p.metrics.observeDeallocate()
}
