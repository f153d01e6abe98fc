// Package centralcache implements the process-wide, per-size-class
// shared free-list tier: it refills thread caches in batches and
// drains span growth from the page cache below it.
package centralcache

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/cloudfly/tcpool/pagecache"
	"github.com/cloudfly/tcpool/sizeclass"
)

// CentralCache is a process-wide singleton (constructed once by the
// owning Pool and shared by every thread cache). Slot k is an
// independent critical section; there is zero contention between
// slots and serial access within one.
type CentralCache struct {
	locks [sizeclass.NumClasses]spinLock
	lists [sizeclass.NumClasses]unsafe.Pointer // head of centralList[k], guarded by locks[k]

	pages *pagecache.PageCache
	log   *zap.Logger
}

// New constructs a CentralCache drawing span growth from pages. A nil
// logger is replaced with a no-op logger.
func New(pages *pagecache.PageCache, log *zap.Logger) *CentralCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &CentralCache{pages: pages, log: log}
}

// spanPagesFor returns the page count requested from the page cache
// on a miss for class k: SpanPages, unless a block of this class
// already needs more pages than that to yield even one block.
func spanPagesFor(k int) int {
	need := sizeclass.PagesFor(sizeclass.SizeOf(k))
	if need < sizeclass.SpanPages {
		return sizeclass.SpanPages
	}
	return need
}

// growLocked fetches a fresh span for class k and carves it into a
// singly-linked chain of equal blocks, head-to-tail, null-terminated.
// Returns the chain head and its length. Returns (nil, 0) if the page
// cache is out of memory. Must be called with locks[k] held.
func (c *CentralCache) growLocked(k int) (unsafe.Pointer, int) {
	pages := spanPagesFor(k)
	addr := c.pages.AllocateSpan(pages)
	if addr == 0 {
		return nil, 0
	}

	size := sizeclass.SizeOf(k)
	n := (pages * sizeclass.PageSize) / size
	if n == 0 {
		n = 1
	}

	base := unsafe.Pointer(addr)
	for i := 0; i < n-1; i++ {
		cur := unsafe.Add(base, i*size)
		next := unsafe.Add(base, (i+1)*size)
		sizeclass.SetNext(cur, next)
	}
	sizeclass.SetNext(unsafe.Add(base, (n-1)*size), nil)

	c.log.Debug("centralcache: grew span",
		zap.Int("class", k), zap.Int("pages", pages), zap.Int("blocks", n))

	return base, n
}

// FetchRange supplies a full batch for one thread-cache refill: if
// centralList[k] is non-empty, the whole list is detached and handed
// out (spec.md §4.3 step 3, "Batching tie-breaks" - not re-sliced).
// Otherwise a fresh span is grown and carved, and the entire carved
// chain is returned; centralList[k] stays empty in that case. Returns
// nil if k is out of range or the page cache is exhausted.
func (c *CentralCache) FetchRange(k int) unsafe.Pointer {
	if k < 0 || k >= sizeclass.NumClasses {
		c.log.Debug("centralcache: fetch range rejected", zap.Int("class", k), zap.Error(sizeclass.ErrInvalidClass))
		return nil
	}

	c.locks[k].Lock()
	defer c.locks[k].Unlock()

	if head := c.lists[k]; head != nil {
		c.lists[k] = nil
		return head
	}

	head, _ := c.growLocked(k)
	return head
}

// FetchBatch is the bounded-severance variant (spec.md §4.3 step 3's
// "bounded-batch variant"): it returns at most n blocks, retaining
// any remainder - whether sliced off an existing centralList[k] or
// left over from a freshly carved span - as the new centralList[k].
func (c *CentralCache) FetchBatch(k, n int) unsafe.Pointer {
	if k < 0 || k >= sizeclass.NumClasses || n <= 0 {
		if k < 0 || k >= sizeclass.NumClasses {
			c.log.Debug("centralcache: fetch batch rejected", zap.Int("class", k), zap.Error(sizeclass.ErrInvalidClass))
		}
		return nil
	}

	c.locks[k].Lock()
	defer c.locks[k].Unlock()

	if head := c.lists[k]; head != nil {
		return c.sliceLocked(k, head, n)
	}

	head, total := c.growLocked(k)
	if head == nil {
		return nil
	}
	if total <= n {
		return head
	}
	return c.sliceLocked(k, head, n)
}

// sliceLocked walks head forward by at most n links, severs the
// chain there, installs the tail as centralList[k], and returns the
// (now n-long, or shorter if the chain ended early) head portion.
func (c *CentralCache) sliceLocked(k int, head unsafe.Pointer, n int) unsafe.Pointer {
	prev := unsafe.Pointer(nil)
	cur := head
	for i := 0; i < n && cur != nil; i++ {
		prev = cur
		cur = sizeclass.NextOf(cur)
	}
	if prev != nil {
		sizeclass.SetNext(prev, nil)
	}
	c.lists[k] = cur
	return head
}

// ReturnRange splices a chain of blocks, returned from a thread cache,
// onto the head of centralList[k] (spec.md §4.3 "Return-range"). start
// must be the head of a chain of exactly totalBytes/SizeOf(k) blocks;
// the walk to find its tail stops early if a nil next-pointer is hit.
func (c *CentralCache) ReturnRange(start unsafe.Pointer, totalBytes, k int) {
	if start == nil || k < 0 || k >= sizeclass.NumClasses {
		return
	}

	maxSteps := totalBytes / sizeclass.SizeOf(k)

	c.locks[k].Lock()
	defer c.locks[k].Unlock()

	tail := start
	for steps := 1; steps < maxSteps; steps++ {
		next := sizeclass.NextOf(tail)
		if next == nil {
			break
		}
		tail = next
	}

	sizeclass.SetNext(tail, c.lists[k])
	c.lists[k] = start
}
