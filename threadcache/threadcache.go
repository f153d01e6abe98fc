// Package threadcache implements the per-thread front cache: an
// array of intrusive free-lists, one per size class, that serves and
// absorbs allocations without synchronization. "Thread" is realized
// as goroutine identity (see affinity.go) since Go gives user code no
// stable OS-thread handle.
package threadcache

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/cloudfly/tcpool/centralcache"
	"github.com/cloudfly/tcpool/sizeclass"
)

// Cache is one thread's front cache: freeList[k]/count[k] for every
// size class, plus the threshold that caps a single class's retained
// block count before a forced drain. A Cache is touched by exactly
// one goroutine over its lifetime and needs no internal locking.
type Cache struct {
	central   *centralcache.CentralCache
	threshold int
	log       *zap.Logger

	freeList [sizeclass.NumClasses]unsafe.Pointer
	count    [sizeclass.NumClasses]int
}

// Count reports the current retained block count for size class k.
// Exposed for tests; spec.md invariant 4 requires it to equal the
// reachable length of freeList[k] at every public-boundary quiescent
// point.
func (c *Cache) Count(k int) int {
	return c.count[k]
}

func newCache(central *centralcache.CentralCache, threshold int, log *zap.Logger) *Cache {
	if threshold <= 0 {
		threshold = sizeclass.DefaultThreshold
	}
	return &Cache{central: central, threshold: threshold, log: log}
}

// Allocate returns roundUp(n) usable bytes (n treated as Alignment
// if 0), or nil if the central/page cache chain is exhausted.
// Callers must have already routed n > sizeclass.MaxSmall elsewhere
// (the large-object path never reaches a thread cache).
func (c *Cache) Allocate(n int) unsafe.Pointer {
	if n == 0 {
		n = sizeclass.Alignment
	}
	k := sizeclass.ClassOf(n)

	if head := c.freeList[k]; head != nil {
		c.freeList[k] = sizeclass.NextOf(head)
		c.count[k]--
		return head
	}

	return c.fetchFromCentral(k)
}

// Deallocate pushes addr onto freeList[k] and drains to the central
// cache once the class's retained count exceeds the threshold.
func (c *Cache) Deallocate(addr unsafe.Pointer, n int) {
	if n == 0 {
		n = sizeclass.Alignment
	}
	k := sizeclass.ClassOf(n)

	sizeclass.SetNext(addr, c.freeList[k])
	c.freeList[k] = addr
	c.count[k]++

	if c.count[k] > c.threshold {
		c.drain(k)
	}
}

// fetchFromCentral receives a batch from the central cache, returns
// its first block to the caller, and stashes the remainder as the
// new freeList[k]. count[k] is updated only after the remainder's
// length is known, so it is never observed negative at this (or any
// other) public boundary - resolving spec.md §9's open question about
// the source's decrement-before-empty-check ordering.
func (c *Cache) fetchFromCentral(k int) unsafe.Pointer {
	head := c.central.FetchRange(k)
	if head == nil {
		return nil
	}

	result := head
	rest := sizeclass.NextOf(result)
	sizeclass.SetNext(result, nil)

	c.freeList[k] = rest
	c.count[k] = sizeclass.ChainLen(rest)

	return result
}

// drain implements the batch-return policy of spec.md §4.2: keep
// ceil(count/4) (at least 1) blocks locally, return the rest to the
// central cache as one chain. If the list turns out shorter than
// expected (count drifted), the returned count is truncated to match
// rather than walking past a nil link.
func (c *Cache) drain(k int) {
	total := c.count[k]
	if total <= 1 {
		return
	}

	keep := (total + 3) / 4
	if keep < 1 {
		keep = 1
	}

	split := c.freeList[k]
	actualKeep := 1
	for actualKeep < keep {
		next := sizeclass.NextOf(split)
		if next == nil {
			break
		}
		split = next
		actualKeep++
	}

	tail := sizeclass.NextOf(split)
	sizeclass.SetNext(split, nil)
	c.count[k] = actualKeep

	if tail == nil {
		return
	}
	returned := total - actualKeep
	c.central.ReturnRange(tail, returned*sizeclass.SizeOf(k), k)
}
