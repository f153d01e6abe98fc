package pagecache

import (
	"sync"

	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/cloudfly/tcpool/sizeclass"
)

const btreeDegree = 32

// PageCache is the bottom tier: it owns every page ever obtained from
// the OS and serves page-granular spans to the central cache, best-fit
// with splitting, and coalesces adjacent free spans by address on
// return. A single mutex protects all state; this is coarse-grained
// by design (spec.md §5: page-cache operations are rare relative to
// block-cache operations, occurring only on span exhaustion).
//
// PageCache never returns memory to the OS once mapped - spans
// accumulate in freeSpans and are reused. That is a deliberate
// retention policy (spec.md §4.4), not a leak.
type PageCache struct {
	mu sync.Mutex

	pager Pager
	log   *zap.Logger

	// freeSpans is ordered by page count so allocateSpan can find the
	// least key >= the requested page count (best fit / lower bound).
	freeSpans *btree.BTreeG[*spanBucket]

	// spanByAddr is ordered by start address for O(log n) neighbor
	// lookup during deallocateSpan's forward-coalescing step.
	spanByAddr *btree.BTreeG[*addrEntry]
}

// New constructs a PageCache backed by pager. A nil logger is
// replaced with a no-op logger.
func New(pager Pager, log *zap.Logger) *PageCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageCache{
		pager: pager,
		log:   log,
		freeSpans: btree.NewG(btreeDegree, func(a, b *spanBucket) bool {
			return a.pages < b.pages
		}),
		spanByAddr: btree.NewG(btreeDegree, func(a, b *addrEntry) bool {
			return a.addr < b.addr
		}),
	}
}

// AllocateSpan returns the start address of a span of exactly pages
// pages, or 0 if the OS refused to map fresh pages and no sufficient
// free span was on hand.
func (pc *PageCache) AllocateSpan(pages int) uintptr {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if s := pc.takeFreeSpanLocked(pages); s != nil {
		pc.recordLocked(s)
		return s.Start
	}

	addr, err := pc.pager.Map(pages)
	if err != nil {
		pc.log.Warn("pagecache: OS page mapping failed", zap.Int("pages", pages), zap.Error(err))
		return 0
	}

	s := &Span{Start: addr, Pages: pages}
	pc.recordLocked(s)
	pc.log.Debug("pagecache: grew from OS", zap.Int("pages", pages), zap.Uintptr("addr", addr))
	return s.Start
}

// takeFreeSpanLocked implements allocateSpan steps 1-2: find the
// least key q >= pages in freeSpans, detach its head, and split off
// the remainder if q > pages. Returns nil if no free span suffices.
func (pc *PageCache) takeFreeSpanLocked(pages int) *Span {
	pivot := &spanBucket{pages: pages}

	var bucket *spanBucket
	pc.freeSpans.AscendGreaterOrEqual(pivot, func(item *spanBucket) bool {
		bucket = item
		return false // first hit is the lower bound; stop.
	})
	if bucket == nil {
		return nil
	}

	s := bucket.head
	bucket.head = s.next
	s.next = nil
	if bucket.head == nil {
		pc.freeSpans.Delete(bucket)
	}

	if bucket.pages > pages {
		remainder := &Span{
			Start: s.Start + uintptr(pages*sizeclass.PageSize),
			Pages: bucket.pages - pages,
		}
		s.Pages = pages
		pc.insertFreeLocked(remainder)
	}

	return s
}

// insertFreeLocked head-inserts s into freeSpans[s.Pages].
func (pc *PageCache) insertFreeLocked(s *Span) {
	pivot := &spanBucket{pages: s.Pages}
	if existing, ok := pc.freeSpans.Get(pivot); ok {
		s.next = existing.head
		existing.head = s
		return
	}
	pc.freeSpans.ReplaceOrInsert(&spanBucket{pages: s.Pages, head: s})
}

// recordLocked ensures spanByAddr[s.Start] == s (allocateSpan step 3).
func (pc *PageCache) recordLocked(s *Span) {
	if entry, ok := pc.spanByAddr.Get(&addrEntry{addr: s.Start}); ok {
		entry.span = s
		return
	}
	pc.spanByAddr.ReplaceOrInsert(&addrEntry{addr: s.Start, span: s})
}

// DeallocateSpan returns a span to the free pool, attempting one step
// of forward coalescing with its immediate address-neighbor.
func (pc *PageCache) DeallocateSpan(addr uintptr, pages int) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	entry, ok := pc.spanByAddr.Get(&addrEntry{addr: addr})
	if !ok {
		return // not ours; ignore per spec.md §4.4 step 1.
	}
	s := entry.span
	s.Pages = pages

	nextAddr := s.Start + uintptr(pages*sizeclass.PageSize)
	if nextEntry, ok := pc.spanByAddr.Get(&addrEntry{addr: nextAddr}); ok {
		if pc.unlinkIfFreeLocked(nextEntry.span) {
			pc.spanByAddr.Delete(&addrEntry{addr: nextAddr})
			s.Pages += nextEntry.span.Pages
			pc.log.Debug("pagecache: coalesced spans",
				zap.Uintptr("base", s.Start), zap.Uintptr("absorbed", nextAddr))
		}
	}

	pc.insertFreeLocked(s)
}

// unlinkIfFreeLocked removes target from freeSpans[target.Pages] if
// it is currently linked there, reporting whether it was found.
func (pc *PageCache) unlinkIfFreeLocked(target *Span) bool {
	bucket, ok := pc.freeSpans.Get(&spanBucket{pages: target.Pages})
	if !ok {
		return false
	}

	if bucket.head == target {
		bucket.head = target.next
		target.next = nil
		if bucket.head == nil {
			pc.freeSpans.Delete(bucket)
		}
		return true
	}

	for s := bucket.head; s != nil && s.next != nil; s = s.next {
		if s.next == target {
			s.next = target.next
			target.next = nil
			return true
		}
	}
	return false
}
