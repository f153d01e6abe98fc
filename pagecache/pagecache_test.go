package pagecache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudfly/tcpool/pagecache"
	"github.com/cloudfly/tcpool/sizeclass"
)

func newTestPageCache(t *testing.T) *pagecache.PageCache {
	t.Helper()
	return pagecache.New(pagecache.NewHeapPager(), nil)
}

func TestAllocateSpanMapsFreshPages(t *testing.T) {
	pc := newTestPageCache(t)
	addr := pc.AllocateSpan(4)
	require.NotZero(t, addr)
}

// Seed scenario 4: span split. allocateSpan(3) followed by
// allocateSpan(5) must be served by a single map(8) - the second
// span's start equals the first span's start plus 3 pages.
func TestAllocateSpanSplitsOversizedFreeSpan(t *testing.T) {
	pc := newTestPageCache(t)

	// One 8-page span, freed, is the only free span on hand. The next
	// two allocations must be carved entirely out of it.
	base := pc.AllocateSpan(8)
	require.NotZero(t, base)
	pc.DeallocateSpan(base, 8)

	a := pc.AllocateSpan(3)
	require.Equal(t, base, a)

	b := pc.AllocateSpan(5)
	require.Equal(t, base+uintptr(3*sizeclass.PageSize), b)
}

// Seed scenario 5: span coalesce. allocateSpan(2) -> a;
// allocateSpan(2) -> b == a+8192; deallocateSpan(b,2);
// deallocateSpan(a,2); then allocateSpan(4) must return a.
// The two 2-page spans are carved from one freed 4-page span, since
// two separate pager mappings need not be adjacent.
func TestDeallocateSpanCoalescesAdjacentNeighbors(t *testing.T) {
	pc := newTestPageCache(t)

	base := pc.AllocateSpan(4)
	require.NotZero(t, base)
	pc.DeallocateSpan(base, 4)

	a := pc.AllocateSpan(2)
	require.Equal(t, base, a)
	b := pc.AllocateSpan(2)
	require.Equal(t, a+uintptr(2*sizeclass.PageSize), b)

	pc.DeallocateSpan(b, 2)
	pc.DeallocateSpan(a, 2)

	merged := pc.AllocateSpan(4)
	require.Equal(t, a, merged)
}

func TestDeallocateSpanUnknownAddrIsNoop(t *testing.T) {
	pc := newTestPageCache(t)
	require.NotPanics(t, func() {
		pc.DeallocateSpan(0xdeadbeef, 2)
	})
}

func TestAllocateSpanReusesExactFitBeforeGrowing(t *testing.T) {
	pc := newTestPageCache(t)

	first := pc.AllocateSpan(4)
	pc.DeallocateSpan(first, 4)

	second := pc.AllocateSpan(4)
	require.Equal(t, first, second)
}
