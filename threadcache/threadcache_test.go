package threadcache_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/cloudfly/tcpool/centralcache"
	"github.com/cloudfly/tcpool/pagecache"
	"github.com/cloudfly/tcpool/sizeclass"
	"github.com/cloudfly/tcpool/threadcache"
)

func newTestRegistry(t *testing.T, threshold int) *threadcache.Registry {
	t.Helper()
	pages := pagecache.New(pagecache.NewHeapPager(), nil)
	central := centralcache.New(pages, nil)
	return threadcache.NewRegistry(central, threshold, nil)
}

// Seed scenario 1: single-thread churn.
func TestSingleThreadChurnReusesSameBlock(t *testing.T) {
	reg := newTestRegistry(t, sizeclass.DefaultThreshold)
	c := reg.Mine()

	a := c.Allocate(24)
	require.NotNil(t, a)
	c.Deallocate(a, 24)
	b := c.Allocate(24)
	require.Equal(t, a, b)
}

func TestAllocateZeroTreatedAsAlignment(t *testing.T) {
	reg := newTestRegistry(t, sizeclass.DefaultThreshold)
	c := reg.Mine()

	p := c.Allocate(0)
	require.NotNil(t, p)
}

// Seed scenario 3: drain threshold.
func TestDrainThresholdKeepsCeilQuarterLocally(t *testing.T) {
	reg := newTestRegistry(t, 64)
	c := reg.Mine()

	const size = 24
	const n = 65
	class := sizeclass.ClassOf(size)

	ptrs := make([]unsafe.Pointer, 0, n)
	for i := 0; i < n; i++ {
		p := c.Allocate(size)
		require.NotNil(t, p)
		ptrs = append(ptrs, p)
	}

	// The single refill behind those 65 allocations carved far more
	// than 65 blocks; drain the untracked leftovers so the 65
	// deallocations below start from a clean count[class] == 0, the
	// same starting point the scenario assumes.
	for c.Count(class) > 0 {
		require.NotNil(t, c.Allocate(size))
	}

	for _, p := range ptrs {
		c.Deallocate(p, size)
	}

	// After the 65th deallocation, ceil(65/4) = 17 stay local; the
	// remaining 48 were flushed to the central cache in one chain.
	require.Equal(t, 17, c.Count(class))
}

func TestMineIsStablePerGoroutine(t *testing.T) {
	reg := newTestRegistry(t, sizeclass.DefaultThreshold)
	c1 := reg.Mine()
	c2 := reg.Mine()
	require.Same(t, c1, c2)
}
