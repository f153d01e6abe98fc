package tcpool

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/cloudfly/tcpool/sizeclass"
)

// allocateLarge serves requests above sizeclass.MaxSmall directly
// from the OS, bypassing every cache tier - the "delegate to the host
// allocator" branch. It shares the Pager the page cache uses rather
// than the page cache itself, since a large object is never split,
// coalesced, or pooled: one map in, one unmap out.
func (p *Pool) allocateLarge(size int) unsafe.Pointer {
	pages := sizeclass.PagesFor(size)
	addr, err := p.pager.Map(pages)
	if err != nil {
		p.log.Warn("tcpool: large object allocation failed",
			zap.Int("size", size), zap.Error(fmt.Errorf("%w: %v", ErrOutOfMemory, err)))
		p.metrics.observeOOM()
		return nil
	}
	p.metrics.observeAllocate(size)
	p.metrics.observeLargeObject()
	return unsafe.Pointer(addr)
}

func (p *Pool) deallocateLarge(ptr unsafe.Pointer, size int) {
	pages := sizeclass.PagesFor(size)
	if err := p.pager.Unmap(uintptr(ptr), pages); err != nil {
		p.log.Warn("tcpool: large object unmap failed",
			zap.Int("size", size), zap.Error(err))
	}
	p.metrics.observeDeallocate()
}
