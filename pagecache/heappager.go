package pagecache

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/cloudfly/tcpool/sizeclass"
)

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

// HeapPager is a Pager backed by ordinary Go heap allocations instead
// of a real OS mapping. It exists for testability (spec.md §9: "the
// OS page primitive is the only abstraction worth hiding behind an
// interface, for testability") and as the default on platforms
// without an `//go:build unix` UnixPager.
//
// Each mapping is kept alive in a registry for the lifetime of the
// pager so the returned address stays valid; Go's non-moving
// collector never relocates the backing array out from under it.
type HeapPager struct {
	mu      sync.Mutex
	mapping map[uintptr][]byte
}

// NewHeapPager constructs a Pager that serves mappings from the Go
// heap.
func NewHeapPager() *HeapPager {
	return &HeapPager{mapping: make(map[uintptr][]byte)}
}

func (p *HeapPager) Map(pages int) (uintptr, error) {
	if pages <= 0 {
		return 0, &ErrMapFailed{Pages: pages, Err: errors.New("pages must be positive")}
	}
	b := make([]byte, pages*sizeclass.PageSize)
	addr := addrOf(b)

	p.mu.Lock()
	p.mapping[addr] = b
	p.mu.Unlock()

	return addr, nil
}

func (p *HeapPager) Unmap(addr uintptr, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.mapping[addr]; !ok {
		return errors.New("pagecache: unmap of address not owned by this pager")
	}
	delete(p.mapping, addr)
	return nil
}
