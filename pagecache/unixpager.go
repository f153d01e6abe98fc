//go:build unix

package pagecache

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/cloudfly/tcpool/sizeclass"
)

// UnixPager is the production Pager: anonymous, private mmap/munmap
// mappings, matching original_source/src/PageCache.cpp's
// systemAlloc (mmap(..., PROT_READ|PROT_WRITE, MAP_PRIVATE|MAP_ANONYMOUS, -1, 0)
// followed by a zero-fill, which mmap MAP_ANON already guarantees on
// Linux/BSD/Darwin).
type UnixPager struct {
	mu      sync.Mutex
	mapping map[uintptr][]byte // start address -> backing slice, kept alive until Unmap
}

// NewUnixPager constructs a Pager backed by real OS page mappings.
func NewUnixPager() *UnixPager {
	return &UnixPager{mapping: make(map[uintptr][]byte)}
}

func (p *UnixPager) Map(pages int) (uintptr, error) {
	length := pages * sizeclass.PageSize
	b, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, &ErrMapFailed{Pages: pages, Err: err}
	}

	addr := uintptr(unsafe.Pointer(&b[0]))

	p.mu.Lock()
	p.mapping[addr] = b
	p.mu.Unlock()

	return addr, nil
}

func (p *UnixPager) Unmap(addr uintptr, pages int) error {
	p.mu.Lock()
	b, ok := p.mapping[addr]
	if ok {
		delete(p.mapping, addr)
	}
	p.mu.Unlock()

	if !ok {
		// Not a mapping recorded by this pager; reconstruct the slice
		// header from the raw address and length and unmap it anyway.
		b = unsafe.Slice((*byte)(unsafe.Pointer(addr)), pages*sizeclass.PageSize)
	}
	return unix.Munmap(b)
}
