package centralcache

import (
	"runtime"
	"sync/atomic"
)

// spinLock is a test-and-set spin lock: a bounded spin on an atomic
// flag with a scheduler yield between unsuccessful attempts, per
// spec.md §5 ("Lock acquisition is a bounded spin on a test-and-set
// flag with yield between unsuccessful attempts"). It is deliberately
// not a sync.Mutex - the central cache must be able to spin, never
// block, so contending goroutines never park.
type spinLock struct {
	held atomic.Bool
}

func (l *spinLock) Lock() {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *spinLock) Unlock() {
	l.held.Store(false)
}
