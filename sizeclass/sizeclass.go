// Package sizeclass implements the size-class arithmetic and the
// intrusive free-block link encoding shared by the thread cache,
// central cache, and page cache.
//
// Every block handed out for a request of n bytes has exactly
// SizeOf(ClassOf(n)) usable bytes, a multiple of Alignment. A free
// block stores a single machine pointer at offset 0 - the next free
// block in its list, or nil - and nothing else is initialized.
package sizeclass

import (
	"errors"
	"unsafe"
)

// ErrInvalidClass marks an out-of-range size-class index. Per
// spec.md §7 this is an internal, optional signal: callers that hit
// it act as though nothing happened (return nil, no-op) rather than
// surfacing an error to their own caller.
var ErrInvalidClass = errors.New("sizeclass: class index out of range")

const (
	// Alignment is the stride between size classes, in bytes.
	Alignment = 8

	// PageSize is the OS page granularity the page cache carves
	// spans out of.
	PageSize = 4096

	// SpanPages is the number of pages fetched from the page cache
	// on a central-cache miss for classes whose block fits in fewer
	// than SpanPages pages; larger classes fetch just enough pages
	// for one block.
	SpanPages = 8

	// MaxSmall is the largest request size served by the tiered
	// cache hierarchy. Anything larger falls through to a direct
	// mapping from the Pager, bypassing all three tiers.
	MaxSmall = 256 * 1024

	// NumClasses is the number of size classes covering
	// [Alignment, MaxSmall].
	NumClasses = MaxSmall / Alignment

	// DefaultThreshold is the default per-class cap on a thread
	// cache's retained block count before a drain is triggered.
	DefaultThreshold = 64
)

// RoundUp returns the least multiple of Alignment that is >= n.
func RoundUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// ClassOf returns the size class serving requests of n bytes.
// ClassOf is undefined for n > MaxSmall; callers must gate that case
// themselves (the large-object path never consults a size class).
func ClassOf(n int) int {
	if n < Alignment {
		n = Alignment
	}
	return (n+Alignment-1)/Alignment - 1
}

// SizeOf returns the block size, in bytes, of size class k.
func SizeOf(k int) int {
	return (k + 1) * Alignment
}

// PagesFor returns the number of OS pages needed to cover n bytes.
func PagesFor(n int) int {
	return (n + PageSize - 1) / PageSize
}

// NextOf reads the intrusive next-pointer stored at offset 0 of a
// free block starting at addr.
func NextOf(addr unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(addr)
}

// SetNext writes the intrusive next-pointer stored at offset 0 of a
// free block starting at addr.
func SetNext(addr, next unsafe.Pointer) {
	*(*unsafe.Pointer)(addr) = next
}

// ChainLen walks the intrusive free-list starting at head and returns
// its length. Used only off the hot path (refill bookkeeping).
func ChainLen(head unsafe.Pointer) int {
	n := 0
	for p := head; p != nil; p = NextOf(p) {
		n++
	}
	return n
}
