package pagecache

// Span is a contiguous run of OS pages owned by the page cache. A
// span is, at any instant, exactly one of: free and linked into
// freeSpans[Pages], live (handed out and carved into blocks by a
// central cache), or mid-transition under PageCache.mu.
type Span struct {
	Start uintptr // start address of the span
	Pages int     // length of the span, in pages

	next *Span // intrusive link within freeSpans[Pages]; nil outside that list
}

// Bytes returns the span's length in bytes.
func (s *Span) Bytes(pageSize int) int {
	return s.Pages * pageSize
}

// spanBucket is the value stored in the freeSpans ordered map: the
// head of the singly-linked list of free spans with exactly Pages
// pages. Kept as its own type (rather than keying the tree directly
// on *Span) so the bucket survives head updates without a tree
// reinsert - only emptying the bucket requires a tree delete.
type spanBucket struct {
	pages int
	head  *Span
}

// addrEntry is the value stored in the spanByAddr ordered map.
type addrEntry struct {
	addr uintptr
	span *Span
}
