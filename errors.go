package tcpool

import "errors"

// Sentinel errors. ErrOutOfMemory wraps a failed large-object mapping
// in the warning the Pool logs; ErrInvalidClass is not referenced by
// this module's code (the central cache reports out-of-range classes
// with sizeclass.ErrInvalidClass). Neither ever escapes the public
// Allocate/Deallocate API: a nil pointer is the sole out-of-memory
// signal there.
var (
	ErrOutOfMemory  = errors.New("tcpool: out of memory")
	ErrInvalidClass = errors.New("tcpool: invalid size class")
)
