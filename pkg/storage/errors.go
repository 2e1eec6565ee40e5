package storage

import "errors"

// Error taxonomy for the storage core. Callers wrap these with fmt.Errorf's
// %w so context survives while errors.Is still matches the sentinel.
var (
	// ErrIO marks an underlying filesystem failure: open, seek, read,
	// write, or a short read/write.
	ErrIO = errors.New("storage: io error")

	// ErrCorruption marks a block that cannot be interpreted under the
	// schema or header layout it was read with.
	ErrCorruption = errors.New("storage: corruption")

	// ErrTupleTooLarge marks a tuple whose serialized form exceeds the
	// payload area of an empty page.
	ErrTupleTooLarge = errors.New("storage: tuple too large for an empty page")

	// ErrPoolExhausted marks a buffer pool with no free frame and no
	// unpinned frame to evict.
	ErrPoolExhausted = errors.New("storage: buffer pool exhausted")
)
