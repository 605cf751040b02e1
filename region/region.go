package region

import "errors"

// ErrOutOfBounds indicates a read or write beyond the current region size.
// Addresses are handed out by the segment allocator, so an out-of-bounds
// access means allocator state and region size have diverged.
var ErrOutOfBounds = errors.New("region: access beyond region size")

// Memory is the durable memory capability: a linearly-addressed byte
// region that persists across restarts and grows in whole pages.
//
// Implementations:
//   - Mem: volatile in-memory region (tests, tooling)
//   - internal/regionfile: mmap-backed file region (production)
type Memory interface {
	// Read copies len(p) bytes starting at off into p.
	Read(off uint64, p []byte) error

	// Write copies p into the region starting at off. The destination
	// range must already be within the region size.
	Write(off uint64, p []byte) error

	// SizeBytes reports the current region size. Always a multiple of
	// the page size.
	SizeBytes() uint64

	// Grow extends the region by at least delta bytes, rounded to whole
	// pages. New bytes read as zero.
	Grow(delta uint64) error
}
