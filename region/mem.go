package region

import (
	"fmt"

	"github.com/stablekit/stablekit/internal/format"
)

// Mem is a volatile in-memory Memory implementation.
//
// It enforces the same access rules as the durable implementation:
// reads and writes must land inside the current size, and growth happens
// in whole pages. It is the standard test double for the allocator and
// root persistence layers.
type Mem struct {
	data []byte
}

// NewMem returns an empty in-memory region of zero pages.
func NewMem() *Mem {
	return &Mem{}
}

// Read copies len(p) bytes starting at off into p.
func (m *Mem) Read(off uint64, p []byte) error {
	if err := m.check(off, uint64(len(p))); err != nil {
		return err
	}
	copy(p, m.data[off:])
	return nil
}

// Write copies p into the region starting at off.
func (m *Mem) Write(off uint64, p []byte) error {
	if err := m.check(off, uint64(len(p))); err != nil {
		return err
	}
	copy(m.data[off:], p)
	return nil
}

// SizeBytes reports the current region size in bytes.
func (m *Mem) SizeBytes() uint64 {
	return uint64(len(m.data))
}

// Grow extends the region by (delta>>16)+1 pages. New bytes read as zero.
func (m *Mem) Grow(delta uint64) error {
	pages := format.PagesFor(delta)
	m.data = append(m.data, make([]byte, pages*format.PageSize)...)
	return nil
}

func (m *Mem) check(off, n uint64) error {
	if off+n > uint64(len(m.data)) {
		return fmt.Errorf("%w: [%d,%d) size=%d", ErrOutOfBounds, off, off+n, len(m.data))
	}
	return nil
}

var _ Memory = (*Mem)(nil)
