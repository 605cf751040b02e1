package shardserver

import (
	"errors"
	"fmt"

	"github.com/stablekit/stablekit/internal/format"
	"github.com/stablekit/stablekit/region"
)

// ErrBadRange indicates a read request outside the written blob log.
var ErrBadRange = errors.New("shardserver: read outside blob log")

// Store is the shard's append-only blob log: a bump pointer over a
// durable region. Offset 0 holds the big-endian end offset; blobs are
// appended from format.HeaderSize. There is no free list and no reuse;
// the pool retires a full shard by routing new blobs elsewhere.
type Store struct {
	mem region.Memory
	end uint64
}

// NewStore opens the blob log in mem. An empty region is initialized to
// one page with an empty log; otherwise the end offset is read back from
// the header and validated against the region size.
func NewStore(mem region.Memory) (*Store, error) {
	if mem.SizeBytes() == 0 {
		if err := mem.Grow(1); err != nil {
			return nil, fmt.Errorf("shardserver: initialize region: %w", err)
		}
		s := &Store{mem: mem, end: format.HeaderSize}
		if err := s.writeHeader(); err != nil {
			return nil, err
		}
		return s, nil
	}

	var buf [8]byte
	if err := mem.Read(0, buf[:]); err != nil {
		return nil, fmt.Errorf("shardserver: read header: %w", err)
	}
	end := format.ReadU64(buf[:], 0)
	if end < format.HeaderSize || end > mem.SizeBytes() {
		return nil, fmt.Errorf("shardserver: header end offset %d outside region of %d bytes", end, mem.SizeBytes())
	}
	return &Store{mem: mem, end: end}, nil
}

// Append writes blob at the current end of the log and returns the
// offset it was stored at. The header is updated after the blob bytes
// land, so a crash mid-append leaves the previous log intact.
func (s *Store) Append(blob []byte) (uint64, error) {
	off := s.end
	need := off + uint64(len(blob))
	for need > s.mem.SizeBytes() {
		if err := s.mem.Grow(need - s.mem.SizeBytes()); err != nil {
			return 0, fmt.Errorf("shardserver: grow to %d bytes: %w", need, err)
		}
	}
	if err := s.mem.Write(off, blob); err != nil {
		return 0, fmt.Errorf("shardserver: append %d bytes: %w", len(blob), err)
	}
	s.end = need
	if err := s.writeHeader(); err != nil {
		return 0, err
	}
	return off, nil
}

// ReadBlob returns n bytes starting at off. The range must lie entirely
// inside the written log.
func (s *Store) ReadBlob(off, n uint64) ([]byte, error) {
	if off < format.HeaderSize || off+n > s.end {
		return nil, fmt.Errorf("%w: [%d,%d) end=%d", ErrBadRange, off, off+n, s.end)
	}
	p := make([]byte, n)
	if err := s.mem.Read(off, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Used reports the end of the log: header plus all appended blob bytes.
func (s *Store) Used() uint64 {
	return s.end
}

// Sync flushes the backing region when it supports it.
func (s *Store) Sync() error {
	if f, ok := s.mem.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (s *Store) writeHeader() error {
	var buf [8]byte
	format.PutU64(buf[:], 0, s.end)
	if err := s.mem.Write(0, buf[:]); err != nil {
		return fmt.Errorf("shardserver: write header: %w", err)
	}
	return nil
}
