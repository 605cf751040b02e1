// Package root implements root snapshot persistence for a durable region.
//
// The application's root object - which embeds the segment allocator's own
// state - is serialized as CBOR, placed through the allocator, and
// published by overwriting the fixed two-field header at the start of the
// region. The header is written last: a crash before the header update
// leaves the previous committed snapshot intact, and recovery is simply
// reading whatever the header points at.
//
// The allocator state embedded in a snapshot predates the free of the
// previous generation, so after a restore that generation's range stays
// accounted as allocated. A restart therefore strands at most one
// snapshot's worth of space; the regular free-previous reclamation
// resumes with the next persist.
package root

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fxamacker/cbor/v2"

	"github.com/stablekit/stablekit/internal/format"
	"github.com/stablekit/stablekit/region"
	"github.com/stablekit/stablekit/region/alloc"
)

// ErrNoSnapshot indicates the region has no committed root snapshot.
// Fresh regions restore to this; anything else on a region that should
// hold data is a fatal startup condition.
var ErrNoSnapshot = errors.New("root: no committed snapshot")

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Object is the contract for application root objects. The embedded
// allocator must serialize with the object (see alloc.State), so that a
// restore reconstructs exact allocator state rather than recomputing it.
type Object interface {
	// Allocator returns the segment allocator owned by this root object.
	Allocator() *alloc.Allocator
}

// Store persists and restores the application root object on a durable
// region.
type Store struct {
	mem    region.Memory
	logger *slog.Logger
}

// NewStore returns a Store over mem.
func NewStore(mem region.Memory, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{mem: mem, logger: logger}
}

// Persist serializes root, places it through the root's allocator, writes
// the bytes, then publishes them by overwriting the header. The previously
// published snapshot region, if any, is freed only after the new header is
// in place, so superseded snapshots neither leak address space nor get
// clobbered inside the commit window.
func (s *Store) Persist(root Object) error {
	prevOff, prevLen, err := s.readHeader()
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return err
	}

	buf, err := encMode.Marshal(root)
	if err != nil {
		return fmt.Errorf("root: encode snapshot: %w", err)
	}

	a := root.Allocator()
	off := a.Alloc(uint64(len(buf)))
	if err := s.mem.Write(off, buf); err != nil {
		return fmt.Errorf("root: write snapshot at %d: %w", off, err)
	}

	// Publish. Both header fields go down in a single write so a reader
	// never observes a torn pair.
	hdr := make([]byte, format.HeaderSize)
	format.PutU64(hdr, format.RootOffsetField, off)
	format.PutU64(hdr, format.RootLengthField, uint64(len(buf)))
	if err := s.mem.Write(0, hdr); err != nil {
		return fmt.Errorf("root: write header: %w", err)
	}

	if prevLen > 0 {
		a.Free(prevOff, prevLen)
	}

	s.logger.Info("root snapshot persisted",
		"offset", off,
		"length", len(buf),
		"reclaimed", prevLen)
	return nil
}

// Restore reads the committed snapshot and decodes it into root. The
// decoded allocator is re-attached to the region and the live snapshot's
// own range is reserved in it, since that allocation postdates the
// allocator state embedded in the snapshot.
//
// A decode failure means the snapshot is truncated, corrupt, or from an
// incompatible schema; there is no secondary copy, so callers treat it as
// fatal.
func (s *Store) Restore(root Object) error {
	off, length, err := s.readHeader()
	if err != nil {
		return err
	}

	s.logger.Info("restoring root snapshot",
		"offset", off,
		"length", length,
		"region_size", s.mem.SizeBytes())

	buf := make([]byte, length)
	if err := s.mem.Read(off, buf); err != nil {
		return fmt.Errorf("root: read snapshot at [%d,%d): %w", off, off+length, err)
	}
	if err := cbor.Unmarshal(buf, root); err != nil {
		return fmt.Errorf("root: decode snapshot: %w", err)
	}

	a := root.Allocator()
	if a == nil {
		return errors.New("root: decoded object has no allocator")
	}
	a.Attach(s.mem)
	a.Reserve(off, length)
	return nil
}

// Head returns the committed snapshot coordinates without decoding it.
func (s *Store) Head() (offset, length uint64, err error) {
	return s.readHeader()
}

func (s *Store) readHeader() (uint64, uint64, error) {
	if s.mem.SizeBytes() < format.HeaderSize {
		return 0, 0, ErrNoSnapshot
	}
	hdr := make([]byte, format.HeaderSize)
	if err := s.mem.Read(0, hdr); err != nil {
		return 0, 0, fmt.Errorf("root: read header: %w", err)
	}
	off := format.ReadU64(hdr, format.RootOffsetField)
	length := format.ReadU64(hdr, format.RootLengthField)
	if length == 0 {
		return 0, 0, ErrNoSnapshot
	}
	if off < format.HeaderSize || off+length > s.mem.SizeBytes() {
		return 0, 0, fmt.Errorf("root: header points outside region: offset=%d length=%d size=%d",
			off, length, s.mem.SizeBytes())
	}
	return off, length, nil
}
