package alloc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/btree"

	"github.com/stablekit/stablekit/internal/format"
)

// State is the serializable form of an allocator: the boundary plus the
// free list as an offset -> length map. It is what lands inside the root
// snapshot, so a restore reconstructs exact allocator state instead of
// recomputing it.
type State struct {
	Boundary uint64            `cbor:"boundary"`
	Segments map[uint64]uint64 `cbor:"segments"`
}

// encMode is the deterministic CBOR encoder shared by the package.
// Canonical map ordering keeps equal states byte-identical.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// State captures the current allocator state.
func (a *Allocator) State() State {
	s := State{
		Boundary: a.boundary,
		Segments: make(map[uint64]uint64, a.segs.Len()),
	}
	a.segs.Ascend(func(seg Segment) bool {
		s.Segments[seg.Start] = seg.Length
		return true
	})
	return s
}

// SetState replaces the allocator state. The backing handle is preserved.
func (a *Allocator) SetState(s State) error {
	if s.Boundary < format.HeaderSize {
		return fmt.Errorf("alloc: state boundary %d inside reserved header", s.Boundary)
	}
	segs := btree.NewG(btreeDegree, segLess)
	for start, length := range s.Segments {
		if length == 0 || start < format.HeaderSize || start+length > s.Boundary {
			return fmt.Errorf("alloc: state segment [%d,%d) outside [%d,%d)",
				start, start+length, format.HeaderSize, s.Boundary)
		}
		segs.ReplaceOrInsert(Segment{Start: start, Length: length})
	}
	a.segs = segs
	a.boundary = s.Boundary
	return nil
}

// MarshalCBOR implements cbor.Marshaler so the allocator can be embedded
// directly in an application root object.
func (a *Allocator) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(a.State())
}

// UnmarshalCBOR implements cbor.Unmarshaler. The backing region must be
// re-attached with Attach before the next growth-path allocation.
func (a *Allocator) UnmarshalCBOR(data []byte) error {
	var s State
	if err := cbor.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("alloc: decode state: %w", err)
	}
	return a.SetState(s)
}
