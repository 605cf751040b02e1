package alloc

import (
	"fmt"

	"github.com/google/btree"

	"github.com/stablekit/stablekit/internal/format"
)

// btreeDegree matches the default used elsewhere in the ecosystem; free
// lists here are small (tens to low thousands of segments).
const btreeDegree = 16

// Backing is the slice of the durable memory capability the allocator
// needs: current size and page-granular growth. It is implemented by
// region.Mem and internal/regionfile, and by counting doubles in tests.
type Backing interface {
	SizeBytes() uint64
	Grow(delta uint64) error
}

// Segment is a contiguous free range of the region address space.
type Segment struct {
	Start  uint64
	Length uint64
}

// End returns the first offset past the segment.
func (s Segment) End() uint64 {
	return s.Start + s.Length
}

func segLess(a, b Segment) bool {
	return a.Start < b.Start
}

// Allocator hands out byte ranges of a durable region.
//
// Invariants held at every quiescent point:
//   - free segments are non-overlapping and sorted by start offset
//   - no two free segments are adjacent (adjacency is merged eagerly)
//   - every offset in [format.HeaderSize, boundary) is either inside
//     exactly one free segment or currently allocated
//   - boundary <= backing.SizeBytes()
type Allocator struct {
	backing  Backing
	segs     *btree.BTreeG[Segment]
	boundary uint64
}

// New returns an empty allocator over b. Nothing is allocated; the
// boundary starts just past the root header.
func New(b Backing) *Allocator {
	return &Allocator{
		backing:  b,
		segs:     btree.NewG(btreeDegree, segLess),
		boundary: format.HeaderSize,
	}
}

// Attach sets the backing region. It is used after deserializing an
// allocator, which restores the free list and boundary but cannot restore
// the backing handle.
func (a *Allocator) Attach(b Backing) {
	a.backing = b
}

// Alloc returns the start offset of an n-byte region. It never fails:
// if the backing region cannot grow, the durable store is exhausted and
// the allocator panics.
func (a *Allocator) Alloc(n uint64) uint64 {
	if n == 0 {
		panic("alloc: zero-length allocation")
	}

	// Best-fit scan with exact-match early exit.
	var best Segment
	found := false
	a.segs.Ascend(func(s Segment) bool {
		if s.Length >= n && (!found || s.Length < best.Length) {
			best = s
			found = true
			if s.Length == n {
				return false
			}
		}
		return true
	})

	if found {
		a.segs.Delete(best)
		if best.Length > n {
			a.segs.ReplaceOrInsert(Segment{Start: best.Start + n, Length: best.Length - n})
		}
		return best.Start
	}

	// No segment fits: allocate at the frontier. Growth is sized by the
	// deficit past the current region size, not by n: on a fresh region
	// the boundary already sits past size zero (the reserved header),
	// and growing by n alone would leave that gap unpaid.
	off := a.boundary
	a.boundary += n
	if size := a.backing.SizeBytes(); a.boundary > size {
		deficit := a.boundary - size
		if err := a.backing.Grow(deficit); err != nil {
			panic(fmt.Sprintf("alloc: cannot grow durable region by %d bytes: %v", deficit, err))
		}
	}
	return off
}

// Free returns the region [off, off+n) to the free list, merging with
// adjacent free segments. Freeing a range that was not allocated, or that
// overlaps a stored free segment, indicates allocator corruption and
// panics.
func (a *Allocator) Free(off, n uint64) {
	if n == 0 {
		panic("alloc: zero-length free")
	}
	if off < format.HeaderSize || off+n > a.boundary {
		panic(fmt.Sprintf("alloc: free of [%d,%d) outside managed space [%d,%d)",
			off, off+n, format.HeaderSize, a.boundary))
	}

	// Nearest free segment strictly before off.
	var left Segment
	haveLeft := false
	a.segs.DescendLessOrEqual(Segment{Start: off}, func(s Segment) bool {
		if s.Start == off {
			panic(fmt.Sprintf("alloc: double free at offset %d", off))
		}
		left = s
		haveLeft = true
		return false
	})
	if haveLeft && left.End() > off {
		panic(fmt.Sprintf("alloc: free of [%d,%d) overlaps free segment [%d,%d)",
			off, off+n, left.Start, left.End()))
	}

	// Nearest free segment at or after off; it must not start inside the
	// freed range.
	var right Segment
	haveRight := false
	a.segs.AscendGreaterOrEqual(Segment{Start: off}, func(s Segment) bool {
		right = s
		haveRight = true
		return false
	})
	if haveRight && right.Start < off+n {
		panic(fmt.Sprintf("alloc: free of [%d,%d) overlaps free segment [%d,%d)",
			off, off+n, right.Start, right.End()))
	}

	leftAdj := haveLeft && left.End() == off
	rightAdj := haveRight && right.Start == off+n

	switch {
	case leftAdj && rightAdj:
		a.segs.Delete(left)
		a.segs.Delete(right)
		a.segs.ReplaceOrInsert(Segment{Start: left.Start, Length: left.Length + n + right.Length})
	case rightAdj:
		a.segs.Delete(right)
		a.segs.ReplaceOrInsert(Segment{Start: off, Length: n + right.Length})
	case leftAdj:
		a.segs.ReplaceOrInsert(Segment{Start: left.Start, Length: left.Length + n})
	default:
		a.segs.ReplaceOrInsert(Segment{Start: off, Length: n})
	}
}

// Reserve carves [off, off+n) out of free space, marking it allocated.
//
// It is used on restore to re-account the live root snapshot, whose
// allocation postdates the allocator state embedded in that snapshot.
// The range must lie beyond the boundary or wholly inside one free
// segment; anything else indicates a corrupt snapshot and panics.
func (a *Allocator) Reserve(off, n uint64) {
	if n == 0 {
		return
	}
	if off < format.HeaderSize {
		panic(fmt.Sprintf("alloc: reserve of [%d,%d) inside reserved header", off, off+n))
	}

	if off >= a.boundary {
		// The range was allocated at the frontier. The gap below it, if
		// any, stays reachable as a free segment.
		if off > a.boundary {
			a.segs.ReplaceOrInsert(Segment{Start: a.boundary, Length: off - a.boundary})
		}
		a.boundary = off + n
		return
	}

	var host Segment
	haveHost := false
	a.segs.DescendLessOrEqual(Segment{Start: off}, func(s Segment) bool {
		host = s
		haveHost = true
		return false
	})
	if !haveHost || host.Start > off || host.End() < off+n {
		panic(fmt.Sprintf("alloc: reserve of [%d,%d) not covered by a free segment", off, off+n))
	}

	a.segs.Delete(host)
	if off > host.Start {
		a.segs.ReplaceOrInsert(Segment{Start: host.Start, Length: off - host.Start})
	}
	if host.End() > off+n {
		a.segs.ReplaceOrInsert(Segment{Start: off + n, Length: host.End() - (off + n)})
	}
}

// Boundary returns the allocation frontier: the first offset never yet
// claimed by any allocation.
func (a *Allocator) Boundary() uint64 {
	return a.boundary
}

// Segments returns the free list in ascending start order.
func (a *Allocator) Segments() []Segment {
	out := make([]Segment, 0, a.segs.Len())
	a.segs.Ascend(func(s Segment) bool {
		out = append(out, s)
		return true
	})
	return out
}

// FreeBytes returns the total size of all free segments.
func (a *Allocator) FreeBytes() uint64 {
	var total uint64
	a.segs.Ascend(func(s Segment) bool {
		total += s.Length
		return true
	})
	return total
}
