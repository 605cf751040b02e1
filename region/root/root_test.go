package root

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablekit/stablekit/internal/format"
	"github.com/stablekit/stablekit/region"
	"github.com/stablekit/stablekit/region/alloc"
)

// appState is a miniature application root object: some payload plus the
// allocator that manages the region it lives in.
type appState struct {
	Memory   *alloc.Allocator  `cbor:"memory"`
	Counters map[string]uint64 `cbor:"counters"`
	Journal  []string          `cbor:"journal"`
}

func (s *appState) Allocator() *alloc.Allocator { return s.Memory }

func newTestStore(t *testing.T) (*Store, *region.Mem, *appState) {
	t.Helper()
	mem := region.NewMem()
	state := &appState{
		Memory:   alloc.New(mem),
		Counters: map[string]uint64{},
	}
	return NewStore(mem, nil), mem, state
}

func TestRestore_EmptyRegion(t *testing.T) {
	store, _, state := newTestStore(t)
	err := store.Restore(state)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestPersistRestore_RoundTrip(t *testing.T) {
	store, mem, state := newTestStore(t)
	state.Counters["posts"] = 7
	state.Journal = []string{"genesis", "second"}

	require.NoError(t, store.Persist(state))

	restored := &appState{}
	require.NoError(t, NewStore(mem, nil).Restore(restored))

	assert.Equal(t, state.Counters, restored.Counters)
	assert.Equal(t, state.Journal, restored.Journal)

	// Reserving the live snapshot on restore must land the allocator in
	// the same state the writer was left in after placing it.
	assert.Equal(t, state.Memory.Boundary(), restored.Memory.Boundary())
	assert.Equal(t, state.Memory.Segments(), restored.Memory.Segments())
}

func TestPersistRestore_WithNonEmptyFreeList(t *testing.T) {
	store, mem, state := newTestStore(t)

	// Build up a fragmented allocator: three app allocations, middle freed.
	a := state.Memory
	first := a.Alloc(64)
	second := a.Alloc(32)
	a.Alloc(16)
	a.Free(second, 32)
	_ = first

	state.Counters["fragmented"] = 1
	require.NoError(t, store.Persist(state))

	restored := &appState{}
	require.NoError(t, NewStore(mem, nil).Restore(restored))

	assert.Equal(t, a.Boundary(), restored.Memory.Boundary())
	assert.Equal(t, a.Segments(), restored.Memory.Segments())
	assert.NotEmpty(t, restored.Memory.Segments(), "free list must survive the round trip")
}

func TestRestore_RetainsPriorGenerationRange(t *testing.T) {
	store, mem, state := newTestStore(t)
	require.NoError(t, store.Persist(state))
	prevOff, prevLen, err := store.Head()
	require.NoError(t, err)
	require.NoError(t, store.Persist(state))

	restored := &appState{}
	require.NoError(t, NewStore(mem, nil).Restore(restored))

	// The embedded allocator state predates the free of the previous
	// snapshot, so its range stays accounted as allocated after a
	// restore: one stranded generation, no free-list corruption.
	assert.Equal(t, state.Memory.FreeBytes()-prevLen, restored.Memory.FreeBytes())
	for _, seg := range restored.Memory.Segments() {
		assert.False(t, seg.Start <= prevOff && prevOff < seg.End(),
			"prior snapshot range [%d,%d) must not be free after restore", prevOff, prevOff+prevLen)
	}

	// Reclamation resumes normally from the restored state.
	require.NoError(t, NewStore(mem, nil).Persist(restored))
	next := &appState{}
	require.NoError(t, NewStore(mem, nil).Restore(next))
	assert.Equal(t, restored.Counters, next.Counters)
}

func TestPersist_HeaderIsBitExact(t *testing.T) {
	store, mem, state := newTestStore(t)
	require.NoError(t, store.Persist(state))

	off, length, err := store.Head()
	require.NoError(t, err)

	hdr := make([]byte, format.HeaderSize)
	require.NoError(t, mem.Read(0, hdr))
	assert.Equal(t, off, format.ReadU64(hdr, format.RootOffsetField))
	assert.Equal(t, length, format.ReadU64(hdr, format.RootLengthField))
	assert.Equal(t, uint64(format.HeaderSize), off, "first snapshot sits right after the header")
}

func TestPersist_FreesPreviousSnapshot(t *testing.T) {
	store, _, state := newTestStore(t)

	require.NoError(t, store.Persist(state))
	prevOff, prevLen, err := store.Head()
	require.NoError(t, err)

	state.Counters["generation"] = 2
	require.NoError(t, store.Persist(state))

	// The superseded snapshot's exact range is back on the free list.
	found := false
	for _, seg := range state.Memory.Segments() {
		if seg.Start <= prevOff && seg.End() >= prevOff+prevLen {
			found = true
		}
	}
	assert.True(t, found, "previous snapshot [%d,%d) must be reclaimed; free list: %v",
		prevOff, prevOff+prevLen, state.Memory.Segments())
}

func TestRestore_CorruptSnapshotIsFatal(t *testing.T) {
	store, mem, state := newTestStore(t)
	require.NoError(t, store.Persist(state))

	off, length, err := store.Head()
	require.NoError(t, err)

	// Stomp the committed snapshot bytes.
	garbage := make([]byte, length)
	for i := range garbage {
		garbage[i] = 0xFF
	}
	require.NoError(t, mem.Write(off, garbage))

	err = NewStore(mem, nil).Restore(&appState{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot, "corruption is not the same as absence")
}

func TestRestore_HeaderOutsideRegion(t *testing.T) {
	store, mem, state := newTestStore(t)
	require.NoError(t, store.Persist(state))

	hdr := make([]byte, format.HeaderSize)
	format.PutU64(hdr, format.RootOffsetField, 1<<40)
	format.PutU64(hdr, format.RootLengthField, 64)
	require.NoError(t, mem.Write(0, hdr))

	err := NewStore(mem, nil).Restore(&appState{})
	assert.Error(t, err)
}

// TestPersist_MultipleGenerations exercises the full lifecycle across a
// restart: several persists, a restore, further mutation, another persist,
// and a final restore. Reserve-on-restore must keep the allocator
// bookkeeping sound through the whole sequence.
func TestPersist_MultipleGenerations(t *testing.T) {
	store, mem, state := newTestStore(t)

	for gen := uint64(1); gen <= 3; gen++ {
		state.Counters["generation"] = gen
		state.Journal = append(state.Journal, "entry")
		require.NoError(t, store.Persist(state))
	}

	// Restart.
	mid := &appState{}
	require.NoError(t, NewStore(mem, nil).Restore(mid))
	assert.Equal(t, uint64(3), mid.Counters["generation"])

	mid.Counters["generation"] = 4
	store2 := NewStore(mem, nil)
	require.NoError(t, store2.Persist(mid))

	final := &appState{}
	require.NoError(t, NewStore(mem, nil).Restore(final))
	assert.Equal(t, uint64(4), final.Counters["generation"])
	assert.Len(t, final.Journal, 3)
	assert.Equal(t, mid.Memory.Boundary(), final.Memory.Boundary())
	assert.Equal(t, mid.Memory.Segments(), final.Memory.Segments())
}
