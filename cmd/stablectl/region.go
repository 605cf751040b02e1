package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/stablekit/stablekit/internal/regionfile"
	"github.com/stablekit/stablekit/region/alloc"
	"github.com/stablekit/stablekit/region/root"
)

// openRegion opens an existing region file. It refuses to create one:
// every stablectl command is read-only.
func openRegion(path string) (*regionfile.File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("region file %s: %w", path, err)
	}
	return regionfile.Open(path)
}

// readSnapshot returns the committed snapshot's bytes and location.
func readSnapshot(f *regionfile.File) (data []byte, offset, length uint64, err error) {
	store := root.NewStore(f, nil)
	offset, length, err = store.Head()
	if err != nil {
		return nil, 0, 0, err
	}
	data = make([]byte, length)
	if err := f.Read(offset, data); err != nil {
		return nil, 0, 0, fmt.Errorf("read snapshot [%d,%d): %w", offset, offset+length, err)
	}
	return data, offset, length, nil
}

// findAllocatorState digs the embedded allocator state out of a root
// snapshot. The root object's schema belongs to the application, so the
// top-level fields are probed for the one that decodes as allocator
// state.
func findAllocatorState(snapshot []byte) (alloc.State, error) {
	var fields map[string]cbor.RawMessage
	if err := cbor.Unmarshal(snapshot, &fields); err != nil {
		return alloc.State{}, fmt.Errorf("decode snapshot envelope: %w", err)
	}
	for _, raw := range fields {
		var s alloc.State
		if err := cbor.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s.Boundary == 0 {
			continue
		}
		a := alloc.New(nil)
		if err := a.SetState(s); err != nil {
			continue
		}
		return s, nil
	}
	return alloc.State{}, errors.New("snapshot has no embedded allocator state")
}
