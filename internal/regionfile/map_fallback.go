//go:build !unix

package regionfile

import "os"

// Without mmap the File works directly against the descriptor with
// ReadAt and WriteAt; mapFile reporting a nil view selects that path.

func mapFile(f *os.File, size uint64) ([]byte, error) {
	return nil, nil
}

func unmapFile(data []byte) error {
	return nil
}

func syncMap(data []byte) error {
	return nil
}
