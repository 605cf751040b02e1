//go:build unix

package regionfile

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func unmapFile(data []byte) error {
	if data == nil {
		return nil
	}
	return unix.Munmap(data)
}

func syncMap(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}
