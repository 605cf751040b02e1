package regionfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/stablekit/stablekit/internal/format"
	"github.com/stablekit/stablekit/region"
)

// ErrMisaligned indicates an existing data file whose size is not a whole
// number of pages. Such a file was not produced by this package.
var ErrMisaligned = errors.New("regionfile: file size is not page-aligned")

// File is a page-structured data file exposed as a region.Memory. A new
// file starts at zero pages; Grow extends it with ftruncate and the new
// pages read as zero.
type File struct {
	f    *os.File
	data []byte // mmap view; nil when the platform has no mmap
	size uint64
}

// Open opens the data file at path, creating it empty if it does not
// exist.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("regionfile: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("regionfile: stat %s: %w", path, err)
	}
	size := uint64(info.Size())
	if size%format.PageSize != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrMisaligned, path, size)
	}
	data, err := mapFile(f, size)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("regionfile: map %s: %w", path, err)
	}
	return &File{f: f, data: data, size: size}, nil
}

// Read copies len(p) bytes starting at off into p.
func (r *File) Read(off uint64, p []byte) error {
	if err := r.check(off, uint64(len(p))); err != nil {
		return err
	}
	if r.data != nil {
		copy(p, r.data[off:])
		return nil
	}
	if _, err := r.f.ReadAt(p, int64(off)); err != nil {
		return fmt.Errorf("regionfile: read [%d,%d): %w", off, off+uint64(len(p)), err)
	}
	return nil
}

// Write copies p into the region starting at off.
func (r *File) Write(off uint64, p []byte) error {
	if err := r.check(off, uint64(len(p))); err != nil {
		return err
	}
	if r.data != nil {
		copy(r.data[off:], p)
		return nil
	}
	if _, err := r.f.WriteAt(p, int64(off)); err != nil {
		return fmt.Errorf("regionfile: write [%d,%d): %w", off, off+uint64(len(p)), err)
	}
	return nil
}

// SizeBytes reports the current file size. Always a multiple of the page
// size.
func (r *File) SizeBytes() uint64 {
	return r.size
}

// Grow extends the file by (delta>>16)+1 pages. The mapping is dropped
// and re-established at the new size, so any slices previously handed out
// by the mapping must not be retained across a Grow.
func (r *File) Grow(delta uint64) error {
	newSize := r.size + format.PagesFor(delta)*format.PageSize
	if err := unmapFile(r.data); err != nil {
		return fmt.Errorf("regionfile: unmap before grow: %w", err)
	}
	r.data = nil
	if err := r.f.Truncate(int64(newSize)); err != nil {
		return fmt.Errorf("regionfile: grow to %d bytes: %w", newSize, err)
	}
	data, err := mapFile(r.f, newSize)
	if err != nil {
		return fmt.Errorf("regionfile: remap after grow: %w", err)
	}
	r.data = data
	r.size = newSize
	return nil
}

// Sync flushes dirty pages to the file and the file to stable storage.
func (r *File) Sync() error {
	if r.data != nil {
		if err := syncMap(r.data); err != nil {
			return fmt.Errorf("regionfile: msync: %w", err)
		}
	}
	if err := r.f.Sync(); err != nil {
		return fmt.Errorf("regionfile: fsync: %w", err)
	}
	return nil
}

// Close drops the mapping and closes the file. The File must not be used
// afterwards.
func (r *File) Close() error {
	err := unmapFile(r.data)
	r.data = nil
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (r *File) check(off, n uint64) error {
	if off+n > r.size {
		return fmt.Errorf("%w: [%d,%d) size=%d", region.ErrOutOfBounds, off, off+n, r.size)
	}
	return nil
}

var _ region.Memory = (*File)(nil)
