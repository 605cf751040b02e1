package regionfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablekit/stablekit/internal/format"
	"github.com/stablekit/stablekit/region"
	"github.com/stablekit/stablekit/region/alloc"
)

func openTemp(t *testing.T) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "region.dat")
	f, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, path
}

func TestOpen_CreatesEmptyFile(t *testing.T) {
	f, path := openTemp(t)
	assert.Zero(t, f.SizeBytes())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestGrow_ExtendsInWholePages(t *testing.T) {
	f, _ := openTemp(t)

	require.NoError(t, f.Grow(1))
	assert.Equal(t, uint64(format.PageSize), f.SizeBytes())

	require.NoError(t, f.Grow(format.PageSize))
	assert.Equal(t, uint64(3*format.PageSize), f.SizeBytes())
}

func TestReadWrite_RoundTrip(t *testing.T) {
	f, _ := openTemp(t)
	require.NoError(t, f.Grow(1))

	want := []byte("persistent bytes")
	require.NoError(t, f.Write(100, want))

	got := make([]byte, len(want))
	require.NoError(t, f.Read(100, got))
	assert.Equal(t, want, got)
}

func TestAccess_OutOfBounds(t *testing.T) {
	f, _ := openTemp(t)
	require.NoError(t, f.Grow(1))

	p := make([]byte, 8)
	require.ErrorIs(t, f.Read(format.PageSize-4, p), region.ErrOutOfBounds)
	require.ErrorIs(t, f.Write(format.PageSize-4, p), region.ErrOutOfBounds)
}

func TestReopen_KeepsContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.dat")

	f, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Grow(1))
	require.NoError(t, f.Write(16, []byte("survives restart")))
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	f, err = Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, uint64(format.PageSize), f.SizeBytes())

	got := make([]byte, 16)
	require.NoError(t, f.Read(16, got))
	assert.Equal(t, []byte("survives restart"), got)
}

func TestOpen_RejectsMisalignedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.dat")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrMisaligned)
}

func TestGrow_NewBytesReadZero(t *testing.T) {
	f, _ := openTemp(t)
	require.NoError(t, f.Grow(1))
	require.NoError(t, f.Write(0, []byte{0xff, 0xff}))
	require.NoError(t, f.Grow(1))

	got := make([]byte, 8)
	require.NoError(t, f.Read(format.PageSize, got))
	assert.Equal(t, make([]byte, 8), got)
}

func TestFile_BacksAllocator(t *testing.T) {
	f, _ := openTemp(t)
	a := alloc.New(f)

	off := a.Alloc(64)
	require.NoError(t, f.Write(off, []byte("allocated")))

	got := make([]byte, 9)
	require.NoError(t, f.Read(off, got))
	assert.Equal(t, []byte("allocated"), got)
}
