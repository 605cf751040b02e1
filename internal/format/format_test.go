package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutReadU64_BigEndian(t *testing.T) {
	b := make([]byte, 16)

	PutU64(b, 0, 16)
	PutU64(b, 8, 0x0102030405060708)

	// Header fields are bit-exact big-endian: [0,8) offset, [8,16) length.
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 16}, b[:8])
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b[8:])

	assert.Equal(t, uint64(16), ReadU64(b, 0))
	assert.Equal(t, uint64(0x0102030405060708), ReadU64(b, 8))
}

func TestAppendU64(t *testing.T) {
	b := AppendU64(nil, 0xCAFE)
	assert.Len(t, b, 8)
	assert.Equal(t, uint64(0xCAFE), ReadU64(b, 0))
}

func TestPagesFor_AlwaysCovers(t *testing.T) {
	cases := []struct {
		delta uint64
		pages uint64
	}{
		{0, 1},
		{1, 1},
		{PageSize - 1, 1},
		{PageSize, 2},
		{PageSize + 1, 2},
		{3*PageSize + 77, 4},
	}
	for _, tc := range cases {
		got := PagesFor(tc.delta)
		assert.Equal(t, tc.pages, got, "PagesFor(%d)", tc.delta)
		assert.GreaterOrEqual(t, got*PageSize, tc.delta,
			"grown bytes must cover the requested delta")
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, uint64(0), PageCount(0))
	assert.Equal(t, uint64(1), PageCount(1))
	assert.Equal(t, uint64(1), PageCount(PageSize))
	assert.Equal(t, uint64(2), PageCount(PageSize+1))
}
