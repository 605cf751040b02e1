package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablekit/stablekit/internal/format"
)

func TestMem_StartsEmpty(t *testing.T) {
	m := NewMem()
	assert.Equal(t, uint64(0), m.SizeBytes())

	err := m.Read(0, make([]byte, 1))
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMem_GrowIsPageGranular(t *testing.T) {
	m := NewMem()

	require.NoError(t, m.Grow(1))
	assert.Equal(t, uint64(format.PageSize), m.SizeBytes())

	// A page-aligned delta still adds a trailing page.
	require.NoError(t, m.Grow(format.PageSize))
	assert.Equal(t, uint64(3*format.PageSize), m.SizeBytes())
}

func TestMem_ReadWriteRoundTrip(t *testing.T) {
	m := NewMem()
	require.NoError(t, m.Grow(1))

	payload := []byte("durable enough for a test")
	require.NoError(t, m.Write(128, payload))

	got := make([]byte, len(payload))
	require.NoError(t, m.Read(128, got))
	assert.Equal(t, payload, got)

	// Untouched bytes read as zero.
	zero := make([]byte, 8)
	require.NoError(t, m.Read(0, zero))
	assert.Equal(t, make([]byte, 8), zero)
}

func TestMem_WriteBeyondSizeFails(t *testing.T) {
	m := NewMem()
	require.NoError(t, m.Grow(1))

	err := m.Write(format.PageSize-4, []byte("12345678"))
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
