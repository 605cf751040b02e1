package shardserver

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablekit/stablekit/internal/format"
)

func newTestServer(t *testing.T, maxBytes uint64) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir(), MaxBytes: maxBytes}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestServer_WriteReturnsBigEndianOffset(t *testing.T) {
	_, ts := newTestServer(t, 1<<20)

	resp, err := http.Post(ts.URL+"/v1/write", "application/octet-stream", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Len(t, body, 8)
	assert.Equal(t, uint64(format.HeaderSize), format.ReadU64(body, 0))
}

func TestServer_WriteThenRead(t *testing.T) {
	_, ts := newTestServer(t, 1<<20)

	resp, err := http.Post(ts.URL+"/v1/write", "application/octet-stream", bytes.NewReader([]byte("round trip")))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	off := format.ReadU64(body, 0)

	resp, err = http.Get(fmt.Sprintf("%s/v1/read?offset=%d&len=%d", ts.URL, off, 10))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("round trip"), got)
}

func TestServer_CapacityRejectsWith413(t *testing.T) {
	_, ts := newTestServer(t, format.HeaderSize+4)

	resp, err := http.Post(ts.URL+"/v1/write", "application/octet-stream", bytes.NewReader([]byte("too large")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	// A blob that fits still goes through.
	resp, err = http.Post(ts.URL+"/v1/write", "application/octet-stream", bytes.NewReader([]byte("ok")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_InstallStoresPayload(t *testing.T) {
	s, ts := newTestServer(t, 1<<20)

	resp, err := http.Post(ts.URL+"/v1/install", "application/octet-stream", bytes.NewReader([]byte{0xCA, 0xFE}))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	stored, err := os.ReadFile(filepath.Join(s.cfg.DataDir, "payload.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCA, 0xFE}, stored)
}

func TestServer_InstallRejectsEmptyPayload(t *testing.T) {
	_, ts := newTestServer(t, 1<<20)

	resp, err := http.Post(ts.URL+"/v1/upgrade", "application/octet-stream", bytes.NewReader(nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Healthz(t *testing.T) {
	_, ts := newTestServer(t, 1<<20)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_IdentitySurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(Config{DataDir: dir, MaxBytes: 1 << 20}, nil)
	require.NoError(t, err)
	id := s1.ID()
	_, err = ulid.ParseStrict(id)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := New(Config{DataDir: dir, MaxBytes: 1 << 20}, nil)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, id, s2.ID())
}
