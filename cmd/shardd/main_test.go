package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablekit/stablekit/internal/confloader"
)

func TestNewLogger_SetsLevelVar(t *testing.T) {
	level := new(slog.LevelVar)
	logger, err := newLogger(confloader.LogConfig{Level: "warn", Format: "json"}, level)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, slog.LevelWarn, level.Level())
}

func TestNewLogger_RejectsBadInput(t *testing.T) {
	level := new(slog.LevelVar)
	_, err := newLogger(confloader.LogConfig{Level: "loud", Format: "text"}, level)
	require.Error(t, err)

	_, err = newLogger(confloader.LogConfig{Level: "info", Format: "xml"}, level)
	require.Error(t, err)
}

func TestWatchLogConfig_AppliesRewrittenLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	level := new(slog.LevelVar)
	logger, err := newLogger(confloader.LogConfig{Level: "info", Format: "text"}, level)
	require.NoError(t, err)

	stop, err := watchLogConfig(path, logger, level)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for level.Level() != slog.LevelError {
		if time.Now().After(deadline) {
			t.Fatal("rewritten log level was not applied")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchLogConfig_KeepsLevelOnBadRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	level := new(slog.LevelVar)
	logger, err := newLogger(confloader.LogConfig{Level: "debug", Format: "text"}, level)
	require.NoError(t, err)

	stop, err := watchLogConfig(path, logger, level)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

	// The reload is rejected; the running level must not move.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, slog.LevelDebug, level.Level())
}
