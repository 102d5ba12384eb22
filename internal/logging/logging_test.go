package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/policyqa/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewFiltersBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, "warn")
	logger.Info("backend.http.request")
	logger.Warn("backend.http.retry")
	require.NotContains(t, buf.String(), "backend.http.request")
	require.Contains(t, buf.String(), "backend.http.retry")
}

func TestOpenFileAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "policyqa.log")
	logger, closer, err := OpenFile(config.LogConfig{Level: "info", Path: path})
	require.NoError(t, err)
	logger.Info("tui.start")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "tui.start")
}
