package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNoopWhenDisabled(t *testing.T) {
	l, err := New(Config{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, l.Log(context.Background(), Allocation("r1", "n1", "uplink", 2)))
	require.NoError(t, l.Close())
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(Config{Enabled: true, Backend: "carrier-pigeon"})
	require.Error(t, err)
}

func TestFileLoggerAppendsEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")
	l, err := New(Config{Enabled: true, Backend: "file", FilePath: path})
	require.NoError(t, err)

	require.NoError(t, l.Log(context.Background(), Allocation("r1", "gs-1", "uplink", 2.0)))
	require.NoError(t, l.Log(context.Background(), Release("r1", "gs-1", "uplink", 2.0, "timeout")))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "ALLOCATE")
	require.Contains(t, string(data), "RELEASE")
}

func TestReleaseCarriesReason(t *testing.T) {
	e := Release("r9", "gs-2", "downlink", 5, "timeout")
	require.Equal(t, ActionRelease, e.Action)
	require.Equal(t, "timeout", e.Reason)
}
