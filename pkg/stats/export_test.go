package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExportXLSXProducesNonEmptyWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	a, err := New(Config{LogPath: path, BatchSize: 2, Clock: func() time.Time { return time.Unix(1, 0) }})
	require.NoError(t, err)
	defer a.Close()

	a.RecordRequest(agentWinsRecord("r-1"))
	a.RecordRequest(plannerWinsRecord("r-2"))

	data, err := a.ExportXLSX()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	// an xlsx file is a zip archive; its local file header signature is "PK".
	require.Equal(t, byte('P'), data[0])
	require.Equal(t, byte('K'), data[1])
}

func TestExportXLSXWithNoRequestsStillProducesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	a, err := New(Config{LogPath: path})
	require.NoError(t, err)
	defer a.Close()

	data, err := a.ExportXLSX()
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
