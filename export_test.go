package stopmotion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/stopmotion/framestore"
	"github.com/teranos/stopmotion/trip"
)

func exportFixture(t *testing.T, names ...string) (*framestore.Store, []Frame) {
	t.Helper()
	root := t.TempDir()
	store := framestore.New(
		filepath.Join(root, "img"),
		filepath.Join(root, "img_hires"),
		filepath.Join(root, "export"),
		0, nil,
	)
	require.NoError(t, store.EnsureDirs())

	var frames []Frame
	for _, name := range names {
		lo := filepath.Join(store.WorkingDir(), name)
		hi := store.ArchivePath(lo)
		require.NoError(t, os.WriteFile(lo, []byte("lo "+name), 0644))
		require.NoError(t, os.WriteFile(hi, []byte("hi "+name), 0644))
		frames = append(frames, Frame{Name: name, Path: lo, ArchivePath: hi})
	}
	return store, frames
}

func TestExport_RenumbersContiguously(t *testing.T) {
	store, frames := exportFixture(t, "capture_000.png", "capture_003.png", "capture_007.png")

	report, err := Export(store, frames, nil)
	require.NoError(t, err)
	assert.True(t, report.OK())

	for i, f := range frames {
		data, err := os.ReadFile(store.ExportPath(i))
		require.NoError(t, err)
		assert.Equal(t, "hi "+f.Name, string(data))
	}
	assert.Equal(t, []string{store.ExportPath(0), store.ExportPath(1), store.ExportPath(2)}, report.Written)
}

func TestExport_MissingArchiveIsReportedPerFrame(t *testing.T) {
	store, frames := exportFixture(t, "capture_000.png", "capture_001.png", "capture_002.png")
	require.NoError(t, os.Remove(frames[1].ArchivePath))

	report, err := Export(store, frames, nil)
	require.Error(t, err)
	assert.True(t, trip.IsKind(err, trip.Storage))

	require.Len(t, report.Failed, 1)
	failed := report.Failed[0]
	assert.Equal(t, trip.Stumble, failed.Severity)
	assert.Equal(t, "capture_001.png", failed.Context["frame"])
	assert.Equal(t, 1, failed.Context["position"])

	assert.Equal(t, []string{store.ExportPath(0), store.ExportPath(2)}, report.Written)
	assert.FileExists(t, store.ExportPath(2), "export continues past a failed frame")
	assert.NoFileExists(t, store.ExportPath(1))
}

func TestExport_EmptyIsNoop(t *testing.T) {
	store, _ := exportFixture(t)
	stale := store.ExportPath(0)
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	report, err := Export(store, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Written)
	assert.FileExists(t, stale, "an empty export leaves the directory alone")
}

func TestExport_ReplacesPreviousExport(t *testing.T) {
	store, frames := exportFixture(t, "capture_000.png", "capture_001.png", "capture_002.png")
	_, err := Export(store, frames, nil)
	require.NoError(t, err)

	_, err = Export(store, frames[:1], nil)
	require.NoError(t, err)

	paths, err := framestore.List(store.ExportDir())
	require.NoError(t, err)
	assert.Equal(t, []string{store.ExportPath(0)}, paths)
}
