package stopmotion

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/stopmotion/camera"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stopmotion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sim", cfg.Camera)
	assert.Equal(t, 10, cfg.InitialFrameRate)
	assert.Equal(t, camera.Size{Width: 512, Height: 288}, cfg.WorkingResolution)
	assert.Equal(t, camera.Size{Width: 1280, Height: 720}, cfg.ArchiveResolution)
	assert.Equal(t, camera.WhiteBalanceTungsten, cfg.WhiteBalance)
	assert.True(t, cfg.VerticalFlip)
	assert.Equal(t, slog.LevelInfo, cfg.Level())

	cfg.Root = "/srv/stopmotion"
	assert.Equal(t, "/srv/stopmotion/img", cfg.WorkingDir())
	assert.Equal(t, "/srv/stopmotion/img_hires", cfg.ArchiveDir())
	assert.Equal(t, "/srv/stopmotion/export", cfg.ExportDir())
	assert.Equal(t, "/srv/stopmotion/stopmotion.log", cfg.LogPath())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
root: /data/film
dirs:
  export: /mnt/usb/export
camera: gst
log_level: debug
initial_frame_rate: 0
white_balance: daylight
working_resolution:
  width: 640
  height: 360
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gst", cfg.Camera)
	assert.Equal(t, 0, cfg.InitialFrameRate)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "/data/film/img", cfg.WorkingDir(), "unset dirs keep their default")
	assert.Equal(t, "/mnt/usb/export", cfg.ExportDir(), "absolute dirs are kept")

	settings := cfg.CameraSettings()
	assert.Equal(t, camera.Size{Width: 640, Height: 360}, settings.Working)
	assert.Equal(t, camera.Size{Width: 1280, Height: 720}, settings.Archive)
	assert.Equal(t, camera.WhiteBalanceDaylight, settings.WhiteBalance)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "dirs: [", "failed to parse config"},
		{"white balance", "white_balance: neon", "unknown white balance"},
		{"negative rate", "initial_frame_rate: -1", "initial_frame_rate"},
		{"same dirs", "dirs:\n  working: img\n  archive: img\n", "must differ"},
		{"log level", "log_level: loud", "unknown level"},
		{"resolution", "archive_resolution:\n  width: 0\n  height: 720\n", "archive_resolution"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameDigits = 0
	cfg.LogLevel = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame_digits")
	assert.Contains(t, err.Error(), "log_level")
}

func TestConfig_NewStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = t.TempDir()
	cfg.FrameDigits = 5

	store := cfg.NewStore(nil)
	require.NoError(t, store.EnsureDirs())
	assert.DirExists(t, cfg.WorkingDir())
	assert.DirExists(t, cfg.ArchiveDir())
	assert.DirExists(t, cfg.ExportDir())

	working, _, err := store.NextCapture()
	require.NoError(t, err)
	assert.Equal(t, "capture_00000.png", filepath.Base(working))
}
