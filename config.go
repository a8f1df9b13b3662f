package stopmotion

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/stopmotion/camera"
	"github.com/teranos/stopmotion/framestore"
)

// Config is the startup configuration of a capture session.
type Config struct {
	Root        string `yaml:"root"`         // Installation root, relative dirs resolve against it
	Dirs        Dirs   `yaml:"dirs"`         // Managed directories
	Camera      string `yaml:"camera"`       // Camera backend: sim, gst
	FrameDigits int    `yaml:"frame_digits"` // Zero padding of frame numbers
	LogFile     string `yaml:"log_file"`     // Session log, relative to Root
	LogLevel    string `yaml:"log_level"`    // debug, info, warn, error

	WorkingResolution camera.Size         `yaml:"working_resolution"`
	ArchiveResolution camera.Size         `yaml:"archive_resolution"`
	InitialFrameRate  int                 `yaml:"initial_frame_rate"` // Playback rate at startup
	SensorFrameRate   int                 `yaml:"sensor_frame_rate"`  // Camera frame rate
	VerticalFlip      bool                `yaml:"vertical_flip"`
	WhiteBalance      camera.WhiteBalance `yaml:"white_balance"`
	PreviewWindow     camera.Window       `yaml:"preview_window"`
	OverlayAlpha      uint8               `yaml:"overlay_alpha"` // Opacity of the alignment overlay
}

// Dirs names the working, archive and export directories.
type Dirs struct {
	Working string `yaml:"working"`
	Archive string `yaml:"archive"`
	Export  string `yaml:"export"`
}

// DefaultConfig returns the configuration of the stock capture rig rooted at the
// directory of the running executable.
func DefaultConfig() Config {
	settings := camera.DefaultSettings()
	return Config{
		Root: executableDir(),
		Dirs: Dirs{
			Working: "img",
			Archive: "img_hires",
			Export:  "export",
		},
		Camera:            "sim",
		FrameDigits:       framestore.DefaultDigits,
		LogFile:           "stopmotion.log",
		LogLevel:          "info",
		WorkingResolution: settings.Working,
		ArchiveResolution: settings.Archive,
		InitialFrameRate:  10,
		SensorFrameRate:   settings.FrameRate,
		VerticalFlip:      settings.VerticalFlip,
		WhiteBalance:      settings.WhiteBalance,
		PreviewWindow:     settings.Window,
		OverlayAlpha:      camera.DefaultOverlayAlpha,
	}
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// LoadConfig reads a YAML configuration over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the session cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Dirs.Working == "" || c.Dirs.Archive == "" || c.Dirs.Export == "" {
		errs = append(errs, errors.New("dirs: working, archive and export are required"))
	}
	if c.Dirs.Working == c.Dirs.Archive {
		errs = append(errs, errors.New("dirs: working and archive must differ"))
	}
	if c.FrameDigits < 1 {
		errs = append(errs, fmt.Errorf("frame_digits: must be positive, got %d", c.FrameDigits))
	}
	if c.InitialFrameRate < 0 {
		errs = append(errs, fmt.Errorf("initial_frame_rate: must not be negative, got %d", c.InitialFrameRate))
	}
	for name, size := range map[string]camera.Size{
		"working_resolution": c.WorkingResolution,
		"archive_resolution": c.ArchiveResolution,
	} {
		if size.Width <= 0 || size.Height <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid size %s", name, size))
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

// WorkingDir returns the resolved working directory.
func (c Config) WorkingDir() string { return c.resolve(c.Dirs.Working) }

// ArchiveDir returns the resolved archive directory.
func (c Config) ArchiveDir() string { return c.resolve(c.Dirs.Archive) }

// ExportDir returns the resolved export directory.
func (c Config) ExportDir() string { return c.resolve(c.Dirs.Export) }

// LogPath returns the resolved log file path.
func (c Config) LogPath() string { return c.resolve(c.LogFile) }

// CameraSettings derives the capture settings.
func (c Config) CameraSettings() camera.Settings {
	return camera.Settings{
		Working:      c.WorkingResolution,
		Archive:      c.ArchiveResolution,
		FrameRate:    c.SensorFrameRate,
		VerticalFlip: c.VerticalFlip,
		WhiteBalance: c.WhiteBalance,
		Window:       c.PreviewWindow,
	}
}

// NewStore builds the frame store over the configured directories.
func (c Config) NewStore(logger *slog.Logger) *framestore.Store {
	return framestore.New(c.WorkingDir(), c.ArchiveDir(), c.ExportDir(), c.FrameDigits, logger)
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", s)
	}
}
