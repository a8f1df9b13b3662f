// Package camera wraps the capture device of a stop-motion rig.
//
// A Camera shows a live preview, optionally with the last captured frame
// drawn translucently on top as an alignment aid, and captures stills at a
// working and an archive resolution. Backends register themselves by name;
// the simulated backend is always available, the GStreamer backend is built
// with the "gst" tag.
package camera

import (
	"fmt"
	"image"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Camera defines the contract for a still-capture device.
//
// Implementations must guarantee:
//   - StartPreview restarts the preview when it is already running
//   - StopPreview is idempotent
//   - Capture writes both files or neither
type Camera interface {
	// StartPreview shows the live feed, composited with opts.Overlay when set.
	StartPreview(opts PreviewOptions) error
	// StopPreview hides the live feed.
	StopPreview() error
	// Capture writes a working-resolution still to lowRes and a
	// full-resolution still to hiRes.
	Capture(lowRes, hiRes string) error
	// Close releases the device.
	Close() error
}

// Previewer is implemented by backends that hand preview frames to the
// display instead of drawing into their own window.
type Previewer interface {
	// PreviewFrame returns the current preview image, false while stopped.
	PreviewFrame() (image.Image, bool)
}

// PreviewOptions configures a preview start.
type PreviewOptions struct {
	// Overlay is the path of a frame drawn on top of the feed, "" for none
	Overlay string
	// Alpha is the opacity of the overlay (0-255)
	Alpha uint8
}

// DefaultOverlayAlpha draws the overlay at half opacity.
const DefaultOverlayAlpha uint8 = 128

// Size is a resolution in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Rect returns the size as an image rectangle at the origin.
func (s Size) Rect() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// Window is the on-screen geometry of a preview window.
type Window struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// WhiteBalance selects the automatic white balance mode of the sensor.
type WhiteBalance int

const (
	WhiteBalanceAuto WhiteBalance = iota
	WhiteBalanceTungsten
	WhiteBalanceFluorescent
	WhiteBalanceIndoor
	WhiteBalanceDaylight
	WhiteBalanceCloudy
)

var whiteBalanceNames = map[WhiteBalance]string{
	WhiteBalanceAuto:        "auto",
	WhiteBalanceTungsten:    "tungsten",
	WhiteBalanceFluorescent: "fluorescent",
	WhiteBalanceIndoor:      "indoor",
	WhiteBalanceDaylight:    "daylight",
	WhiteBalanceCloudy:      "cloudy",
}

func (w WhiteBalance) String() string {
	if name, ok := whiteBalanceNames[w]; ok {
		return name
	}
	return "auto"
}

// ParseWhiteBalance converts a mode name to a WhiteBalance.
func ParseWhiteBalance(s string) (WhiteBalance, error) {
	for wb, name := range whiteBalanceNames {
		if strings.EqualFold(s, name) {
			return wb, nil
		}
	}
	return WhiteBalanceAuto, fmt.Errorf("unknown white balance mode %q", s)
}

// UnmarshalYAML reads a white balance mode name.
func (w *WhiteBalance) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	wb, err := ParseWhiteBalance(name)
	if err != nil {
		return err
	}
	*w = wb
	return nil
}

// MarshalYAML writes the mode name.
func (w WhiteBalance) MarshalYAML() (interface{}, error) {
	return w.String(), nil
}

// Settings holds capture configuration.
type Settings struct {
	Working      Size         // Working (preview/review) still size
	Archive      Size         // Full-resolution still size
	FrameRate    int          // Sensor frame rate, independent of playback rate
	VerticalFlip bool         // Mount is upside down
	WhiteBalance WhiteBalance // AWB mode
	Window       Window       // Preview window geometry
}

// DefaultSettings returns the settings of the stock capture rig.
func DefaultSettings() Settings {
	return Settings{
		Working:      Size{Width: 512, Height: 288},
		Archive:      Size{Width: 1280, Height: 720},
		FrameRate:    10,
		VerticalFlip: true,
		WhiteBalance: WhiteBalanceTungsten,
		Window:       Window{X: 320, Y: 165, Width: 1280, Height: 720},
	}
}

// Factory opens a backend.
type Factory func(settings Settings, logger *slog.Logger) (Camera, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available to Open.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Backends lists registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates the named backend.
func Open(name string, settings Settings, logger *slog.Logger) (Camera, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("camera backend %q not available (have %s)", name, strings.Join(Backends(), ", "))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return factory(settings, logger)
}
