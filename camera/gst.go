//go:build gst

package camera

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// captureTimeout bounds the wait for a snapshot pipeline to reach EOS.
const captureTimeout = 10 * time.Second

func init() {
	Register("gst", func(settings Settings, logger *slog.Logger) (Camera, error) {
		return NewGstCamera(settings, logger)
	})
}

// GstCamera drives a libcamera sensor through GStreamer.
//
// The preview renders straight to the display with kmssink at the configured
// window rectangle; the overlay frame is mixed in with a compositor branch.
// Captures run a separate pipeline ending in a single-shot pngenc, so the
// preview is paused for the duration of a capture and restored afterwards.
type GstCamera struct {
	mu       sync.Mutex
	settings Settings
	log      *slog.Logger
	preview  *gst.Pipeline
	opts     *PreviewOptions
}

// NewGstCamera initializes GStreamer and returns a camera with no pipeline
// running.
func NewGstCamera(settings Settings, logger *slog.Logger) (*GstCamera, error) {
	gst.Init(nil)
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("camera: gstreamer backend ready",
		"archive", settings.Archive.String(),
		"working", settings.Working.String(),
		"awb", settings.WhiteBalance.String(),
		"vflip", settings.VerticalFlip,
	)
	return &GstCamera{settings: settings, log: logger}, nil
}

// StartPreview implements Camera.
func (c *GstCamera) StartPreview(opts PreviewOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startPreviewLocked(opts)
}

func (c *GstCamera) startPreviewLocked(opts PreviewOptions) error {
	c.stopPreviewLocked()

	launch := c.previewLaunch(opts)
	pipeline, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return fmt.Errorf("build preview pipeline: %w", err)
	}
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("start preview pipeline: %w", err)
	}
	if err := pollError(pipeline, 200*time.Millisecond); err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("preview pipeline: %w", err)
	}

	c.preview = pipeline
	c.opts = &opts
	c.log.Info("camera: preview started", "overlay", opts.Overlay)
	return nil
}

// StopPreview implements Camera.
func (c *GstCamera) StopPreview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPreviewLocked()
	c.opts = nil
	return nil
}

func (c *GstCamera) stopPreviewLocked() {
	if c.preview == nil {
		return
	}
	if err := c.preview.SetState(gst.StateNull); err != nil {
		c.log.Warn("camera: stopping preview pipeline", "error", err)
	}
	c.preview = nil
	c.log.Debug("camera: preview stopped")
}

// Capture implements Camera.
func (c *GstCamera) Capture(lowRes, hiRes string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resume := c.opts
	c.stopPreviewLocked()

	err := c.captureLocked(lowRes, hiRes)

	if resume != nil {
		if perr := c.startPreviewLocked(*resume); perr != nil {
			c.log.Warn("camera: preview did not resume after capture", "error", perr)
		}
	}
	return err
}

func (c *GstCamera) captureLocked(lowRes, hiRes string) error {
	raw, err := os.CreateTemp(filepath.Dir(hiRes), ".raw-*.png")
	if err != nil {
		return err
	}
	raw.Close()
	defer os.Remove(raw.Name())

	pipeline, err := gst.NewPipelineFromString(c.captureLaunch(raw.Name()))
	if err != nil {
		return fmt.Errorf("build capture pipeline: %w", err)
	}
	defer pipeline.SetState(gst.StateNull)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("start capture pipeline: %w", err)
	}
	if err := waitEOS(pipeline, captureTimeout); err != nil {
		return err
	}

	full, err := LoadImage(raw.Name())
	if err != nil {
		return err
	}
	return writeStills(full, c.settings.Working, lowRes, hiRes)
}

// Close implements Camera.
func (c *GstCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPreviewLocked()
	c.opts = nil
	return nil
}

func (c *GstCamera) sourceLaunch(size Size) string {
	var b strings.Builder
	b.WriteString("libcamerasrc")
	if c.settings.WhiteBalance != WhiteBalanceAuto {
		fmt.Fprintf(&b, " awb-mode=%s", c.settings.WhiteBalance)
	}
	fmt.Fprintf(&b, " ! video/x-raw,width=%d,height=%d", size.Width, size.Height)
	if c.settings.FrameRate > 0 {
		fmt.Fprintf(&b, ",framerate=%d/1", c.settings.FrameRate)
	}
	if c.settings.VerticalFlip {
		b.WriteString(" ! videoflip method=vertical-flip")
	}
	b.WriteString(" ! videoconvert")
	return b.String()
}

func (c *GstCamera) sinkLaunch() string {
	w := c.settings.Window
	return fmt.Sprintf("kmssink render-rectangle=\"<%d,%d,%d,%d>\"", w.X, w.Y, w.Width, w.Height)
}

func (c *GstCamera) previewLaunch(opts PreviewOptions) string {
	size := c.settings.Archive
	if opts.Overlay == "" {
		return c.sourceLaunch(size) + " ! " + c.sinkLaunch()
	}

	alpha := opts.Alpha
	if alpha == 0 {
		alpha = DefaultOverlayAlpha
	}
	return fmt.Sprintf(
		"compositor name=mix sink_1::alpha=%.3f ! videoconvert ! %s "+
			"%s ! mix.sink_0 "+
			"filesrc location=%q ! pngdec ! imagefreeze ! videoconvert ! videoscale ! video/x-raw,width=%d,height=%d ! mix.sink_1",
		float64(alpha)/255, c.sinkLaunch(),
		c.sourceLaunch(size),
		opts.Overlay, size.Width, size.Height,
	)
}

func (c *GstCamera) captureLaunch(path string) string {
	return fmt.Sprintf("%s ! pngenc snapshot=true ! filesink location=%q", c.sourceLaunch(c.settings.Archive), path)
}

// waitEOS blocks until the pipeline reports end of stream or an error.
func waitEOS(pipeline *gst.Pipeline, timeout time.Duration) error {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			return nil
		case gst.MessageError:
			gerr := msg.ParseError()
			return fmt.Errorf("capture pipeline: %s (%s)", gerr.Error(), gerr.DebugString())
		}
	}
	return fmt.Errorf("capture pipeline: no frame within %s", timeout)
}

// pollError drains the bus for d and returns the first error posted.
func pollError(pipeline *gst.Pipeline, d time.Duration) error {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(25 * time.Millisecond)
		if msg == nil {
			continue
		}
		if msg.Type() == gst.MessageError {
			gerr := msg.ParseError()
			return fmt.Errorf("%s (%s)", gerr.Error(), gerr.DebugString())
		}
	}
	return nil
}
