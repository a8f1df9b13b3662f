package camera

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func init() {
	Register("sim", func(settings Settings, logger *slog.Logger) (Camera, error) {
		return NewSimCamera(settings, logger), nil
	})
}

// SimCamera is a camera without hardware.
//
// Each shot is a synthetic scene: a gradient background with a block that
// moves a little between shots and the shot number drawn in the corner, so
// scrubbing and playback show visible motion.
type SimCamera struct {
	mu       sync.Mutex
	settings Settings
	log      *slog.Logger
	shots    int
	preview  bool
	overlay  image.Image
	alpha    uint8
	closed   bool
	cached   image.Image
}

// NewSimCamera creates a simulated camera.
func NewSimCamera(settings Settings, logger *slog.Logger) *SimCamera {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimCamera{settings: settings, log: logger}
}

// StartPreview implements Camera.
func (c *SimCamera) StartPreview(opts PreviewOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("sim camera closed")
	}

	c.overlay = nil
	if opts.Overlay != "" {
		img, err := LoadImage(opts.Overlay)
		if err != nil {
			return fmt.Errorf("load overlay: %w", err)
		}
		c.overlay = img
	}
	c.alpha = opts.Alpha
	if c.alpha == 0 {
		c.alpha = DefaultOverlayAlpha
	}
	c.preview = true
	c.cached = nil
	c.log.Debug("camera: sim preview started", "overlay", opts.Overlay)
	return nil
}

// StopPreview implements Camera.
func (c *SimCamera) StopPreview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preview = false
	c.overlay = nil
	c.cached = nil
	return nil
}

// PreviewFrame implements Previewer.
func (c *SimCamera) PreviewFrame() (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.preview {
		return nil, false
	}
	if c.cached == nil {
		frame := c.sensor(c.shots, c.settings.Working)
		if c.overlay != nil {
			frame = Composite(frame, c.overlay, c.alpha)
		}
		c.cached = frame
	}
	return c.cached, true
}

// Capture implements Camera.
func (c *SimCamera) Capture(lowRes, hiRes string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("sim camera closed")
	}

	if err := writeStills(c.sensor(c.shots, c.settings.Archive), c.settings.Working, lowRes, hiRes); err != nil {
		return err
	}
	c.shots++
	c.cached = nil
	return nil
}

// Close implements Camera.
func (c *SimCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.preview = false
	return nil
}

// Shots returns the number of stills captured so far.
func (c *SimCamera) Shots() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shots
}

// sensor returns shot n as read off the sensor. The simulated rig is mounted
// upside down, so the image is upright only with VerticalFlip set.
func (c *SimCamera) sensor(n int, size Size) image.Image {
	raw := FlipVertical(c.scene(n, size))
	if c.settings.VerticalFlip {
		return FlipVertical(raw)
	}
	return raw
}

// scene renders shot n at the given size.
func (c *SimCamera) scene(n int, size Size) *image.RGBA {
	img := image.NewRGBA(size.Rect())
	w, h := size.Width, size.Height
	if w <= 0 || h <= 0 {
		return img
	}

	tint := whiteBalanceTint(c.settings.WhiteBalance)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: clamp8(int(40+120*x/w) + tint[0]),
				G: clamp8(int(40+100*y/h) + tint[1]),
				B: clamp8(140 + tint[2]),
				A: 255,
			})
		}
	}

	// moving block, one step per shot
	side := h / 4
	step := w / 24
	if step < 1 {
		step = 1
	}
	span := w - side
	if span < 1 {
		span = 1
	}
	bx := (n * step) % span
	by := h/2 - side/2
	block := color.RGBA{R: 230, G: 200, B: 60, A: 255}
	for y := by; y < by+side && y < h; y++ {
		for x := bx; x < bx+side && x < w; x++ {
			img.Set(x, y, block)
		}
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: basicfont.Face7x13,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(8 << 6),
			Y: fixed.Int26_6(20 << 6),
		},
	}
	drawer.DrawString(fmt.Sprintf("SHOT %03d", n))

	return img
}

func whiteBalanceTint(wb WhiteBalance) [3]int {
	switch wb {
	case WhiteBalanceTungsten, WhiteBalanceIndoor:
		return [3]int{-10, 0, 20}
	case WhiteBalanceFluorescent:
		return [3]int{5, -5, 5}
	case WhiteBalanceDaylight:
		return [3]int{10, 5, -10}
	case WhiteBalanceCloudy:
		return [3]int{20, 10, -20}
	default:
		return [3]int{}
	}
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
