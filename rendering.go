package stopmotion

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/teranos/stopmotion/camera"
)

// upperHalf draws the top pixel in the foreground colour and the bottom pixel
// in the background colour, so one cell shows two square pixels.
const upperHalf = "▀"

// RenderImage draws img as half-block cells fitted into width x height cells,
// keeping the aspect ratio and centring the result.
func RenderImage(img image.Image, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	b := img.Bounds()
	if b.Empty() {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, "")
	}

	// two pixel rows per cell
	maxW, maxH := width, height*2
	w, h := maxW, b.Dy()*maxW/b.Dx()
	if h > maxH {
		w, h = b.Dx()*maxH/b.Dy(), maxH
	}
	if w < 1 {
		w = 1
	}
	if h < 2 {
		h = 2
	}

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, xdraw.Src, nil)

	var out strings.Builder
	for y := 0; y < h; y += 2 {
		if y > 0 {
			out.WriteByte('\n')
		}
		for x := 0; x < w; x++ {
			top := scaled.RGBAAt(x, y)
			bottom := color.RGBA{A: 255}
			if y+1 < h {
				bottom = scaled.RGBAAt(x, y+1)
			}
			out.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(hexColor(top))).
				Background(lipgloss.Color(hexColor(bottom))).
				Render(upperHalf))
		}
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, out.String())
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

type renderKey struct {
	path          string
	width, height int
}

// FrameRenderer renders frame files and remembers the most recent results, so
// playback does not decode and rescale the same still on every tick.
type FrameRenderer struct {
	limit int
	cache map[renderKey]string
	order []renderKey
}

// NewFrameRenderer keeps up to limit rendered frames.
func NewFrameRenderer(limit int) *FrameRenderer {
	if limit < 1 {
		limit = 1
	}
	return &FrameRenderer{
		limit: limit,
		cache: make(map[renderKey]string),
	}
}

// Render returns the frame at path drawn into width x height cells.
func (r *FrameRenderer) Render(path string, width, height int) (string, error) {
	k := renderKey{path: path, width: width, height: height}
	if out, ok := r.cache[k]; ok {
		return out, nil
	}

	img, err := camera.LoadImage(path)
	if err != nil {
		return "", err
	}
	out := RenderImage(img, width, height)

	if len(r.order) >= r.limit {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.cache, oldest)
	}
	r.cache[k] = out
	r.order = append(r.order, k)
	return out, nil
}

// Forget drops every cached rendering. Used after the files on disk changed
// under the same names.
func (r *FrameRenderer) Forget() {
	r.cache = make(map[renderKey]string)
	r.order = nil
}

// Len returns the number of cached renderings.
func (r *FrameRenderer) Len() int { return len(r.order) }

// ViewShot renders terminal output to a PNG image, one basicfont glyph per
// cell. The director uses it to keep a picture of each step of a script.
type ViewShot struct {
	Width      int        // Terminal width in characters
	Height     int        // Terminal height in characters
	Background color.RGBA // Background color
	Foreground color.RGBA // Text color
}

// DefaultViewShot returns an 80x24 light-on-dark shot.
func DefaultViewShot() ViewShot {
	return ViewShot{
		Width:      80,
		Height:     24,
		Background: color.RGBA{R: 16, G: 16, B: 16, A: 255},
		Foreground: color.RGBA{R: 220, G: 220, B: 220, A: 255},
	}
}

const (
	cellWidth  = 7
	cellHeight = 13
)

// Image draws view into an image.
func (v ViewShot) Image(view string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, v.Width*cellWidth, v.Height*cellHeight))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(v.Background), image.Point{}, xdraw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(v.Foreground),
		Face: basicfont.Face7x13,
	}
	for row, line := range strings.Split(ansi.Strip(view), "\n") {
		if row >= v.Height {
			break
		}
		for col, ch := range []rune(line) {
			if col >= v.Width {
				break
			}
			if ch == ' ' {
				continue
			}
			drawer.Dot = fixed.Point26_6{
				X: fixed.I(col * cellWidth),
				Y: fixed.I((row+1)*cellHeight - 3),
			}
			drawer.DrawString(string(ch))
		}
	}
	return img
}

// Save writes view to path as PNG.
func (v ViewShot) Save(view, path string) error {
	if err := camera.WritePNG(path, v.Image(view)); err != nil {
		return fmt.Errorf("save view shot: %w", err)
	}
	return nil
}
