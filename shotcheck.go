package stopmotion

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/teranos/stopmotion/camera"
	"github.com/teranos/stopmotion/framestore"
	"github.com/teranos/stopmotion/trip"
)

// DefaultShotTolerance is the share of pixels allowed to differ from the
// baseline before a shot counts as changed.
const DefaultShotTolerance = 0.05

// ShotChecker compares view shots against baseline PNGs of the same name.
type ShotChecker struct {
	baselineDir string
	tolerance   float64
}

// NewShotChecker creates a checker over baselineDir. A tolerance <= 0
// selects DefaultShotTolerance.
func NewShotChecker(baselineDir string, tolerance float64) *ShotChecker {
	if tolerance <= 0 {
		tolerance = DefaultShotTolerance
	}
	return &ShotChecker{baselineDir: baselineDir, tolerance: tolerance}
}

// BaselinePath returns where the baseline for name lives.
func (c *ShotChecker) BaselinePath(name string) string {
	return filepath.Join(c.baselineDir, name+".png")
}

// Check compares the shot at path with the baseline called name.
//
// A missing baseline is created from the shot and reported with created set.
// A shot differing by more than the tolerance writes <path>_diff.png next to
// it and returns a state trip carrying the difference.
func (c *ShotChecker) Check(name, path string) (diff float64, created bool, err error) {
	baselinePath := c.BaselinePath(name)
	if _, statErr := os.Stat(baselinePath); errors.Is(statErr, os.ErrNotExist) {
		return 0, true, c.SetBaseline(name, path)
	}

	baseline, err := camera.LoadImage(baselinePath)
	if err != nil {
		return 0, false, trip.StorageError("shot baseline", baselinePath, err)
	}
	current, err := camera.LoadImage(path)
	if err != nil {
		return 0, false, trip.StorageError("shot", path, err)
	}

	diff = Difference(baseline, current)
	if diff <= c.tolerance {
		return diff, false, nil
	}

	diffPath := path[:len(path)-len(filepath.Ext(path))] + "_diff.png"
	if werr := camera.WritePNG(diffPath, DiffImage(baseline, current)); werr != nil {
		diffPath = ""
	}
	t := trip.StateError("shot", fmt.Sprintf("%s differs from baseline by %.2f%% (tolerance %.2f%%)",
		name, diff*100, c.tolerance*100))
	t.Context["diff"] = diffPath
	return diff, false, t
}

// SetBaseline copies the shot at path to the baseline called name.
func (c *ShotChecker) SetBaseline(name, path string) error {
	if err := os.MkdirAll(c.baselineDir, 0755); err != nil {
		return trip.StorageError("shot baseline", c.baselineDir, err)
	}
	return framestore.Copy(path, c.BaselinePath(name))
}

// Difference returns the share of pixels that differ between a and b.
// Images of different size are entirely different.
func Difference(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() || ab.Empty() {
		return 1
	}

	changed := 0
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			if !sameColor(a.At(ab.Min.X+x, ab.Min.Y+y), b.At(bb.Min.X+x, bb.Min.Y+y)) {
				changed++
			}
		}
	}
	return float64(changed) / float64(ab.Dx()*ab.Dy())
}

// DiffImage marks differing pixels red over a dimmed copy of base.
func DiffImage(base, current image.Image) *image.RGBA {
	bounds := base.Bounds()
	cb := current.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			bc := base.At(bounds.Min.X+x, bounds.Min.Y+y)
			p := image.Pt(cb.Min.X+x, cb.Min.Y+y)
			if !p.In(cb) || !sameColor(bc, current.At(p.X, p.Y)) {
				out.Set(x, y, color.RGBA{255, 0, 0, 255})
				continue
			}
			r, g, b, _ := bc.RGBA()
			out.Set(x, y, color.RGBA{uint8(r >> 9), uint8(g >> 9), uint8(b >> 9), 255})
		}
	}
	return out
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}
