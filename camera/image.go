package camera

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
)

// LoadImage decodes an image file.
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// WritePNG encodes img to path through a temporary file in the same directory.
func WritePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".capture-*.png")
	if err != nil {
		return err
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Scale resizes img to size with Catmull-Rom resampling.
func Scale(img image.Image, size Size) *image.RGBA {
	dst := image.NewRGBA(size.Rect())
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// FlipVertical returns img mirrored top to bottom.
func FlipVertical(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, b.Dy()-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// Composite draws overlay on top of base at the given opacity, scaling the
// overlay to base's bounds.
func Composite(base, overlay image.Image, alpha uint8) *image.RGBA {
	b := base.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), base, b.Min, draw.Src)

	scaled := Scale(overlay, Size{Width: b.Dx(), Height: b.Dy()})
	mask := image.NewUniform(color.Alpha{A: alpha})
	draw.DrawMask(dst, dst.Bounds(), scaled, image.Point{}, mask, image.Point{}, draw.Over)
	return dst
}

// writeStills writes the archive still and its downscaled working copy.
func writeStills(full image.Image, working Size, lowRes, hiRes string) error {
	if err := WritePNG(hiRes, full); err != nil {
		return fmt.Errorf("write archive still: %w", err)
	}
	if err := WritePNG(lowRes, Scale(full, working)); err != nil {
		os.Remove(hiRes)
		return fmt.Errorf("write working still: %w", err)
	}
	return nil
}
