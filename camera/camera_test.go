package camera

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.Archive = Size{Width: 64, Height: 36}
	s.Working = Size{Width: 32, Height: 18}
	return s
}

func TestSimCamera_CaptureWritesBothStills(t *testing.T) {
	dir := t.TempDir()
	cam := NewSimCamera(testSettings(), nil)

	lo := filepath.Join(dir, "lo.png")
	hi := filepath.Join(dir, "hi.png")
	require.NoError(t, cam.Capture(lo, hi))

	loImg, err := LoadImage(lo)
	require.NoError(t, err)
	hiImg, err := LoadImage(hi)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 32, 18), loImg.Bounds())
	assert.Equal(t, image.Rect(0, 0, 64, 36), hiImg.Bounds())
	assert.Equal(t, 1, cam.Shots())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestSimCamera_ShotsDiffer(t *testing.T) {
	dir := t.TempDir()
	cam := NewSimCamera(testSettings(), nil)

	require.NoError(t, cam.Capture(filepath.Join(dir, "a_lo.png"), filepath.Join(dir, "a.png")))
	require.NoError(t, cam.Capture(filepath.Join(dir, "b_lo.png"), filepath.Join(dir, "b.png")))

	a, err := LoadImage(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	b, err := LoadImage(filepath.Join(dir, "b.png"))
	require.NoError(t, err)

	differ := false
	bounds := a.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !differ; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if a.At(x, y) != b.At(x, y) {
				differ = true
				break
			}
		}
	}
	assert.True(t, differ, "consecutive shots should show motion")
}

func TestSimCamera_Preview(t *testing.T) {
	dir := t.TempDir()
	cam := NewSimCamera(testSettings(), nil)

	_, ok := cam.PreviewFrame()
	assert.False(t, ok, "no frame before preview starts")

	require.NoError(t, cam.StartPreview(PreviewOptions{}))
	frame, ok := cam.PreviewFrame()
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 32, 18), frame.Bounds())

	lo := filepath.Join(dir, "lo.png")
	require.NoError(t, cam.Capture(lo, filepath.Join(dir, "hi.png")))
	require.NoError(t, cam.StartPreview(PreviewOptions{Overlay: lo}))
	_, ok = cam.PreviewFrame()
	assert.True(t, ok)

	require.NoError(t, cam.StopPreview())
	_, ok = cam.PreviewFrame()
	assert.False(t, ok)

	assert.Error(t, cam.StartPreview(PreviewOptions{Overlay: filepath.Join(dir, "missing.png")}))
}

func TestSimCamera_Closed(t *testing.T) {
	dir := t.TempDir()
	cam := NewSimCamera(testSettings(), nil)
	require.NoError(t, cam.Close())

	assert.Error(t, cam.Capture(filepath.Join(dir, "lo.png"), filepath.Join(dir, "hi.png")))
	assert.Error(t, cam.StartPreview(PreviewOptions{}))
}

func TestComposite_BlendsOverlay(t *testing.T) {
	base := image.NewUniform(color.RGBA{0, 0, 0, 255})
	baseImg := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			baseImg.Set(x, y, base.C)
		}
	}
	overlay := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			overlay.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}

	out := Composite(baseImg, overlay, 128)
	r, g, b, _ := out.At(1, 1).RGBA()
	assert.InDelta(t, 0x8080, r, 0x300)
	assert.InDelta(t, 0x8080, g, 0x300)
	assert.InDelta(t, 0x8080, b, 0x300)
}

func TestFlipVertical(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})

	flipped := FlipVertical(img)
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, flipped.At(0, 0))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, flipped.At(0, 1))
}

func TestWhiteBalance(t *testing.T) {
	wb, err := ParseWhiteBalance("Tungsten")
	require.NoError(t, err)
	assert.Equal(t, WhiteBalanceTungsten, wb)
	assert.Equal(t, "tungsten", wb.String())

	_, err = ParseWhiteBalance("moonlight")
	assert.Error(t, err)

	var doc struct {
		AWB WhiteBalance `yaml:"awb"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("awb: daylight\n"), &doc))
	assert.Equal(t, WhiteBalanceDaylight, doc.AWB)
	assert.Error(t, yaml.Unmarshal([]byte("awb: moonlight\n"), &doc))

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "awb: daylight")
}

func TestOpen(t *testing.T) {
	assert.Contains(t, Backends(), "sim")

	cam, err := Open("sim", testSettings(), nil)
	require.NoError(t, err)
	assert.NoError(t, cam.Close())

	_, err = Open("nope", testSettings(), nil)
	assert.Error(t, err)
}
