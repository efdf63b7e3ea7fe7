package dataset

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDigit writes a size×size PNG that is white on the left half when
// leftLit is true and on the right half otherwise.
func writeDigit(t *testing.T, path string, size int, leftLit bool) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			lit := x < size/2
			if !leftLit {
				lit = !lit
			}
			c := color.RGBA{A: 255}
			if lit {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestFeaturesGrayscaleThreshold(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	// Red and green alone weigh 0.89: kept.
	img.Set(0, 0, color.RGBA{R: 255, G: 255, A: 255})
	// Pure blue weighs 0.11: dropped.
	img.Set(1, 0, color.RGBA{B: 255, A: 255})

	features, err := Features(img, 2, 0.3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1, 0}, features)

	_, err = Features(image.NewRGBA(image.Rect(0, 0, 0, 0)), 2, 0.3)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestFeaturesDownsample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.png")
	writeDigit(t, path, 8, true)

	features, err := DecodeFile(path, 4, 0.3)
	require.NoError(t, err)
	assert.Equal(t, []float64{
		1, 1, 0, 0,
		1, 1, 0, 0,
		1, 1, 0, 0,
		1, 1, 0, 0,
	}, features)
}

func TestLoadOrdersAndSkips(t *testing.T) {
	dir := t.TempDir()
	writeDigit(t, filepath.Join(dir, "0_a.png"), 4, true)
	writeDigit(t, filepath.Join(dir, "1_a.png"), 4, false)
	writeDigit(t, filepath.Join(dir, "sub", "1_b.png"), 4, false)
	writeDigit(t, filepath.Join(dir, "z_nolabel.png"), 4, true)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0_broken.png"), []byte("not a png"), 0o644))

	ds, err := Load(context.Background(), LoadOptions{
		Root:       dir,
		Classes:    2,
		ImageSize:  4,
		Threshold:  0.3,
		NumWorkers: 3,
	})
	require.NoError(t, err)
	require.NoError(t, ds.Validate())

	assert.Equal(t, 3, ds.Size())
	assert.Equal(t, 16, ds.Features())
	assert.Equal(t, 2, ds.Classes())
	assert.Equal(t, []string{
		filepath.Join(dir, "0_a.png"),
		filepath.Join(dir, "1_a.png"),
		filepath.Join(dir, "sub", "1_b.png"),
	}, ds.Paths)

	assert.Equal(t, []float64{1, 0}, ds.Output.Col(0))
	assert.Equal(t, []float64{0, 1}, ds.Output.Col(1))
	assert.Equal(t, 1.0, ds.Input.At(0, 0))
	assert.Equal(t, 0.0, ds.Input.At(0, 1))
}

func TestLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(context.Background(), LoadOptions{Root: dir, Classes: 10, ImageSize: 4})
	assert.ErrorIs(t, err, ErrEmpty)

	writeDigit(t, filepath.Join(dir, "q.png"), 4, true)
	_, err = Load(context.Background(), LoadOptions{Root: dir, Classes: 10, ImageSize: 4})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0.png", "1.png", "2.png"} {
		writeDigit(t, filepath.Join(dir, name), 4, true)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, LoadOptions{Root: dir, Classes: 10, ImageSize: 4, NumWorkers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}
