package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitnet/internal/checkpoint"
	"digitnet/internal/config"
	"digitnet/internal/model"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func writeBlankPNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestGridSize(t *testing.T) {
	p, err := model.NewParams(rand.New(rand.NewSource(1)), 16, []int{3}, 0.1)
	require.NoError(t, err)
	size, err := gridSize(p)
	require.NoError(t, err)
	assert.Equal(t, 4, size)

	p, err = model.NewParams(rand.New(rand.NewSource(1)), 15, []int{3}, 0.1)
	require.NoError(t, err)
	_, err = gridSize(p)
	assert.Error(t, err)
}

func TestPredictUsesTrainedImageSize(t *testing.T) {
	dir := t.TempDir()
	p, err := model.NewParams(rand.New(rand.NewSource(2)), 8*8, []int{5, 16}, 0.1)
	require.NoError(t, err)
	// A black image feeds all-zero features, so only the biases decide.
	last := p.Layers[1].Bias
	last.Fill(0)
	last.Set(11, 0, 5)

	paramsDir := filepath.Join(dir, "params")
	require.NoError(t, checkpoint.Save(paramsDir, p, checkpoint.Describe(p, "x", 0)))
	imagePath := filepath.Join(dir, "b.png")
	writeBlankPNG(t, imagePath, 32)

	cfg := config.Default()
	require.Equal(t, 24, cfg.ImageSize)

	var out bytes.Buffer
	require.NoError(t, predict(&out, cfg, imagePath, paramsDir))
	assert.Equal(t, "b\n", out.String())
}
