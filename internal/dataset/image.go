package dataset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// ErrEmptyImage is returned for images with a zero dimension.
var ErrEmptyImage = errors.New("dataset: empty image")

// Features samples img onto a size×size grid and returns one value per cell
// in row-major order. Each pixel is converted to grayscale with weights
// 0.3/0.59/0.11, scaled to [0,1] and binarised: 1 when at least threshold,
// 0 otherwise.
func Features(img image.Image, size int, threshold float64) ([]float64, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, ErrEmptyImage
	}
	features := make([]float64, size*size)
	stepX := float64(width) / float64(size)
	stepY := float64(height) / float64(size)
	for gy := 0; gy < size; gy++ {
		py := bounds.Min.Y + min(height-1, int(float64(gy)*stepY))
		for gx := 0; gx < size; gx++ {
			px := bounds.Min.X + min(width-1, int(float64(gx)*stepX))
			if gray(img, px, py) >= threshold {
				features[gy*size+gx] = 1
			}
		}
	}
	return features, nil
}

func gray(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	// RGBA channels are 16-bit; the weights are applied to 8-bit values.
	return (0.3*float64(r>>8) + 0.59*float64(g>>8) + 0.11*float64(b>>8)) / 255
}

// DecodeFile decodes the image at path and returns its features.
func DecodeFile(path string, size int, threshold float64) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	features, err := Features(img, size, threshold)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return features, nil
}
