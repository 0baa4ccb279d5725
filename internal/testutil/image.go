// Package testutil provides shared helpers for tests: synthetic image
// generation and encoding.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CreateTestImage creates a solid-color test image.
func CreateTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// CreateLabelImage creates a white image with black text lines drawn at the
// given y offsets, approximating a printed label.
func CreateLabelImage(width, height int, lines map[int]string) *image.RGBA {
	img := CreateTestImage(width, height, color.White)
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	for y, text := range lines {
		drawer.Dot = fixed.P(10, y)
		drawer.DrawString(text)
	}
	return img
}

// EncodePNG encodes an image as PNG bytes, failing the test on error.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
