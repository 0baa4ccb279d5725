package utils

import (
	"image"

	"github.com/disintegration/imaging"
)

// NormalizeSize caps the longest image side at maxSize pixels, preserving
// aspect ratio. Images already within the limit are returned unchanged.
func NormalizeSize(img image.Image, maxSize int) image.Image {
	if maxSize <= 0 {
		return img
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSize && h <= maxSize {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxSize, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxSize, imaging.Lanczos)
}

// Grayscale converts the image to grayscale.
func Grayscale(img image.Image) image.Image {
	return imaging.Grayscale(img)
}

// EnhanceContrast raises contrast by the given percentage (-100..100).
func EnhanceContrast(img image.Image, percent float64) image.Image {
	return imaging.AdjustContrast(img, percent)
}

// Sharpen applies an unsharp mask with the given sigma.
func Sharpen(img image.Image, sigma float64) image.Image {
	return imaging.Sharpen(img, sigma)
}

// Invert inverts the image colors.
func Invert(img image.Image) image.Image {
	return imaging.Invert(img)
}

// Crop extracts the given rectangle clamped to the image bounds. The second
// return value is false when the rectangle does not intersect the image.
func Crop(img image.Image, r image.Rectangle) (image.Image, bool) {
	clamped := r.Intersect(img.Bounds())
	if clamped.Empty() {
		return nil, false
	}
	return imaging.Crop(img, clamped), true
}

// ExpandRect grows a rectangle by margin on every side.
func ExpandRect(r image.Rectangle, margin int) image.Rectangle {
	return image.Rect(r.Min.X-margin, r.Min.Y-margin, r.Max.X+margin, r.Max.Y+margin)
}
