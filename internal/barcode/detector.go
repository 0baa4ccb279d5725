package barcode

import (
	"context"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/labelscan/internal/utils"
)

const duplicateOverlapRatio = 0.5

// Detector runs the backend over a cascade of image enhancements and merges
// the passes into a deduplicated detection list.
type Detector struct {
	backend Backend
	opts    Options
}

// NewDetector creates a detector around the given backend. A nil backend
// selects the default gozxing implementation.
func NewDetector(backend Backend) *Detector {
	if backend == nil {
		backend = NewBackend()
	}
	return &Detector{
		backend: backend,
		opts:    Options{TryHarder: true},
	}
}

// enhancement produces a decode variant of the normalized input. Damaged or
// low-contrast labels often decode only on one of these.
type enhancement struct {
	name  string
	apply func(image.Image) image.Image
}

var enhancements = []enhancement{
	{"original", func(img image.Image) image.Image { return img }},
	{"grayscale", utils.Grayscale},
	{"contrast", func(img image.Image) image.Image { return utils.EnhanceContrast(img, 30) }},
	{"sharpen", func(img image.Image) image.Image { return utils.Sharpen(img, 1.5) }},
	{"invert", utils.Invert},
}

// Detect decodes barcodes from the image. Every enhancement pass runs unless
// the context expires; passes that find nothing contribute nothing. The
// merged list is deduplicated and deterministic for identical input.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]Result, error) {
	var merged []Result
	for _, enh := range enhancements {
		if err := ctx.Err(); err != nil {
			return merged, err
		}
		results, err := d.backend.Decode(ctx, enh.apply(img), d.opts)
		if err != nil {
			// Backend errors on a single variant are not fatal; the other
			// variants may still decode.
			slog.Debug("barcode pass failed", "enhancement", enh.name, "error", err)
			continue
		}
		for _, r := range results {
			// A decode without payload text is not a detection.
			if r.Value == "" {
				continue
			}
			merged = mergeResult(merged, r)
		}
	}
	return merged, nil
}

// mergeResult folds r into the list, collapsing duplicates. Two detections
// are duplicates when their payloads are equal and their boxes overlap by
// more than duplicateOverlapRatio of the smaller box. The survivor keeps the
// higher confidence and the union of both boxes.
func mergeResult(list []Result, r Result) []Result {
	for i := range list {
		if list[i].Value != r.Value {
			continue
		}
		if overlapRatio(list[i].BBox, r.BBox) <= duplicateOverlapRatio {
			continue
		}
		list[i].BBox = list[i].BBox.Union(r.BBox)
		if r.Confidence > list[i].Confidence {
			list[i].Confidence = r.Confidence
		}
		if list[i].Type == FormatUnknown {
			list[i].Type = r.Type
		}
		return list
	}
	return append(list, r)
}

// overlapRatio returns intersection area over the smaller box area.
func overlapRatio(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	areaA := a.Dx() * a.Dy()
	areaB := b.Dx() * b.Dy()
	smaller := min(areaA, areaB)
	if smaller == 0 {
		return 0
	}
	return float64(inter.Dx()*inter.Dy()) / float64(smaller)
}
