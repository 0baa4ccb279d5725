package pipeline

import (
	"context"
	"image"

	"github.com/MeKo-Tech/labelscan/internal/barcode"
)

// detectorAdapter maps the barcode package's results onto the pipeline data
// model. Backends that report no confidence are assigned full confidence,
// matching decoders that only return verified payloads.
type detectorAdapter struct {
	inner *barcode.Detector
}

func (a *detectorAdapter) Detect(ctx context.Context, img image.Image) ([]BarcodeDetection, error) {
	results, err := a.inner.Detect(ctx, img)
	detections := make([]BarcodeDetection, 0, len(results))
	for _, r := range results {
		conf := r.Confidence
		if conf < 0 {
			conf = 1.0
		}
		detections = append(detections, BarcodeDetection{
			Payload:    r.Value,
			Symbology:  r.Type.String(),
			Box:        BoxFromRect(r.BBox),
			Confidence: conf,
		})
	}
	return detections, err
}
