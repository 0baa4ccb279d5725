package barcode

import (
	"context"
	"image"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// NewBackend returns the gozxing-backed decoder.
func NewBackend() Backend { return &gozxingBackend{} }

type gozxingBackend struct{}

type formatReader struct {
	format Format
	reader func() gozxing.Reader
}

// Readers are created per decode call since several gozxing readers carry
// internal decode state. Each reader reports at most one symbol per image;
// the detector's enhancement cascade provides additional chances for labels
// carrying several symbols of the same symbology.
var formatReaders = []formatReader{
	{FormatQR, func() gozxing.Reader { return qrcode.NewQRCodeReader() }},
	{FormatDataMatrix, func() gozxing.Reader { return datamatrix.NewDataMatrixReader() }},
	{FormatAztec, func() gozxing.Reader { return aztec.NewAztecReader() }},
	{FormatCode128, func() gozxing.Reader { return oned.NewCode128Reader() }},
	{FormatCode39, func() gozxing.Reader { return oned.NewCode39Reader() }},
	{FormatCode93, func() gozxing.Reader { return oned.NewCode93Reader() }},
	{FormatEAN13, func() gozxing.Reader { return oned.NewEAN13Reader() }},
	{FormatEAN8, func() gozxing.Reader { return oned.NewEAN8Reader() }},
	{FormatUPCA, func() gozxing.Reader { return oned.NewUPCAReader() }},
	{FormatUPCE, func() gozxing.Reader { return oned.NewUPCEReader() }},
	{FormatITF, func() gozxing.Reader { return oned.NewITFReader() }},
	{FormatCodabar, func() gozxing.Reader { return oned.NewCodaBarReader() }},
}

func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return nil, err
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	wanted := make(map[Format]bool, len(opts.Formats))
	for _, f := range opts.Formats {
		wanted[f] = true
	}

	var out []Result
	for _, fr := range formatReaders {
		if len(wanted) > 0 && !wanted[fr.format] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		r, err := fr.reader().Decode(bitmap, hints)
		if err != nil || r == nil || r.GetText() == "" {
			continue
		}
		out = append(out, normalizeResult(fr.format, r))
	}
	return out, nil
}

func normalizeResult(f Format, r *gozxing.Result) Result {
	pts := r.GetResultPoints()
	points := make([]Point, 0, len(pts))
	for _, p := range pts {
		points = append(points, Point{X: int(p.GetX()), Y: int(p.GetY())})
	}
	return Result{
		Type:       f,
		Value:      r.GetText(),
		Points:     points,
		BBox:       rectFromPoints(points),
		Confidence: -1, // gozxing does not provide calibrated confidence
	}
}

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
