package barcode

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend serves a queue of per-pass results.
type stubBackend struct {
	passes [][]Result
	errs   []error
	calls  int
}

func (b *stubBackend) Decode(_ context.Context, _ image.Image, _ Options) ([]Result, error) {
	i := b.calls
	b.calls++
	var err error
	if i < len(b.errs) {
		err = b.errs[i]
	}
	if i < len(b.passes) {
		return b.passes[i], err
	}
	return nil, err
}

func testImg() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 100, 100))
}

func TestDetect_MergesDuplicatesAcrossPasses(t *testing.T) {
	// Same payload found by two enhancement passes at almost the same spot.
	backend := &stubBackend{passes: [][]Result{
		{{Type: FormatQR, Value: "ABC", BBox: image.Rect(10, 10, 50, 50), Confidence: 0.8}},
		{{Type: FormatQR, Value: "ABC", BBox: image.Rect(12, 12, 54, 54), Confidence: 0.9}},
	}}
	d := NewDetector(backend)

	results, err := d.Detect(context.Background(), testImg())
	require.NoError(t, err)
	require.Len(t, results, 1, "overlapping same-payload detections collapse into one")

	assert.Equal(t, image.Rect(10, 10, 54, 54), results[0].BBox, "survivor keeps the union box")
	assert.InDelta(t, 0.9, results[0].Confidence, 1e-9, "survivor keeps the higher confidence")
}

func TestDetect_SamePayloadFarApartStaysSeparate(t *testing.T) {
	backend := &stubBackend{passes: [][]Result{
		{
			{Type: FormatCode128, Value: "X", BBox: image.Rect(0, 0, 20, 20), Confidence: 1},
			{Type: FormatCode128, Value: "X", BBox: image.Rect(500, 500, 520, 520), Confidence: 1},
		},
	}}
	d := NewDetector(backend)

	results, err := d.Detect(context.Background(), testImg())
	require.NoError(t, err)
	assert.Len(t, results, 2, "identical payloads without box overlap are distinct symbols")
}

func TestDetect_DropsEmptyPayloads(t *testing.T) {
	backend := &stubBackend{passes: [][]Result{
		{
			{Type: FormatQR, Value: "", BBox: image.Rect(0, 0, 20, 20), Confidence: 1},
			{Type: FormatQR, Value: "kept", BBox: image.Rect(40, 40, 60, 60), Confidence: 1},
		},
	}}
	d := NewDetector(backend)

	results, err := d.Detect(context.Background(), testImg())
	require.NoError(t, err)
	require.Len(t, results, 1, "a decode without payload text is not a detection")
	assert.Equal(t, "kept", results[0].Value)
}

func TestDetect_DifferentPayloadsNeverMerge(t *testing.T) {
	backend := &stubBackend{passes: [][]Result{
		{
			{Type: FormatQR, Value: "A", BBox: image.Rect(0, 0, 20, 20), Confidence: 1},
			{Type: FormatQR, Value: "B", BBox: image.Rect(0, 0, 20, 20), Confidence: 1},
		},
	}}
	d := NewDetector(backend)

	results, err := d.Detect(context.Background(), testImg())
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDetect_PassErrorIsNotFatal(t *testing.T) {
	backend := &stubBackend{
		passes: [][]Result{
			nil,
			{{Type: FormatQR, Value: "found", BBox: image.Rect(0, 0, 10, 10), Confidence: 1}},
		},
		errs: []error{errors.New("decode failed")},
	}
	d := NewDetector(backend)

	results, err := d.Detect(context.Background(), testImg())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "found", results[0].Value)
}

func TestDetect_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDetector(&stubBackend{})
	_, err := d.Detect(ctx, testImg())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetect_RunsAllEnhancementPasses(t *testing.T) {
	backend := &stubBackend{}
	d := NewDetector(backend)

	_, err := d.Detect(context.Background(), testImg())
	require.NoError(t, err)
	assert.Equal(t, len(enhancements), backend.calls)
}

func TestMergeResult_ExactlyHalfOverlapStaysSeparate(t *testing.T) {
	// Intersection equal to half the smaller box does not qualify as a
	// duplicate; the threshold is strictly greater than.
	list := []Result{{Value: "V", BBox: image.Rect(0, 0, 10, 10), Confidence: 1}}
	merged := mergeResult(list, Result{Value: "V", BBox: image.Rect(5, 0, 15, 10), Confidence: 1})
	assert.Len(t, merged, 2)
}

func TestMergeResult_FillsUnknownFormat(t *testing.T) {
	list := []Result{{Type: FormatUnknown, Value: "V", BBox: image.Rect(0, 0, 10, 10), Confidence: 0.5}}
	merged := mergeResult(list, Result{Type: FormatQR, Value: "V", BBox: image.Rect(1, 1, 9, 9), Confidence: 0.4})
	require.Len(t, merged, 1)
	assert.Equal(t, FormatQR, merged[0].Type)
	assert.InDelta(t, 0.5, merged[0].Confidence, 1e-9)
}

func TestOverlapRatio(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)

	assert.InDelta(t, 1.0, overlapRatio(a, a), 1e-9)
	assert.InDelta(t, 0.0, overlapRatio(a, image.Rect(20, 20, 30, 30)), 1e-9)

	// Intersection over the smaller box, not the larger.
	small := image.Rect(0, 0, 4, 4)
	assert.InDelta(t, 1.0, overlapRatio(a, small), 1e-9, "small box fully inside")

	half := image.Rect(5, 0, 15, 10)
	assert.InDelta(t, 0.5, overlapRatio(a, half), 1e-9)
}

func TestFormat_String(t *testing.T) {
	tests := map[Format]string{
		FormatQR:         "QR",
		FormatDataMatrix: "DATAMATRIX",
		FormatAztec:      "AZTEC",
		FormatCode128:    "CODE128",
		FormatCode39:     "CODE39",
		FormatCode93:     "CODE93",
		FormatEAN8:       "EAN8",
		FormatEAN13:      "EAN13",
		FormatUPCA:       "UPCA",
		FormatUPCE:       "UPCE",
		FormatITF:        "ITF",
		FormatCodabar:    "CODABAR",
		FormatUnknown:    "UNKNOWN",
	}
	for f, want := range tests {
		assert.Equal(t, want, f.String())
	}
}
