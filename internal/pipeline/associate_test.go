package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x, y, w, h int) BoundingBox {
	return BoundingBox{X: x, Y: y, Width: w, Height: h}
}

func TestAssociate_ToleranceBoundaryInclusive(t *testing.T) {
	barcodes := []BarcodeDetection{
		{Payload: "B1", Box: box(0, 0, 10, 10)},
	}
	// Barcode center is (5,5). A fragment centered at (105,5) sits exactly
	// 100 pixels away.
	atBoundary := []TextFragment{{Text: "edge", Box: box(100, 0, 10, 10)}}

	groups, standalone := associate(barcodes, atBoundary, 100)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Fragments, 1, "distance exactly at tolerance must associate")
	assert.Empty(t, standalone)

	groups, standalone = associate(barcodes, atBoundary, 99)
	assert.Empty(t, groups[0].Fragments, "distance beyond tolerance must stay standalone")
	assert.Len(t, standalone, 1)
}

func TestAssociate_NearestBarcodeWins(t *testing.T) {
	barcodes := []BarcodeDetection{
		{Payload: "far", Box: box(0, 0, 10, 10)},
		{Payload: "near", Box: box(200, 0, 10, 10)},
	}
	frag := TextFragment{Text: "t", Box: box(180, 0, 10, 10)}

	groups, standalone := associate(barcodes, []TextFragment{frag}, 500)
	assert.Empty(t, standalone)
	assert.Empty(t, groups[0].Fragments)
	require.Len(t, groups[1].Fragments, 1)
	assert.Equal(t, "t", groups[1].Fragments[0].Text)
}

func TestAssociate_TieBreakSmallerYThenX(t *testing.T) {
	// Two barcodes equidistant from the fragment. The one with the smaller
	// top-left y wins; at equal y the smaller x wins.
	barcodes := []BarcodeDetection{
		{Payload: "lower", Box: box(0, 100, 10, 10)},
		{Payload: "upper", Box: box(0, 0, 10, 10)},
	}
	frag := TextFragment{Text: "mid", Box: box(0, 50, 10, 10)}

	groups, _ := associate(barcodes, []TextFragment{frag}, 200)
	assert.Empty(t, groups[0].Fragments)
	require.Len(t, groups[1].Fragments, 1, "tie must go to the barcode with smaller y")

	barcodes = []BarcodeDetection{
		{Payload: "right", Box: box(100, 0, 10, 10)},
		{Payload: "left", Box: box(0, 0, 10, 10)},
	}
	frag = TextFragment{Text: "mid", Box: box(50, 0, 10, 10)}

	groups, _ = associate(barcodes, []TextFragment{frag}, 200)
	assert.Empty(t, groups[0].Fragments)
	require.Len(t, groups[1].Fragments, 1, "tie at equal y must go to smaller x")
}

func TestAssociate_Conservation(t *testing.T) {
	barcodes := []BarcodeDetection{
		{Payload: "A", Box: box(0, 0, 20, 20)},
		{Payload: "B", Box: box(500, 0, 20, 20)},
	}
	fragments := []TextFragment{
		{Text: "f1", Box: box(0, 30, 10, 10)},
		{Text: "f2", Box: box(500, 30, 10, 10)},
		{Text: "f3", Box: box(250, 800, 10, 10)},
		{Text: "f4", Box: box(5, 50, 10, 10)},
	}

	groups, standalone := associate(barcodes, fragments, 100)

	total := len(standalone)
	for _, g := range groups {
		total += len(g.Fragments)
	}
	assert.Equal(t, len(fragments), total, "every fragment appears exactly once")
}

func TestAssociate_NoBarcodes(t *testing.T) {
	fragments := []TextFragment{{Text: "alone", Box: box(0, 0, 10, 10)}}
	groups, standalone := associate(nil, fragments, 100)
	assert.Empty(t, groups)
	assert.Equal(t, fragments, standalone)
}

func TestAssociate_FragmentOrderWithinGroup(t *testing.T) {
	barcodes := []BarcodeDetection{{Payload: "B", Box: box(50, 50, 20, 20)}}
	fragments := []TextFragment{
		{Text: "third", Box: box(10, 80, 10, 10)},
		{Text: "second", Box: box(90, 20, 10, 10)},
		{Text: "first", Box: box(10, 20, 10, 10)},
	}

	groups, _ := associate(barcodes, fragments, 1000)
	require.Len(t, groups[0].Fragments, 3)
	assert.Equal(t, "first", groups[0].Fragments[0].Text)
	assert.Equal(t, "second", groups[0].Fragments[1].Text)
	assert.Equal(t, "third", groups[0].Fragments[2].Text)
	assert.Equal(t, "first second third", groups[0].RelatedText)
}

func TestAssociate_Deterministic(t *testing.T) {
	barcodes := []BarcodeDetection{
		{Payload: "A", Box: box(0, 0, 30, 30)},
		{Payload: "B", Box: box(300, 0, 30, 30)},
		{Payload: "C", Box: box(0, 300, 30, 30)},
	}
	fragments := []TextFragment{
		{Text: "f1", Box: box(40, 10, 20, 10)},
		{Text: "f2", Box: box(340, 10, 20, 10)},
		{Text: "f3", Box: box(150, 150, 20, 10)},
	}

	firstGroups, firstStandalone := associate(barcodes, fragments, 250)
	for range 20 {
		groups, standalone := associate(barcodes, fragments, 250)
		assert.Equal(t, firstGroups, groups)
		assert.Equal(t, firstStandalone, standalone)
	}
}

func TestGroupBox_UnionOfMembers(t *testing.T) {
	g := AssociationGroup{
		Barcode: BarcodeDetection{Box: box(10, 10, 20, 20)},
		Fragments: []TextFragment{
			{Box: box(0, 40, 10, 10)},
			{Box: box(50, 5, 10, 10)},
		},
	}
	got := groupBox(g)
	assert.Equal(t, box(0, 5, 60, 45), got)
}

func TestCenterDistance(t *testing.T) {
	a := box(0, 0, 10, 10)
	b := box(30, 40, 10, 10)
	assert.InDelta(t, 50.0, centerDistance(a, b), 1e-9)
}
