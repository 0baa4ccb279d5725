package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsFullText_SkipsBarcodePayloads(t *testing.T) {
	items := []RecognitionItem{
		{Type: ItemBarcode, Barcode: &BarcodeDetection{Payload: "123"}},
		{Type: ItemText, Text: &TextFragment{Text: "hello"}},
		{Type: ItemGroup, Group: &AssociationGroup{RelatedText: "world"}},
	}
	assert.Equal(t, "hello world", itemsFullText(items))
}

func TestItemsFullText_Empty(t *testing.T) {
	assert.Empty(t, itemsFullText(nil))
	assert.Empty(t, itemsFullText([]RecognitionItem{
		{Type: ItemBarcode, Barcode: &BarcodeDetection{Payload: "x"}},
	}))
}

func TestProcessingResult_Barcodes(t *testing.T) {
	r := &ProcessingResult{Items: []RecognitionItem{
		{Type: ItemBarcode, Barcode: &BarcodeDetection{Payload: "direct"}},
		{Type: ItemGroup, Group: &AssociationGroup{Barcode: BarcodeDetection{Payload: "grouped"}}},
		{Type: ItemText, Text: &TextFragment{Text: "text"}},
	}}

	barcodes := r.Barcodes()
	require.Len(t, barcodes, 2)
	assert.Equal(t, "direct", barcodes[0].Payload)
	assert.Equal(t, "grouped", barcodes[1].Payload)
}

func TestProcessingResult_PlainText(t *testing.T) {
	r := &ProcessingResult{Items: []RecognitionItem{
		{Type: ItemBarcode, Barcode: &BarcodeDetection{Payload: "123", Symbology: "QR"}},
		{Type: ItemGroup, Group: &AssociationGroup{
			Barcode:     BarcodeDetection{Payload: "456", Symbology: "CODE128"},
			RelatedText: "P/N: X",
		}},
		{Type: ItemText, Text: &TextFragment{Text: "standalone"}},
	}}

	assert.Equal(t, "QR: 123\nCODE128: 456 | P/N: X\nstandalone", r.PlainText())
}

func TestProcessingResult_JSONShape(t *testing.T) {
	r := &ProcessingResult{
		ProcessTimeMs:   42,
		ModeUsed:        ModeFull,
		RecognitionMode: RecognitionBarcodeAndOCR,
		SortOrder:       SortTopToBottom,
		Items: []RecognitionItem{
			{
				Order: 1,
				Type:  ItemBarcode,
				Box:   box(1, 2, 3, 4),
				Barcode: &BarcodeDetection{
					Payload: "123", Symbology: "QR", Box: box(1, 2, 3, 4), Confidence: 1,
				},
			},
		},
		StructuredFields: map[string]string{"QTY": "5"},
		FullText:         "QTY: 5",
	}

	out, err := r.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	assert.Equal(t, float64(42), decoded["process_time"])
	assert.Equal(t, "full", decoded["mode_used"])
	assert.Equal(t, "barcode_and_ocr", decoded["recognition_mode"])
	assert.Equal(t, "top_to_bottom", decoded["sort_order"])
	assert.Contains(t, decoded, "results")
	assert.NotContains(t, decoded, "partial", "partial is omitted when false")
	assert.NotContains(t, decoded, "degraded")

	items, ok := decoded["results"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), item["order"])
	assert.Equal(t, "barcode", item["type"])

	data, ok := item["data"].(map[string]any)
	require.True(t, ok, "item payload lives under the data key")
	assert.Equal(t, "123", data["barcode_data"])
	assert.Equal(t, "QR", data["barcode_type"])
	assert.NotContains(t, item, "barcode")

	pos, ok := item["position"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), pos["x"])
	assert.Equal(t, float64(2), pos["y"])
	assert.Equal(t, float64(3), pos["width"])
	assert.Equal(t, float64(4), pos["height"])
}

func TestRecognitionItem_WireShape(t *testing.T) {
	items := []RecognitionItem{
		{
			Order: 1,
			Type:  ItemGroup,
			Box:   box(0, 0, 100, 60),
			Group: &AssociationGroup{
				Barcode:     BarcodeDetection{Payload: "456", Symbology: "CODE128", Box: box(0, 0, 100, 20), Confidence: 1},
				Fragments:   []TextFragment{{Text: "P/N: X", Box: box(0, 30, 80, 12), Confidence: 0.9}},
				RelatedText: "P/N: X",
			},
		},
		{
			Order: 2,
			Type:  ItemText,
			Box:   box(0, 80, 50, 12),
			Text:  &TextFragment{Text: "standalone", Box: box(0, 80, 50, 12), Confidence: 0.8},
		},
	}

	out, err := json.Marshal(items)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 2)

	group := decoded[0]
	assert.Equal(t, "barcode_group", group["type"])
	groupData, ok := group["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "456", groupData["barcode_data"])
	assert.Equal(t, "CODE128", groupData["barcode_type"])
	assert.Equal(t, "P/N: X", groupData["related_text"])
	assert.Contains(t, groupData, "related_text_details")

	text := decoded[1]
	assert.Equal(t, "text", text["type"])
	textData, ok := text["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "standalone", textData["text"])
	assert.NotContains(t, textData, "barcode_data")
}

func TestRecognitionItem_WireRoundTrip(t *testing.T) {
	item := RecognitionItem{
		Order:   3,
		Type:    ItemBarcode,
		Box:     box(5, 6, 40, 20),
		Barcode: &BarcodeDetection{Payload: "789", Symbology: "EAN13", Box: box(5, 6, 40, 20), Confidence: 0.7},
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var back RecognitionItem
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, item, back)
	assert.Nil(t, back.Text)
	assert.Nil(t, back.Group)
}

func TestBoundingBox_Geometry(t *testing.T) {
	b := box(10, 20, 30, 40)
	assert.Equal(t, 40, b.Right())
	assert.Equal(t, 60, b.Bottom())
	assert.Equal(t, 1200, b.Area())
	assert.InDelta(t, 25.0, b.CenterX(), 1e-9)
	assert.InDelta(t, 40.0, b.CenterY(), 1e-9)
}

func TestBoundingBox_Union(t *testing.T) {
	a := box(0, 0, 10, 10)
	b := box(20, 5, 10, 10)
	assert.Equal(t, box(0, 0, 30, 15), a.Union(b))

	// Zero-area box is the identity.
	assert.Equal(t, a, a.Union(BoundingBox{}))
	assert.Equal(t, a, BoundingBox{}.Union(a))
}

func TestBoundingBox_IntersectionArea(t *testing.T) {
	a := box(0, 0, 10, 10)
	assert.Equal(t, 25, a.IntersectionArea(box(5, 5, 10, 10)))
	assert.Equal(t, 0, a.IntersectionArea(box(50, 50, 10, 10)))
	assert.Equal(t, 0, a.IntersectionArea(box(10, 0, 10, 10)), "touching edges do not overlap")
}

func TestBoundingBox_RectRoundTrip(t *testing.T) {
	b := box(3, 4, 5, 6)
	assert.Equal(t, b, BoxFromRect(b.Rect()))
}
