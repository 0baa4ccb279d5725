package batch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MeKo-Tech/labelscan/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []pipeline.BatchItemResult {
	return []pipeline.BatchItemResult{
		{
			Index: 0,
			Name:  "good.png",
			Result: &pipeline.ProcessingResult{
				ModeUsed:  pipeline.ModeFast,
				SortOrder: pipeline.SortTopToBottom,
				Items: []pipeline.RecognitionItem{
					{Order: 1, Type: pipeline.ItemBarcode, Barcode: &pipeline.BarcodeDetection{Payload: "123", Symbology: "QR"}},
				},
			},
		},
		{
			Index: 1,
			Name:  "bad.png",
			Err:   errors.New("invalid image format"),
		},
	}
}

func TestFormatResults_JSON(t *testing.T) {
	out, err := formatResults(sampleResults(), "json")
	require.NoError(t, err)

	var decoded struct {
		Images []struct {
			File    string          `json:"file"`
			Success bool            `json:"success"`
			Result  json.RawMessage `json:"result"`
			Error   string          `json:"error"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	require.Len(t, decoded.Images, 2)
	assert.Equal(t, "good.png", decoded.Images[0].File)
	assert.True(t, decoded.Images[0].Success)
	assert.NotEmpty(t, decoded.Images[0].Result)

	assert.Equal(t, "bad.png", decoded.Images[1].File)
	assert.False(t, decoded.Images[1].Success)
	assert.Equal(t, "invalid image format", decoded.Images[1].Error)
}

func TestFormatResults_EmptyFormatDefaultsToJSON(t *testing.T) {
	out, err := formatResults(sampleResults(), "")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestFormatResults_Text(t *testing.T) {
	out, err := formatResults(sampleResults(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "=== good.png ===")
	assert.Contains(t, out, "QR: 123")
	assert.Contains(t, out, "=== bad.png ===")
	assert.Contains(t, out, "error: invalid image format")
}

func TestFormatResults_UnknownFormat(t *testing.T) {
	_, err := formatResults(nil, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
