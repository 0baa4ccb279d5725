package pipeline

import (
	"encoding/json"
	"strings"
)

// itemsFullText concatenates all recognized text in item order. Barcode
// payloads are not text and do not contribute.
func itemsFullText(items []RecognitionItem) string {
	var parts []string
	for _, item := range items {
		switch item.Type {
		case ItemText:
			if item.Text != nil && item.Text.Text != "" {
				parts = append(parts, item.Text.Text)
			}
		case ItemGroup:
			if item.Group != nil && item.Group.RelatedText != "" {
				parts = append(parts, item.Group.RelatedText)
			}
		case ItemBarcode:
		}
	}
	return strings.Join(parts, " ")
}

// ToJSON serializes the result for API responses and CLI output.
func (r *ProcessingResult) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Barcodes returns every barcode in the result, whether grouped or not.
func (r *ProcessingResult) Barcodes() []BarcodeDetection {
	var out []BarcodeDetection
	for _, item := range r.Items {
		switch {
		case item.Barcode != nil:
			out = append(out, *item.Barcode)
		case item.Group != nil:
			out = append(out, item.Group.Barcode)
		}
	}
	return out
}

// PlainText returns the text of every item joined by newlines, for the CLI
// text output format.
func (r *ProcessingResult) PlainText() string {
	var lines []string
	for _, item := range r.Items {
		switch {
		case item.Barcode != nil:
			lines = append(lines, item.Barcode.Symbology+": "+item.Barcode.Payload)
		case item.Group != nil:
			line := item.Group.Barcode.Symbology + ": " + item.Group.Barcode.Payload
			if item.Group.RelatedText != "" {
				line += " | " + item.Group.RelatedText
			}
			lines = append(lines, line)
		case item.Text != nil:
			lines = append(lines, item.Text.Text)
		}
	}
	return strings.Join(lines, "\n")
}
