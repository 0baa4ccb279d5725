package pipeline

import (
	"context"
	"encoding/json"
	"image"
)

// BoundingBox is an axis-aligned rectangle in image pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CenterX returns the horizontal center of the box.
func (b BoundingBox) CenterX() float64 { return float64(b.X) + float64(b.Width)/2 }

// CenterY returns the vertical center of the box.
func (b BoundingBox) CenterY() float64 { return float64(b.Y) + float64(b.Height)/2 }

// Right returns the exclusive right edge.
func (b BoundingBox) Right() int { return b.X + b.Width }

// Bottom returns the exclusive bottom edge.
func (b BoundingBox) Bottom() int { return b.Y + b.Height }

// Area returns the box area in pixels.
func (b BoundingBox) Area() int { return b.Width * b.Height }

// Union returns the smallest box containing both boxes.
// A zero-area box acts as the identity element.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if b.Area() == 0 {
		return o
	}
	if o.Area() == 0 {
		return b
	}
	minX := min(b.X, o.X)
	minY := min(b.Y, o.Y)
	maxX := max(b.Right(), o.Right())
	maxY := max(b.Bottom(), o.Bottom())
	return BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// IntersectionArea returns the overlapping area of both boxes.
func (b BoundingBox) IntersectionArea(o BoundingBox) int {
	w := min(b.Right(), o.Right()) - max(b.X, o.X)
	h := min(b.Bottom(), o.Bottom()) - max(b.Y, o.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.Right(), b.Bottom())
}

// BoxFromRect converts an image.Rectangle to a BoundingBox.
func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// BarcodeDetection is a single decoded barcode.
type BarcodeDetection struct {
	Payload    string      `json:"payload"`
	Symbology  string      `json:"symbology"`
	Box        BoundingBox `json:"position"`
	Confidence float64     `json:"confidence"`
}

// TextFragment is a unit of recognized text with its location.
type TextFragment struct {
	Text       string      `json:"text"`
	Box        BoundingBox `json:"position"`
	Confidence float64     `json:"confidence"`
}

// AssociationGroup links a barcode with the text fragments located near it.
// RelatedText is the fragments' text joined by single spaces; Fragments
// carries the per-fragment detail and is only serialized in full mode.
type AssociationGroup struct {
	Barcode     BarcodeDetection
	Fragments   []TextFragment
	RelatedText string
}

// ItemType discriminates the members of the result union.
type ItemType string

const (
	ItemBarcode ItemType = "barcode"
	ItemText    ItemType = "text"
	ItemGroup   ItemType = "barcode_group"
)

// RecognitionItem is one entry of the final ordered result list.
// Exactly one of Barcode, Text, or Group is set, matching Type.
type RecognitionItem struct {
	Order   int
	Type    ItemType
	Box     BoundingBox
	Barcode *BarcodeDetection
	Text    *TextFragment
	Group   *AssociationGroup
}

// itemData is the payload half of the wire representation. Barcode-typed
// items carry barcode_data/barcode_type, text items carry text; groups add
// the joined related_text and, in full mode, the per-fragment details.
type itemData struct {
	BarcodeData        string         `json:"barcode_data,omitempty"`
	BarcodeType        string         `json:"barcode_type,omitempty"`
	Text               string         `json:"text,omitempty"`
	RelatedText        string         `json:"related_text,omitempty"`
	RelatedTextDetails []TextFragment `json:"related_text_details,omitempty"`
	Confidence         float64        `json:"confidence,omitempty"`
}

type wireItem struct {
	Order    int         `json:"order"`
	Type     ItemType    `json:"type"`
	Data     itemData    `json:"data"`
	Position BoundingBox `json:"position"`
}

// MarshalJSON serializes the item as {order, type, data, position}.
func (i RecognitionItem) MarshalJSON() ([]byte, error) {
	w := wireItem{Order: i.Order, Type: i.Type, Position: i.Box}
	switch {
	case i.Barcode != nil:
		w.Data = itemData{
			BarcodeData: i.Barcode.Payload,
			BarcodeType: i.Barcode.Symbology,
			Confidence:  i.Barcode.Confidence,
		}
	case i.Group != nil:
		w.Data = itemData{
			BarcodeData:        i.Group.Barcode.Payload,
			BarcodeType:        i.Group.Barcode.Symbology,
			RelatedText:        i.Group.RelatedText,
			RelatedTextDetails: i.Group.Fragments,
			Confidence:         i.Group.Barcode.Confidence,
		}
	case i.Text != nil:
		w.Data = itemData{Text: i.Text.Text, Confidence: i.Text.Confidence}
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the union from the wire representation. The inner
// barcode box of a group is not on the wire; it collapses to the group box.
func (i *RecognitionItem) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	i.Order = w.Order
	i.Type = w.Type
	i.Box = w.Position
	i.Barcode = nil
	i.Text = nil
	i.Group = nil
	switch w.Type {
	case ItemBarcode:
		i.Barcode = &BarcodeDetection{
			Payload:    w.Data.BarcodeData,
			Symbology:  w.Data.BarcodeType,
			Box:        w.Position,
			Confidence: w.Data.Confidence,
		}
	case ItemGroup:
		i.Group = &AssociationGroup{
			Barcode: BarcodeDetection{
				Payload:    w.Data.BarcodeData,
				Symbology:  w.Data.BarcodeType,
				Box:        w.Position,
				Confidence: w.Data.Confidence,
			},
			Fragments:   w.Data.RelatedTextDetails,
			RelatedText: w.Data.RelatedText,
		}
	case ItemText:
		i.Text = &TextFragment{
			Text:       w.Data.Text,
			Box:        w.Position,
			Confidence: w.Data.Confidence,
		}
	}
	return nil
}

// ProcessingResult is the complete output for one image.
type ProcessingResult struct {
	ProcessTimeMs    int64             `json:"process_time"`
	ModeUsed         Mode              `json:"mode_used"`
	RecognitionMode  RecognitionMode   `json:"recognition_mode"`
	SortOrder        SortOrder         `json:"sort_order"`
	Items            []RecognitionItem `json:"results"`
	StructuredFields map[string]string `json:"structured_fields,omitempty"`
	FullText         string            `json:"full_text,omitempty"`
	Partial          bool              `json:"partial,omitempty"`
	Degraded         bool              `json:"degraded,omitempty"`
}

// BarcodeDetector finds barcodes in an image.
type BarcodeDetector interface {
	Detect(ctx context.Context, img image.Image) ([]BarcodeDetection, error)
}

// TextExtractor produces positioned text fragments from an image.
// A nil or empty regions slice requests a full-image scan; otherwise only
// the given regions are scanned and fragment boxes are reported in
// full-image coordinates.
type TextExtractor interface {
	Extract(ctx context.Context, img image.Image, regions []BoundingBox) ([]TextFragment, error)
	Health() string
}
