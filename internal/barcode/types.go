package barcode

import (
	"context"
	"image"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatCode128
	FormatCode39
	FormatCode93
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

// String returns the canonical symbology name.
func (f Format) String() string {
	switch f {
	case FormatQR:
		return "QR"
	case FormatDataMatrix:
		return "DATAMATRIX"
	case FormatAztec:
		return "AZTEC"
	case FormatCode128:
		return "CODE128"
	case FormatCode39:
		return "CODE39"
	case FormatCode93:
		return "CODE93"
	case FormatEAN8:
		return "EAN8"
	case FormatEAN13:
		return "EAN13"
	case FormatUPCA:
		return "UPCA"
	case FormatUPCE:
		return "UPCE"
	case FormatITF:
		return "ITF"
	case FormatCodabar:
		return "CODABAR"
	default:
		return "UNKNOWN"
	}
}

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool
}

// Point is an integer point in image coordinates.
type Point struct {
	X int
	Y int
}

// Result represents a decoded barcode.
type Result struct {
	Type       Format
	Value      string
	Points     []Point         // Corner or key points if available
	BBox       image.Rectangle // Bounding box derived from points
	Confidence float64         // [-1] if not provided by backend
}

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}
