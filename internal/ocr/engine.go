// Package ocr provides pluggable text extraction engines and a bounded
// handle pool for sharing them across concurrent requests.
package ocr

import (
	"context"
	"errors"
	"image"
)

// ErrNotConfigured marks an engine that cannot run because required
// configuration (binary, model, credentials) is missing. Callers degrade
// instead of failing the request.
var ErrNotConfigured = errors.New("ocr engine not configured")

// Fragment is one recognized unit of text with its location in the scanned
// image's coordinates.
type Fragment struct {
	Text       string
	Box        image.Rectangle
	Confidence float64 // [0, 1]
}

// Engine extracts positioned text from an image. Implementations are not
// required to be safe for concurrent use; the pool serializes access to
// each handle.
type Engine interface {
	Fragments(ctx context.Context, img image.Image) ([]Fragment, error)
	Close() error
}

// Factory creates a new engine handle.
type Factory func() (Engine, error)
