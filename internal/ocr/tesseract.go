package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine wraps a gosseract client. The client holds native
// tesseract state, so one engine handle serves one extraction at a time.
type TesseractEngine struct {
	client    *gosseract.Client
	language  string
	whitelist string
}

// NewTesseractEngine creates a local OCR engine for the given language.
// An empty whitelist leaves tesseract's character set unrestricted.
func NewTesseractEngine(language, whitelist string) (*TesseractEngine, error) {
	client := gosseract.NewClient()
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: set language %s: %v", ErrNotConfigured, language, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if whitelist != "" {
		if err := client.SetVariable("tessedit_char_whitelist", whitelist); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set char whitelist: %w", err)
		}
	}
	return &TesseractEngine{client: client, language: language, whitelist: whitelist}, nil
}

// Fragments runs tesseract over the image and returns one fragment per
// recognized text line. Confidence is normalized from tesseract's 0-100
// scale to [0, 1].
func (e *TesseractEngine) Fragments(ctx context.Context, img image.Image) ([]Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image for ocr: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set ocr image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract recognition failed: %w", err)
	}

	fragments := make([]Fragment, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		fragments = append(fragments, Fragment{
			Text:       text,
			Box:        b.Box,
			Confidence: b.Confidence / 100.0,
		})
	}
	return fragments, nil
}

// Close releases the native tesseract client.
func (e *TesseractEngine) Close() error {
	return e.client.Close()
}
