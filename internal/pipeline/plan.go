package pipeline

import "fmt"

// Mode selects the processing depth.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeBalanced Mode = "balanced"
	ModeFull     Mode = "full"
)

// RecognitionMode selects which recognizers contribute to the result.
// RecognitionAI hands the raw image to the external vision provider and
// bypasses the engine entirely.
type RecognitionMode string

const (
	RecognitionBarcodeOnly   RecognitionMode = "barcode_only"
	RecognitionOCROnly       RecognitionMode = "ocr_only"
	RecognitionBarcodeAndOCR RecognitionMode = "barcode_and_ocr"
	RecognitionAI            RecognitionMode = "ai"
)

// SortOrder selects the ordering policy for result items.
type SortOrder string

const (
	SortTopToBottom  SortOrder = "top_to_bottom"
	SortLeftToRight  SortOrder = "left_to_right"
	SortReadingOrder SortOrder = "reading_order"
)

// OCRMode selects the text extraction backend.
type OCRMode string

const (
	OCRLocal OCRMode = "local"
	OCRCloud OCRMode = "cloud"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFast, ModeBalanced, ModeFull:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q", s)
}

// ParseRecognitionMode validates a recognition mode string.
func ParseRecognitionMode(s string) (RecognitionMode, error) {
	switch RecognitionMode(s) {
	case RecognitionBarcodeOnly, RecognitionOCROnly, RecognitionBarcodeAndOCR, RecognitionAI:
		return RecognitionMode(s), nil
	}
	return "", fmt.Errorf("invalid recognition mode %q", s)
}

// ParseSortOrder validates a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case SortTopToBottom, SortLeftToRight, SortReadingOrder:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("invalid sort order %q", s)
}

// ParseOCRMode validates an OCR backend selector.
func ParseOCRMode(s string) (OCRMode, error) {
	switch OCRMode(s) {
	case OCRLocal, OCRCloud:
		return OCRMode(s), nil
	}
	return "", fmt.Errorf("invalid ocr mode %q", s)
}

// StagePlan describes which pipeline stages run for a request. Ordering of
// result items is applied to every plan. Passthrough plans skip the engine
// entirely and hand the raw image to the configured vision provider.
type StagePlan struct {
	Passthrough    bool
	DetectBarcodes bool
	ExtractText    bool
	RegionLimited  bool
	Associate      bool
	ExtractFields  bool
	IncludeDetails bool
}

// PlanFor maps a mode and recognition mode onto the stages to run. The
// mapping is a pure lookup with no side effects.
//
// Barcode detection is skipped for ocr_only requests in every mode since
// its output could never appear in an ocr_only result.
func PlanFor(mode Mode, rec RecognitionMode) StagePlan {
	if rec == RecognitionAI {
		return StagePlan{Passthrough: true}
	}
	if rec == RecognitionBarcodeOnly {
		return StagePlan{DetectBarcodes: true}
	}

	plan := StagePlan{
		ExtractText: true,
		Associate:   true,
	}
	if rec == RecognitionBarcodeAndOCR {
		plan.DetectBarcodes = true
	}
	switch mode {
	case ModeBalanced:
		plan.RegionLimited = plan.DetectBarcodes
	case ModeFull:
		plan.ExtractFields = true
		plan.IncludeDetails = true
	case ModeFast:
	}
	return plan
}
