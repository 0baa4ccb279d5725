package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/labelscan/internal/common"
	"github.com/MeKo-Tech/labelscan/internal/config"
	"github.com/MeKo-Tech/labelscan/internal/utils"
)

// ErrPassthroughMode is returned when an ai recognition request reaches the
// engine; such requests are served by the ai recognizer instead.
var ErrPassthroughMode = errors.New("ai recognition bypasses the recognition engine")

// Request carries per-request parameters. Zero values fall back to the
// defaults in the runtime settings snapshot.
type Request struct {
	Mode              Mode
	RecognitionMode   RecognitionMode
	SortOrder         SortOrder
	OCRMode           OCRMode
	PositionTolerance int
}

func (r Request) withDefaults(s config.Settings) Request {
	if r.Mode == "" {
		r.Mode = Mode(s.DefaultMode)
	}
	if r.RecognitionMode == "" {
		r.RecognitionMode = RecognitionMode(s.DefaultRecognitionMode)
	}
	if r.SortOrder == "" {
		r.SortOrder = SortOrder(s.DefaultSortOrder)
	}
	if r.OCRMode == "" {
		r.OCRMode = OCRMode(s.DefaultOCRMode)
	}
	if r.PositionTolerance <= 0 {
		r.PositionTolerance = s.PositionTolerance
	}
	return r
}

// Validate checks the request parameters against the known enums. Empty
// values are allowed since they take defaults.
func (r Request) Validate() error {
	if r.Mode != "" {
		if _, err := ParseMode(string(r.Mode)); err != nil {
			return err
		}
	}
	if r.RecognitionMode != "" {
		if _, err := ParseRecognitionMode(string(r.RecognitionMode)); err != nil {
			return err
		}
	}
	if r.SortOrder != "" {
		if _, err := ParseSortOrder(string(r.SortOrder)); err != nil {
			return err
		}
	}
	if r.OCRMode != "" {
		if _, err := ParseOCRMode(string(r.OCRMode)); err != nil {
			return err
		}
	}
	return nil
}

// Process runs the recognition pipeline over one encoded image. The stage
// set follows PlanFor; configuration is read once at entry so a concurrent
// settings update never changes behavior mid-request.
//
// When the per-request deadline expires after barcode detection finished,
// a partial barcode-only result is returned instead of an error.
func (p *Pipeline) Process(ctx context.Context, data []byte, req Request) (*ProcessingResult, error) {
	snapshot := p.runtime.Snapshot()
	req = req.withDefaults(snapshot)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan := PlanFor(req.Mode, req.RecognitionMode)
	if plan.Passthrough {
		return nil, ErrPassthroughMode
	}

	if snapshot.RequestTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(snapshot.RequestTimeoutSec)*time.Second)
		defer cancel()
	}

	timer := common.NewNamedTimer("process")
	var timings common.StageTimings

	img, err := utils.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	normalized := utils.NormalizeSize(img, snapshot.MaxImageSize)

	var barcodes []BarcodeDetection
	if plan.DetectBarcodes {
		stage := common.NewTimer()
		barcodes, err = p.detector.Detect(ctx, normalized)
		timings.Record("barcode", stage.Stop())
		if err != nil {
			// The cascade did not finish; the partial-result allowance only
			// covers timeouts after a completed barcode stage.
			return nil, fmt.Errorf("barcode detection interrupted: %w", err)
		}
	}

	var fragments []TextFragment
	degraded := false
	if plan.ExtractText {
		if ctx.Err() != nil && plan.DetectBarcodes {
			return p.partialResult(req, barcodes, timer), nil
		}

		extractor, ok := p.extractors[req.OCRMode]
		if !ok {
			return nil, fmt.Errorf("no extractor for ocr mode %q", req.OCRMode)
		}

		var regions []BoundingBox
		if plan.RegionLimited && len(barcodes) > 0 {
			regions = cropRegions(barcodes, snapshot.CropMargin)
		}

		stage := common.NewTimer()
		fragments, err = extractor.Extract(ctx, normalized, regions)
		timings.Record("ocr", stage.Stop())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				if plan.DetectBarcodes {
					return p.partialResult(req, barcodes, timer), nil
				}
				return nil, fmt.Errorf("text extraction timed out: %w", err)
			}
			// Extraction is a soft dependency: log, degrade to whatever the
			// barcode stage produced, and flag the component in Health.
			slog.Warn("text extraction unavailable, degrading",
				"ocr_mode", req.OCRMode, "error", err)
			fragments = nil
			degraded = true
		}
		fragments = filterFragments(fragments, snapshot.MinOCRConfidence)
	}

	items := p.assemble(plan, req, barcodes, fragments)
	items = sortItems(items, req.SortOrder)

	result := &ProcessingResult{
		ModeUsed:        req.Mode,
		RecognitionMode: req.RecognitionMode,
		SortOrder:       req.SortOrder,
		Items:           items,
		Degraded:        degraded,
	}
	if plan.IncludeDetails {
		result.FullText = itemsFullText(items)
		if plan.ExtractFields {
			result.StructuredFields = ExtractFields(result.FullText)
		}
	}
	if !plan.IncludeDetails {
		stripDetails(result.Items)
	}

	result.ProcessTimeMs = timer.Stop().Milliseconds()
	slog.Debug("image processed",
		append([]any{
			"mode", req.Mode,
			"recognition_mode", req.RecognitionMode,
			"items", len(items),
			"total_ms", result.ProcessTimeMs,
		}, timings.Attrs()...)...)
	return result, nil
}

// assemble turns stage outputs into unordered result items.
func (p *Pipeline) assemble(plan StagePlan, req Request, barcodes []BarcodeDetection, fragments []TextFragment) []RecognitionItem {
	if !plan.ExtractText {
		return barcodeItems(barcodes)
	}

	var groups []AssociationGroup
	standalone := fragments
	if plan.Associate && plan.DetectBarcodes {
		groups, standalone = associate(barcodes, fragments, float64(req.PositionTolerance))
	}

	items := make([]RecognitionItem, 0, len(groups)+len(standalone))
	for _, g := range groups {
		if len(g.Fragments) == 0 {
			bc := g.Barcode
			items = append(items, RecognitionItem{Type: ItemBarcode, Box: bc.Box, Barcode: &bc})
			continue
		}
		group := g
		items = append(items, RecognitionItem{Type: ItemGroup, Box: groupBox(group), Group: &group})
	}
	for _, f := range standalone {
		frag := f
		items = append(items, RecognitionItem{Type: ItemText, Box: frag.Box, Text: &frag})
	}
	return items
}

// partialResult builds the barcode-only result permitted when the deadline
// expires after barcode detection completed.
func (p *Pipeline) partialResult(req Request, barcodes []BarcodeDetection, timer *common.Timer) *ProcessingResult {
	items := sortItems(barcodeItems(barcodes), req.SortOrder)
	slog.Warn("request deadline expired, returning partial barcode-only result",
		"mode", req.Mode, "barcodes", len(barcodes))
	return &ProcessingResult{
		ProcessTimeMs:   timer.Stop().Milliseconds(),
		ModeUsed:        req.Mode,
		RecognitionMode: req.RecognitionMode,
		SortOrder:       req.SortOrder,
		Items:           items,
		Partial:         true,
	}
}

func barcodeItems(barcodes []BarcodeDetection) []RecognitionItem {
	items := make([]RecognitionItem, 0, len(barcodes))
	for _, b := range barcodes {
		bc := b
		items = append(items, RecognitionItem{Type: ItemBarcode, Box: bc.Box, Barcode: &bc})
	}
	return items
}

// cropRegions expands barcode boxes by the configured margin to cover the
// text usually printed beside each symbol.
func cropRegions(barcodes []BarcodeDetection, margin int) []BoundingBox {
	regions := make([]BoundingBox, 0, len(barcodes))
	for _, b := range barcodes {
		regions = append(regions, BoxFromRect(utils.ExpandRect(b.Box.Rect(), margin)))
	}
	return regions
}

func filterFragments(fragments []TextFragment, minConfidence float64) []TextFragment {
	if minConfidence <= 0 {
		return fragments
	}
	kept := fragments[:0]
	for _, f := range fragments {
		if f.Confidence >= minConfidence {
			kept = append(kept, f)
		}
	}
	return kept
}

// stripDetails drops per-fragment group detail outside full mode; the
// joined related_text remains.
func stripDetails(items []RecognitionItem) {
	for i := range items {
		if items[i].Group != nil {
			items[i].Group.Fragments = nil
		}
	}
}
