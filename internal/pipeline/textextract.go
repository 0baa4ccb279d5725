package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/labelscan/internal/ocr"
	"github.com/MeKo-Tech/labelscan/internal/utils"
)

// pooledExtractor adapts an engine pool to the TextExtractor interface and
// tracks component health across requests.
type pooledExtractor struct {
	pool   *ocr.Pool
	status atomic.Value // string: ok, not_configured, error
}

func newPooledExtractor(pool *ocr.Pool) *pooledExtractor {
	x := &pooledExtractor{pool: pool}
	x.status.Store("ok")
	return x
}

// Extract scans the whole image, or only the given regions when regions is
// non-empty. Region fragments are reported in full-image coordinates.
func (x *pooledExtractor) Extract(ctx context.Context, img image.Image, regions []BoundingBox) ([]TextFragment, error) {
	engine, err := x.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ocr.ErrNotConfigured) {
			x.status.Store("not_configured")
		}
		return nil, err
	}

	fragments, err := x.extractWith(ctx, engine, img, regions)
	if err != nil {
		// The handle's native state is suspect after a failure; build a
		// fresh one next time.
		x.pool.Discard(engine)
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			x.status.Store("error")
		}
		return nil, err
	}
	x.pool.Release(engine)
	x.status.Store("ok")
	return fragments, nil
}

func (x *pooledExtractor) extractWith(ctx context.Context, engine ocr.Engine, img image.Image, regions []BoundingBox) ([]TextFragment, error) {
	if len(regions) == 0 {
		raw, err := engine.Fragments(ctx, img)
		if err != nil {
			return nil, err
		}
		return mapFragments(raw, image.Point{}), nil
	}

	var fragments []TextFragment
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		crop, ok := utils.Crop(img, region.Rect())
		if !ok {
			continue
		}
		origin := region.Rect().Intersect(img.Bounds()).Min
		raw, err := engine.Fragments(ctx, crop)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, mapFragments(raw, origin)...)
	}
	return fragments, nil
}

// mapFragments converts engine fragments, shifting boxes back into
// full-image coordinates when they came from a crop.
func mapFragments(raw []ocr.Fragment, offset image.Point) []TextFragment {
	fragments := make([]TextFragment, 0, len(raw))
	for _, f := range raw {
		box := f.Box.Add(offset)
		fragments = append(fragments, TextFragment{
			Text:       f.Text,
			Box:        BoxFromRect(box),
			Confidence: f.Confidence,
		})
	}
	return fragments
}

// Health returns the current component status flag.
func (x *pooledExtractor) Health() string {
	return x.status.Load().(string)
}

// Close shuts down the underlying engine pool.
func (x *pooledExtractor) Close() error {
	return x.pool.Close()
}

// warmup primes one engine handle within the given budget.
func (x *pooledExtractor) warmup(budget time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()
	engine, err := x.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ocr.ErrNotConfigured) {
			x.status.Store("not_configured")
		}
		slog.Debug("ocr warmup failed", "error", err)
		return
	}
	x.pool.Release(engine)
}
