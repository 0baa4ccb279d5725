// Package pipeline orchestrates label recognition: image normalization,
// barcode detection, text extraction, spatial association, ordering and
// structured field extraction.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/labelscan/internal/barcode"
	"github.com/MeKo-Tech/labelscan/internal/config"
	"github.com/MeKo-Tech/labelscan/internal/ocr"
)

// Pipeline is the label recognition engine. It is safe for concurrent use;
// per-request parameters travel in Request values and configuration is read
// once per request from the runtime snapshot store.
type Pipeline struct {
	runtime    *config.Runtime
	detector   BarcodeDetector
	extractors map[OCRMode]TextExtractor
}

// Builder assembles a Pipeline using a fluent interface.
type Builder struct {
	settings  config.Settings
	ocrConfig config.OCRConfig
	runtime   *config.Runtime
	detector  BarcodeDetector
	local     TextExtractor
	cloud     TextExtractor
}

// NewBuilder creates a pipeline builder seeded with defaults.
func NewBuilder() *Builder {
	defaults := config.DefaultConfig()
	return &Builder{
		settings:  defaults.Engine,
		ocrConfig: defaults.OCR,
	}
}

// WithSettings sets the initial runtime settings.
func (b *Builder) WithSettings(s config.Settings) *Builder {
	b.settings = s
	return b
}

// WithOCRConfig sets the text extraction engine configuration.
func (b *Builder) WithOCRConfig(cfg config.OCRConfig) *Builder {
	b.ocrConfig = cfg
	return b
}

// WithRuntime shares an existing runtime settings store, letting the server
// apply configuration updates that this pipeline observes.
func (b *Builder) WithRuntime(r *config.Runtime) *Builder {
	b.runtime = r
	return b
}

// WithDetector overrides the barcode detector (used by tests).
func (b *Builder) WithDetector(d BarcodeDetector) *Builder {
	b.detector = d
	return b
}

// WithLocalExtractor overrides the local text extractor (used by tests).
func (b *Builder) WithLocalExtractor(e TextExtractor) *Builder {
	b.local = e
	return b
}

// WithCloudExtractor overrides the cloud text extractor (used by tests).
func (b *Builder) WithCloudExtractor(e TextExtractor) *Builder {
	b.cloud = e
	return b
}

// Build validates the configuration and assembles the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if errs := b.settings.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid pipeline settings: %w", &config.RejectedError{Fields: errs})
	}

	runtime := b.runtime
	if runtime == nil {
		runtime = config.NewRuntime(b.settings)
	}

	detector := b.detector
	if detector == nil {
		detector = &detectorAdapter{inner: barcode.NewDetector(nil)}
	}

	local := b.local
	if local == nil {
		poolSize := b.ocrConfig.PoolSize
		lang, whitelist := b.ocrConfig.Language, b.ocrConfig.CharWhitelist
		pool := ocr.NewPool(poolSize, func() (ocr.Engine, error) {
			return ocr.NewTesseractEngine(lang, whitelist)
		})
		local = newPooledExtractor(pool)
	}

	cloud := b.cloud
	if cloud == nil {
		cloudCfg := ocr.CloudConfig{
			BaseURL: b.ocrConfig.CloudBaseURL,
			APIKey:  b.ocrConfig.CloudAPIKey,
			Model:   b.ocrConfig.CloudModel,
		}
		pool := ocr.NewPool(1, func() (ocr.Engine, error) {
			return ocr.NewCloudEngine(cloudCfg)
		})
		cloud = newPooledExtractor(pool)
	}

	slog.Debug("pipeline assembled",
		"default_mode", b.settings.DefaultMode,
		"default_recognition_mode", b.settings.DefaultRecognitionMode,
		"position_tolerance", b.settings.PositionTolerance)

	return &Pipeline{
		runtime:  runtime,
		detector: detector,
		extractors: map[OCRMode]TextExtractor{
			OCRLocal: local,
			OCRCloud: cloud,
		},
	}, nil
}

// Runtime exposes the settings store for configuration endpoints.
func (p *Pipeline) Runtime() *config.Runtime {
	return p.runtime
}

// Health reports per-component status flags: ok, not_configured or error.
func (p *Pipeline) Health() map[string]string {
	health := map[string]string{
		"barcode_engine": "ok",
	}
	if e, ok := p.extractors[OCRLocal]; ok {
		health["ocr_local"] = e.Health()
	}
	if e, ok := p.extractors[OCRCloud]; ok {
		health["ocr_cloud"] = e.Health()
	}
	return health
}

// Close releases engine resources.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, e := range p.extractors {
		if closer, ok := e.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Warmup primes one local OCR handle so the first request does not pay
// engine startup cost. Failures are reported through Health, not returned.
func (p *Pipeline) Warmup() {
	e, ok := p.extractors[OCRLocal]
	if !ok {
		return
	}
	if w, ok := e.(interface{ warmup(time.Duration) }); ok {
		w.warmup(5 * time.Second)
	}
}
