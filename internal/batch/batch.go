// Package batch implements multi-file label scanning for the CLI: file
// discovery, parallel processing, and result formatting.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/labelscan/internal/pipeline"
)

// Config holds all configuration for a batch run.
type Config struct {
	Mode              string
	RecognitionMode   string
	SortOrder         string
	OCRMode           string
	PositionTolerance int

	Workers         int
	ContinueOnError bool
	Recursive       bool
	Format          string
	OutputFile      string

	ShowProgress bool
}

// Run discovers image files from args, scans them with the given pipeline,
// and writes the formatted results. It returns the number of failed images.
func Run(ctx context.Context, p *pipeline.Pipeline, args []string, cfg Config) (int, error) {
	files, err := discoverImageFiles(args, cfg.Recursive)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no image files found in %v", args)
	}

	inputs := make([]pipeline.BatchInput, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			if !cfg.ContinueOnError {
				return 0, fmt.Errorf("cannot read %s: %w", path, err)
			}
			slog.Warn("skipping unreadable file", "file", path, "error", err)
			continue
		}
		inputs = append(inputs, pipeline.BatchInput{Name: path, Data: data})
	}

	req := pipeline.Request{
		Mode:              pipeline.Mode(cfg.Mode),
		RecognitionMode:   pipeline.RecognitionMode(cfg.RecognitionMode),
		SortOrder:         pipeline.SortOrder(cfg.SortOrder),
		OCRMode:           pipeline.OCRMode(cfg.OCRMode),
		PositionTolerance: cfg.PositionTolerance,
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}

	start := time.Now()
	results := p.ProcessBatch(ctx, inputs, req, cfg.Workers)
	slog.Info("batch completed", "images", len(results), "duration", time.Since(start).String())

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			slog.Error("image failed", "file", r.Name, "error", r.Err)
			if !cfg.ContinueOnError {
				return failed, fmt.Errorf("processing %s: %w", r.Name, r.Err)
			}
		}
	}

	output, err := formatResults(results, cfg.Format)
	if err != nil {
		return failed, fmt.Errorf("formatting results: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := os.WriteFile(cfg.OutputFile, []byte(output), 0o644); err != nil {
			return failed, fmt.Errorf("writing output file: %w", err)
		}
	} else {
		fmt.Println(output)
	}
	return failed, nil
}
