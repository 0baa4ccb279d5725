package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/MeKo-Tech/labelscan/internal/batch"
	"github.com/MeKo-Tech/labelscan/internal/pipeline"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Scan multiple label images",
	Long: `Scan many label images in parallel.

Directory arguments are expanded to the image files they contain;
pass --recursive to descend into subdirectories. Results keep the
input order regardless of which image finishes first.

Examples:
  labelscan batch ./labels
  labelscan batch ./labels --recursive --workers 8
  labelscan batch a.jpg b.jpg --format text --output results.txt`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		mode, _ := cmd.Flags().GetString("mode")
		recognitionMode, _ := cmd.Flags().GetString("recognition-mode")
		sortOrder, _ := cmd.Flags().GetString("sort-order")
		ocrMode, _ := cmd.Flags().GetString("ocr-mode")
		tolerance, _ := cmd.Flags().GetInt("position-tolerance")
		format, _ := cmd.Flags().GetString("format")
		outputFile, _ := cmd.Flags().GetString("output")
		recursive, _ := cmd.Flags().GetBool("recursive")

		workers := cfg.Batch.Workers
		if cmd.Flags().Changed("workers") {
			workers, _ = cmd.Flags().GetInt("workers")
		}
		continueOnError := cfg.Batch.ContinueOnError
		if cmd.Flags().Changed("continue-on-error") {
			continueOnError, _ = cmd.Flags().GetBool("continue-on-error")
		}

		if recognitionMode == string(pipeline.RecognitionAI) {
			return fmt.Errorf("ai recognition requires the HTTP streaming endpoint; run `labelscan serve`")
		}

		engine, err := pipeline.NewBuilder().
			WithSettings(cfg.Engine).
			WithOCRConfig(cfg.OCR).
			Build()
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}
		defer func() { _ = engine.Close() }()

		failed, err := batch.Run(context.Background(), engine, args, batch.Config{
			Mode:              mode,
			RecognitionMode:   recognitionMode,
			SortOrder:         sortOrder,
			OCRMode:           ocrMode,
			PositionTolerance: tolerance,
			Workers:           workers,
			ContinueOnError:   continueOnError,
			Recursive:         recursive,
			Format:            format,
			OutputFile:        outputFile,
		})
		if err != nil {
			return err
		}
		if failed > 0 {
			fmt.Fprintf(os.Stderr, "%d image(s) failed\n", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().String("mode", "", "processing mode: fast, balanced, full (default from config)")
	batchCmd.Flags().String("recognition-mode", "", "recognition mode: barcode_only, ocr_only, barcode_and_ocr")
	batchCmd.Flags().String("sort-order", "", "result ordering: top_to_bottom, left_to_right, reading_order")
	batchCmd.Flags().String("ocr-mode", "", "text extraction backend: local, cloud")
	batchCmd.Flags().Int("position-tolerance", 0, "association distance in pixels (0 = config default)")
	batchCmd.Flags().IntP("workers", "w", 0, "parallel workers (default from config)")
	batchCmd.Flags().Bool("continue-on-error", true, "keep going when an image fails")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().StringP("format", "f", "json", "output format: json or text")
	batchCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
}
