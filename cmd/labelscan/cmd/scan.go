package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/MeKo-Tech/labelscan/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [image]",
	Short: "Scan a single label image",
	Long: `Scan one label image for barcodes and text.

Supported formats: JPEG, PNG, BMP, GIF

Examples:
  labelscan scan label.jpg
  labelscan scan label.jpg --mode full --format json
  labelscan scan label.jpg --recognition-mode barcode_only`,
	Args:         cobra.ExactArgs(1),
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

		if format != outputFormatJSON && format != outputFormatText {
			return fmt.Errorf("unknown output format %q", format)
		}

		req := pipeline.Request{
			Mode:              pipeline.Mode(mode),
			RecognitionMode:   pipeline.RecognitionMode(recognitionMode),
			SortOrder:         pipeline.SortOrder(sortOrder),
			OCRMode:           pipeline.OCRMode(ocrMode),
			PositionTolerance: tolerance,
		}
		if err := req.Validate(); err != nil {
			return err
		}
		if req.RecognitionMode == pipeline.RecognitionAI {
			return errors.New("ai recognition requires the HTTP streaming endpoint; run `labelscan serve`")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", args[0], err)
		}

		engine, err := pipeline.NewBuilder().
			WithSettings(cfg.Engine).
			WithOCRConfig(cfg.OCR).
			Build()
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}
		defer func() { _ = engine.Close() }()

		result, err := engine.Process(context.Background(), data, req)
		if err != nil {
			return err
		}

		var output string
		if format == outputFormatJSON {
			output, err = result.ToJSON()
			if err != nil {
				return err
			}
		} else {
			output = result.PlainText()
			if output == "" {
				output = "(no results)"
			}
		}

		if outputFile != "" {
			return os.WriteFile(outputFile, []byte(output), 0o644)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("mode", "", "processing mode: fast, balanced, full (default from config)")
	scanCmd.Flags().String("recognition-mode", "", "recognition mode: barcode_only, ocr_only, barcode_and_ocr")
	scanCmd.Flags().String("sort-order", "", "result ordering: top_to_bottom, left_to_right, reading_order")
	scanCmd.Flags().String("ocr-mode", "", "text extraction backend: local, cloud")
	scanCmd.Flags().Int("position-tolerance", 0, "association distance in pixels (0 = config default)")
	scanCmd.Flags().StringP("format", "f", outputFormatJSON, "output format: json or text")
	scanCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
}
