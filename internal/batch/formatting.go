package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/labelscan/internal/pipeline"
)

// formatResults renders batch results in the requested format.
func formatResults(results []pipeline.BatchItemResult, format string) (string, error) {
	switch format {
	case "json", "":
		return formatJSON(results)
	case "text":
		return formatText(results), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

type jsonEntry struct {
	File    string                     `json:"file"`
	Success bool                       `json:"success"`
	Result  *pipeline.ProcessingResult `json:"result,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

func formatJSON(results []pipeline.BatchItemResult) (string, error) {
	entries := make([]jsonEntry, len(results))
	for i, r := range results {
		entries[i] = jsonEntry{File: r.Name, Success: r.Err == nil, Result: r.Result}
		if r.Err != nil {
			entries[i].Error = r.Err.Error()
		}
	}
	data, err := json.MarshalIndent(struct {
		Images []jsonEntry `json:"images"`
	}{Images: entries}, "", "  ")
	return string(data), err
}

func formatText(results []pipeline.BatchItemResult) string {
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString("=== " + r.Name + " ===\n")
		if r.Err != nil {
			sb.WriteString("error: " + r.Err.Error() + "\n\n")
			continue
		}
		text := r.Result.PlainText()
		if text == "" {
			text = "(no results)"
		}
		sb.WriteString(text + "\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
