package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/labelscan/internal/pipeline"
	"github.com/MeKo-Tech/labelscan/internal/utils"
)

// processSingleHandler recognizes one uploaded label image.
func (s *Server) processSingleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	req, err := parseScanRequest(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RecognitionMode == pipeline.RecognitionAI {
		s.writeErrorResponse(w, "ai recognition is served by /api/v1/process/single/stream", http.StatusBadRequest)
		return
	}

	imageData, _, ok := s.readUpload(w, r, "image")
	if !ok {
		return
	}

	start := time.Now()
	result, err := s.engine.Process(r.Context(), imageData, req)
	duration := time.Since(start)
	if err != nil {
		scanRequestsTotal.WithLabelValues("single", "error").Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, utils.ErrInvalidImageFormat) {
			status = http.StatusBadRequest
		}
		s.writeErrorResponse(w, err.Error(), status)
		return
	}

	scanRequestsTotal.WithLabelValues("single", "success").Inc()
	scanDuration.WithLabelValues("single").Observe(duration.Seconds())
	scanItemsDetected.WithLabelValues("single").Observe(float64(len(result.Items)))

	s.writeSuccess(w, result)
}

// processBatchHandler recognizes several uploaded images with a bounded
// worker pool, preserving submission order in the response.
func (s *Server) processBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	req, err := parseScanRequest(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RecognitionMode == pipeline.RecognitionAI {
		s.writeErrorResponse(w, "ai recognition does not support batch processing", http.StatusBadRequest)
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["images"]) == 0 {
		s.writeErrorResponse(w, "No image files provided", http.StatusBadRequest)
		return
	}

	var inputs []pipeline.BatchInput
	for _, header := range r.MultipartForm.File["images"] {
		file, err := header.Open()
		if err != nil {
			s.writeErrorResponse(w, "Failed to open uploaded file "+header.Filename, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			s.writeErrorResponse(w, "Failed to read uploaded file "+header.Filename, http.StatusBadRequest)
			return
		}
		uploadSizeBytes.Observe(float64(len(data)))
		inputs = append(inputs, pipeline.BatchInput{Name: header.Filename, Data: data})
	}

	start := time.Now()
	results := s.engine.ProcessBatch(r.Context(), inputs, req, s.batchWorkers)
	duration := time.Since(start)

	response := batchResponse{
		Results:     make([]batchImageResult, len(results)),
		TotalTimeMs: duration.Milliseconds(),
	}
	failed := 0
	for i, res := range results {
		entry := batchImageResult{ImageName: res.Name, Success: res.Err == nil, Data: res.Result}
		if res.Err != nil {
			entry.Error = res.Err.Error()
			failed++
		}
		response.Results[i] = entry
	}

	if failed == len(results) {
		scanRequestsTotal.WithLabelValues("batch", "error").Inc()
	} else {
		scanRequestsTotal.WithLabelValues("batch", "success").Inc()
	}
	scanDuration.WithLabelValues("batch").Observe(duration.Seconds())
	slog.Info("batch request completed", "images", len(results), "failed", failed, "duration_ms", duration.Milliseconds())

	s.writeSuccess(w, response)
}

// readUpload pulls one uploaded file out of the parsed multipart form.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, "", false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return nil, "", false
	}
	uploadSizeBytes.Observe(float64(len(data)))
	return data, header.Filename, true
}
