package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/labelscan/internal/config"
	"github.com/MeKo-Tech/labelscan/internal/pipeline"
	"github.com/MeKo-Tech/labelscan/internal/version"
)

// writeSuccess writes a success envelope with the given payload.
func (s *Server) writeSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	resp := apiResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: newRequestID(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes an error envelope with the given status.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := apiResponse{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: newRequestID(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// healthHandler returns overall status plus per-component flags.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	components := s.engine.Health()
	if s.recognizer.Configured() {
		components["ai_provider"] = "ok"
	} else {
		components["ai_provider"] = "not_configured"
	}

	status := "healthy"
	for _, state := range components {
		if state == "error" {
			status = "degraded"
			break
		}
	}

	v, _, _ := version.Info()
	s.writeSuccess(w, healthResponse{
		Status:     status,
		Version:    v,
		Components: components,
		Time:       time.Now().UTC().Format(time.RFC3339),
	})
}

// configHandler serves the runtime settings: GET returns the current
// snapshot, PUT applies a validated all-or-nothing update.
func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeSuccess(w, s.engine.Runtime().Snapshot())
	case http.MethodPut, http.MethodPost:
		s.updateConfig(w, r)
	default:
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeErrorResponse(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var changes map[string]any
	if err := json.Unmarshal(body, &changes); err != nil {
		s.writeErrorResponse(w, "Request body must be a JSON object", http.StatusBadRequest)
		return
	}
	if len(changes) == 0 {
		s.writeErrorResponse(w, "No configuration fields provided", http.StatusBadRequest)
		return
	}

	updated, err := s.engine.Runtime().Update(changes)
	if err != nil {
		var rejected *config.RejectedError
		if errors.As(err, &rejected) {
			configUpdatesTotal.WithLabelValues("rejected").Inc()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			resp := apiResponse{
				Success:   false,
				Message:   rejected.Error(),
				Data:      map[string]any{"fields": rejected.Fields},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				RequestID: newRequestID(),
			}
			if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
				slog.Error("Failed to encode rejection response", "error", encErr)
			}
			return
		}
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	configUpdatesTotal.WithLabelValues("accepted").Inc()
	slog.Info("runtime configuration updated", "fields", len(changes))
	s.writeSuccess(w, updated)
}

// parseScanRequest extracts per-request pipeline parameters from form
// values. Empty values fall back to configured defaults inside the engine.
func parseScanRequest(r *http.Request) (pipeline.Request, error) {
	req := pipeline.Request{
		Mode:            pipeline.Mode(r.FormValue("mode")),
		RecognitionMode: pipeline.RecognitionMode(r.FormValue("recognition_mode")),
		SortOrder:       pipeline.SortOrder(r.FormValue("sort_order")),
		OCRMode:         pipeline.OCRMode(r.FormValue("ocr_mode")),
	}
	if v := r.FormValue("position_tolerance"); v != "" {
		tolerance, err := strconv.Atoi(v)
		if err != nil || tolerance < 0 {
			return req, errors.New("position_tolerance must be a non-negative integer")
		}
		req.PositionTolerance = tolerance
	}
	return req, req.Validate()
}
