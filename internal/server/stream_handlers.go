package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/labelscan/internal/pipeline"
)

// processStreamHandler relays ai recognition as server-sent events.
// Each provider chunk becomes one data event; the stream ends with a
// [DONE] sentinel. A provider failure emits an error event and the
// sentinel is withheld so clients can distinguish truncation from
// completion.
func (s *Server) processStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	rec := r.FormValue("recognition_mode")
	if rec != "" && pipeline.RecognitionMode(rec) != pipeline.RecognitionAI {
		s.writeErrorResponse(w, "streaming is only available for ai recognition", http.StatusBadRequest)
		return
	}
	if !s.recognizer.Configured() {
		s.writeErrorResponse(w, "ai provider is not configured", http.StatusServiceUnavailable)
		return
	}

	imageData, _, ok := s.readUpload(w, r, "image")
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeErrorResponse(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	chunks, err := s.recognizer.Recognize(r.Context(), imageData)
	if err != nil {
		scanRequestsTotal.WithLabelValues("stream", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		if chunk.Err != nil {
			scanRequestsTotal.WithLabelValues("stream", "error").Inc()
			writeSSE(w, map[string]string{"error": chunk.Err.Error()})
			flusher.Flush()
			slog.Warn("ai stream failed", "error", chunk.Err)
			return
		}
		writeSSE(w, map[string]string{"content": chunk.Content})
		flusher.Flush()
	}

	// Clean completion: emit the done sentinel.
	if _, err := w.Write([]byte("data: [DONE]\n\n")); err != nil {
		slog.Debug("client gone before done sentinel", "error", err)
		return
	}
	flusher.Flush()
	scanRequestsTotal.WithLabelValues("stream", "success").Inc()
}

func writeSSE(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal SSE payload", "error", err)
		return
	}
	if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
		slog.Debug("SSE write failed", "error", err)
	}
}
