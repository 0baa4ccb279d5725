package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/labelscan/internal/pipeline"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// scanRequest is a single-image scan request over WebSocket. Image carries
// the encoded bytes (base64 on the wire via JSON).
type scanRequest struct {
	Image             []byte `json:"image"`
	Mode              string `json:"mode,omitempty"`
	RecognitionMode   string `json:"recognition_mode,omitempty"`
	SortOrder         string `json:"sort_order,omitempty"`
	OCRMode           string `json:"ocr_mode,omitempty"`
	PositionTolerance int    `json:"position_tolerance,omitempty"`
}

// scanResponse is a scan status or result message over WebSocket.
type scanResponse struct {
	Type      string                     `json:"type"`
	Status    string                     `json:"status"` // "processing", "completed", "error"
	Progress  float64                    `json:"progress,omitempty"`
	Result    *pipeline.ProcessingResult `json:"result,omitempty"`
	Error     string                     `json:"error,omitempty"`
	ErrorType string                     `json:"error_type,omitempty"`
	RequestID string                     `json:"request_id,omitempty"`
}

// connWriter is the subset of the WebSocket connection the send helpers
// need; tests substitute a recorder.
type connWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// scanWebSocketHandler serves live single-image scanning over WebSocket.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleScanConnection(conn)
}

func (s *Server) handleScanConnection(conn *websocket.Conn) {
	// Read deadline prevents hanging connections; pongs extend it.
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			s.handleScanMessage(conn, data)
		}
	}
}

func (s *Server) handleScanMessage(conn *websocket.Conn, data []byte) {
	var req scanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendScanError(conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if len(req.Image) == 0 {
		s.sendScanError(conn, "invalid_request", "No image data provided")
		return
	}

	pReq := pipeline.Request{
		Mode:              pipeline.Mode(req.Mode),
		RecognitionMode:   pipeline.RecognitionMode(req.RecognitionMode),
		SortOrder:         pipeline.SortOrder(req.SortOrder),
		OCRMode:           pipeline.OCRMode(req.OCRMode),
		PositionTolerance: req.PositionTolerance,
	}
	if err := pReq.Validate(); err != nil {
		s.sendScanError(conn, "invalid_request", err.Error())
		return
	}
	if pReq.RecognitionMode == pipeline.RecognitionAI {
		s.sendScanError(conn, "invalid_request", "ai recognition is served by the SSE streaming endpoint")
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)
	s.sendScanResponse(conn, scanResponse{
		Type:      "scan_response",
		Status:    "processing",
		Progress:  0.0,
		RequestID: requestID,
	})

	start := time.Now()
	result, err := s.engine.Process(context.Background(), req.Image, pReq)
	duration := time.Since(start)
	if err != nil {
		scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendScanError(conn, "processing_error", fmt.Sprintf("Scan failed: %v", err))
		return
	}

	scanRequestsTotal.WithLabelValues("websocket", "success").Inc()
	scanDuration.WithLabelValues("websocket").Observe(duration.Seconds())
	scanItemsDetected.WithLabelValues("websocket").Observe(float64(len(result.Items)))

	s.sendScanResponse(conn, scanResponse{
		Type:      "scan_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    result,
		RequestID: requestID,
	})
}

func (s *Server) sendScanResponse(conn connWriter, response scanResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendScanError(conn connWriter, errorType, message string) {
	s.sendScanResponse(conn, scanResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	})
}
