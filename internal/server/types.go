package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/labelscan/internal/ai"
	"github.com/MeKo-Tech/labelscan/internal/config"
	"github.com/MeKo-Tech/labelscan/internal/pipeline"
)

// engineInterface defines the methods the server needs from the pipeline.
type engineInterface interface {
	Process(ctx context.Context, data []byte, req pipeline.Request) (*pipeline.ProcessingResult, error)
	ProcessBatch(ctx context.Context, inputs []pipeline.BatchInput, req pipeline.Request, workers int) []pipeline.BatchItemResult
	Health() map[string]string
	Runtime() *config.Runtime
	Close() error
}

// aiInterface defines the methods the server needs from the passthrough
// recognizer.
type aiInterface interface {
	Configured() bool
	Recognize(ctx context.Context, imageData []byte) (<-chan ai.Chunk, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	engine       engineInterface
	recognizer   aiInterface
	corsOrigin   string
	maxUploadMB  int64
	timeoutSec   int
	batchWorkers int
}

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	CORSOrigin   string
	MaxUploadMB  int64
	TimeoutSec   int
	BatchWorkers int

	EngineSettings config.Settings
	OCR            config.OCRConfig
	AI             config.AIConfig

	// SettingsPath, when set, persists accepted config updates as YAML.
	SettingsPath string
}

// apiResponse is the envelope every JSON endpoint uses.
type apiResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

// batchImageResult is the per-image entry of a batch response.
type batchImageResult struct {
	ImageName string                     `json:"image_name"`
	Success   bool                       `json:"success"`
	Data      *pipeline.ProcessingResult `json:"data,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

type batchResponse struct {
	Results     []batchImageResult `json:"results"`
	TotalTimeMs int64              `json:"total_time"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components"`
	Time       string            `json:"time"`
}

// NewServer assembles the pipeline, the passthrough recognizer, and the
// HTTP server around them.
func NewServer(cfg Config) (*Server, error) {
	engine, err := pipeline.NewBuilder().
		WithSettings(cfg.EngineSettings).
		WithOCRConfig(cfg.OCR).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	if cfg.SettingsPath != "" {
		engine.Runtime().SetPersistPath(cfg.SettingsPath)
	}
	engine.Warmup()

	recognizer := ai.NewRecognizer(ai.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Prompt:  cfg.AI.Prompt,
		Timeout: time.Duration(cfg.AI.TimeoutSec) * time.Second,
	})

	workers := cfg.BatchWorkers
	if workers < 1 {
		workers = 4
	}

	return &Server{
		engine:       engine,
		recognizer:   recognizer,
		corsOrigin:   cfg.CORSOrigin,
		maxUploadMB:  cfg.MaxUploadMB,
		timeoutSec:   cfg.TimeoutSec,
		batchWorkers: workers,
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.engine != nil {
		return s.engine.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/v1/config", s.corsMiddleware(s.configHandler))
	mux.HandleFunc("/api/v1/process/single", s.corsMiddleware(s.processSingleHandler))
	mux.HandleFunc("/api/v1/process/single/stream", s.corsMiddleware(s.processStreamHandler))
	mux.HandleFunc("/api/v1/process/batch", s.corsMiddleware(s.processBatchHandler))
	mux.HandleFunc("/ws/scan", s.scanWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// newRequestID produces a request identifier for response correlation.
func newRequestID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}
