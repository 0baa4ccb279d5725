package config

import (
	"fmt"
	"strings"
)

// Settings holds the runtime-adjustable recognition parameters. A value of
// this struct is treated as immutable once published; updates build a new
// value and swap it in atomically (see Runtime).
type Settings struct {
	DefaultMode            string  `mapstructure:"default_mode" json:"default_mode" yaml:"default_mode"`
	DefaultRecognitionMode string  `mapstructure:"default_recognition_mode" json:"default_recognition_mode" yaml:"default_recognition_mode"`
	DefaultSortOrder       string  `mapstructure:"default_sort_order" json:"default_sort_order" yaml:"default_sort_order"`
	DefaultOCRMode         string  `mapstructure:"default_ocr_mode" json:"default_ocr_mode" yaml:"default_ocr_mode"`
	PositionTolerance      int     `mapstructure:"position_tolerance" json:"position_tolerance" yaml:"position_tolerance"`
	MaxImageSize           int     `mapstructure:"max_image_size" json:"max_image_size" yaml:"max_image_size"`
	CropMargin             int     `mapstructure:"crop_margin" json:"crop_margin" yaml:"crop_margin"`
	MinOCRConfidence       float64 `mapstructure:"min_ocr_confidence" json:"min_ocr_confidence" yaml:"min_ocr_confidence"`
	RequestTimeoutSec      int     `mapstructure:"request_timeout_sec" json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// OCRConfig configures the text extraction engines.
type OCRConfig struct {
	Language      string `mapstructure:"language"`
	CharWhitelist string `mapstructure:"char_whitelist"`
	PoolSize      int    `mapstructure:"pool_size"`
	CloudBaseURL  string `mapstructure:"cloud_base_url"`
	CloudAPIKey   string `mapstructure:"cloud_api_key"`
	CloudModel    string `mapstructure:"cloud_model"`
}

// AIConfig configures the vision provider used by the ai passthrough mode.
type AIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Prompt     string `mapstructure:"prompt"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	CORSOrigin      string `mapstructure:"cors_origin"`
	MaxUploadMB     int64  `mapstructure:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// BatchConfig holds batch processing configuration.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error"`
}

// Config is the full application configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Verbose   bool   `mapstructure:"verbose"`

	Engine Settings     `mapstructure:"engine"`
	OCR    OCRConfig    `mapstructure:"ocr"`
	AI     AIConfig     `mapstructure:"ai"`
	Server ServerConfig `mapstructure:"server"`
	Batch  BatchConfig  `mapstructure:"batch"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "json",
		Engine: Settings{
			DefaultMode:            "balanced",
			DefaultRecognitionMode: "barcode_only",
			DefaultSortOrder:       "top_to_bottom",
			DefaultOCRMode:         "local",
			PositionTolerance:      150,
			MaxImageSize:           2000,
			CropMargin:             100,
			MinOCRConfidence:       0.3,
			RequestTimeoutSec:      30,
		},
		OCR: OCRConfig{
			Language: "eng",
			PoolSize: 2,
		},
		AI: AIConfig{
			Model:      "gpt-4o-mini",
			TimeoutSec: 60,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: true,
		},
	}
}

// FieldError names a rejected configuration field and why it was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

// RejectedError reports a configuration update that was refused. The update
// is all-or-nothing; Fields lists every offending field.
type RejectedError struct {
	Fields []FieldError
}

func (e *RejectedError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "configuration rejected: " + strings.Join(names, ", ")
}

// Validate checks the runtime settings and returns one error per offending
// field. An empty slice means the settings are acceptable.
func (s Settings) Validate() []FieldError {
	var errs []FieldError

	switch s.DefaultMode {
	case "fast", "balanced", "full":
	default:
		errs = append(errs, FieldError{"default_mode", fmt.Sprintf("unknown mode %q", s.DefaultMode)})
	}
	switch s.DefaultRecognitionMode {
	case "barcode_only", "ocr_only", "barcode_and_ocr", "ai":
	default:
		errs = append(errs, FieldError{"default_recognition_mode", fmt.Sprintf("unknown recognition mode %q", s.DefaultRecognitionMode)})
	}
	switch s.DefaultSortOrder {
	case "top_to_bottom", "left_to_right", "reading_order":
	default:
		errs = append(errs, FieldError{"default_sort_order", fmt.Sprintf("unknown sort order %q", s.DefaultSortOrder)})
	}
	switch s.DefaultOCRMode {
	case "local", "cloud":
	default:
		errs = append(errs, FieldError{"default_ocr_mode", fmt.Sprintf("unknown ocr mode %q", s.DefaultOCRMode)})
	}
	if s.PositionTolerance < 0 {
		errs = append(errs, FieldError{"position_tolerance", "must not be negative"})
	}
	if s.MaxImageSize < 100 {
		errs = append(errs, FieldError{"max_image_size", "must be at least 100"})
	}
	if s.CropMargin < 0 {
		errs = append(errs, FieldError{"crop_margin", "must not be negative"})
	}
	if s.MinOCRConfidence < 0 || s.MinOCRConfidence > 1 {
		errs = append(errs, FieldError{"min_ocr_confidence", "must be within [0, 1]"})
	}
	if s.RequestTimeoutSec < 0 {
		errs = append(errs, FieldError{"request_timeout_sec", "must not be negative"})
	}
	return errs
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if errs := c.Engine.Validate(); len(errs) > 0 {
		return &RejectedError{Fields: errs}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("invalid max upload size: %d MB", c.Server.MaxUploadMB)
	}
	if c.OCR.PoolSize < 1 {
		return fmt.Errorf("invalid ocr pool size: %d", c.OCR.PoolSize)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("invalid batch worker count: %d", c.Batch.Workers)
	}
	return nil
}
