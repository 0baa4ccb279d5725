package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Engine.Validate())
}

func TestDefaultConfig_EngineDefaults(t *testing.T) {
	engine := DefaultConfig().Engine
	assert.Equal(t, "balanced", engine.DefaultMode)
	assert.Equal(t, "barcode_only", engine.DefaultRecognitionMode)
	assert.Equal(t, "top_to_bottom", engine.DefaultSortOrder)
	assert.Equal(t, "local", engine.DefaultOCRMode)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"unknown mode", func(s *Settings) { s.DefaultMode = "warp" }, "default_mode"},
		{"ai is not a processing mode", func(s *Settings) { s.DefaultMode = "ai" }, "default_mode"},
		{"unknown recognition mode", func(s *Settings) { s.DefaultRecognitionMode = "both" }, "default_recognition_mode"},
		{"unknown sort order", func(s *Settings) { s.DefaultSortOrder = "random" }, "default_sort_order"},
		{"unknown ocr mode", func(s *Settings) { s.DefaultOCRMode = "remote" }, "default_ocr_mode"},
		{"negative tolerance", func(s *Settings) { s.PositionTolerance = -1 }, "position_tolerance"},
		{"tiny max image size", func(s *Settings) { s.MaxImageSize = 50 }, "max_image_size"},
		{"negative crop margin", func(s *Settings) { s.CropMargin = -1 }, "crop_margin"},
		{"confidence above one", func(s *Settings) { s.MinOCRConfidence = 1.5 }, "min_ocr_confidence"},
		{"negative confidence", func(s *Settings) { s.MinOCRConfidence = -0.1 }, "min_ocr_confidence"},
		{"negative timeout", func(s *Settings) { s.RequestTimeoutSec = -1 }, "request_timeout_sec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultConfig().Engine
			tt.mutate(&s)

			errs := s.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestSettings_ValidateCollectsAllErrors(t *testing.T) {
	s := DefaultConfig().Engine
	s.DefaultMode = "warp"
	s.PositionTolerance = -1
	s.MinOCRConfidence = 2

	errs := s.Validate()
	assert.Len(t, errs, 3)
}

func TestSettings_BoundaryValuesAccepted(t *testing.T) {
	s := DefaultConfig().Engine
	s.PositionTolerance = 0
	s.MinOCRConfidence = 0
	s.RequestTimeoutSec = 0
	s.MaxImageSize = 100
	assert.Empty(t, s.Validate())

	s.MinOCRConfidence = 1
	assert.Empty(t, s.Validate())

	s.DefaultRecognitionMode = "ai"
	assert.Empty(t, s.Validate(), "ai is a legal recognition mode value")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.MaxUploadMB = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.OCR.PoolSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Batch.Workers = 0
	assert.Error(t, cfg.Validate())
}

func TestRejectedError_ListsFieldNames(t *testing.T) {
	err := &RejectedError{Fields: []FieldError{
		{Field: "default_mode", Reason: "unknown mode"},
		{Field: "position_tolerance", Reason: "must not be negative"},
	}}
	assert.Equal(t, "configuration rejected: default_mode, position_tolerance", err.Error())
}

func TestFieldError_Error(t *testing.T) {
	err := FieldError{Field: "qty", Reason: "bad"}
	assert.Equal(t, "qty: bad", err.Error())
}
