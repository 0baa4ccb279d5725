package config

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Runtime publishes the engine settings to in-flight requests. Readers take
// a snapshot once per request; updates validate the full candidate value and
// swap the pointer only when every field is acceptable, so a request never
// observes a half-applied update.
type Runtime struct {
	current     atomic.Pointer[Settings]
	mu          sync.Mutex
	persistPath string
}

// NewRuntime creates a runtime settings store seeded with initial.
func NewRuntime(initial Settings) *Runtime {
	r := &Runtime{}
	s := initial
	r.current.Store(&s)
	return r
}

// SetPersistPath enables writing accepted updates to the given YAML file.
func (r *Runtime) SetPersistPath(path string) {
	r.mu.Lock()
	r.persistPath = path
	r.mu.Unlock()
}

// Snapshot returns a copy of the current settings.
func (r *Runtime) Snapshot() Settings {
	return *r.current.Load()
}

// Update applies the given field changes on top of the current settings.
// Unknown field names and invalid values are collected into a single
// RejectedError and nothing is applied. On success the new settings value
// is returned.
func (r *Runtime) Update(changes map[string]any) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := *r.current.Load()
	var errs []FieldError
	for name, value := range changes {
		if err := applyField(&candidate, name, value); err != nil {
			errs = append(errs, *err)
		}
	}
	errs = append(errs, candidate.Validate()...)
	if len(errs) > 0 {
		return Settings{}, &RejectedError{Fields: errs}
	}

	r.current.Store(&candidate)
	if r.persistPath != "" {
		if err := persistSettings(r.persistPath, candidate); err != nil {
			return candidate, fmt.Errorf("settings applied but not persisted: %w", err)
		}
	}
	return candidate, nil
}

func applyField(s *Settings, name string, value any) *FieldError {
	switch name {
	case "default_mode":
		return assignString(&s.DefaultMode, name, value)
	case "default_recognition_mode":
		return assignString(&s.DefaultRecognitionMode, name, value)
	case "default_sort_order":
		return assignString(&s.DefaultSortOrder, name, value)
	case "default_ocr_mode":
		return assignString(&s.DefaultOCRMode, name, value)
	case "position_tolerance":
		return assignInt(&s.PositionTolerance, name, value)
	case "max_image_size":
		return assignInt(&s.MaxImageSize, name, value)
	case "crop_margin":
		return assignInt(&s.CropMargin, name, value)
	case "min_ocr_confidence":
		return assignFloat(&s.MinOCRConfidence, name, value)
	case "request_timeout_sec":
		return assignInt(&s.RequestTimeoutSec, name, value)
	default:
		return &FieldError{Field: name, Reason: "unknown field"}
	}
}

func assignString(dst *string, name string, value any) *FieldError {
	v, ok := value.(string)
	if !ok {
		return &FieldError{Field: name, Reason: fmt.Sprintf("expected string, got %T", value)}
	}
	*dst = v
	return nil
}

func assignInt(dst *int, name string, value any) *FieldError {
	switch v := value.(type) {
	case int:
		*dst = v
	case float64:
		// JSON numbers decode as float64.
		if v != float64(int(v)) {
			return &FieldError{Field: name, Reason: "expected integer"}
		}
		*dst = int(v)
	default:
		return &FieldError{Field: name, Reason: fmt.Sprintf("expected integer, got %T", value)}
	}
	return nil
}

func assignFloat(dst *float64, name string, value any) *FieldError {
	switch v := value.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	default:
		return &FieldError{Field: name, Reason: fmt.Sprintf("expected number, got %T", value)}
	}
	return nil
}

func persistSettings(path string, s Settings) error {
	data, err := yaml.Marshal(map[string]Settings{"engine": s})
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}
