package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRuntime_SnapshotIsACopy(t *testing.T) {
	r := NewRuntime(DefaultConfig().Engine)

	snap := r.Snapshot()
	snap.PositionTolerance = 9999

	assert.Equal(t, 150, r.Snapshot().PositionTolerance, "mutating a snapshot must not affect the store")
}

func TestRuntime_UpdateApplies(t *testing.T) {
	r := NewRuntime(DefaultConfig().Engine)

	updated, err := r.Update(map[string]any{
		"position_tolerance": 200,
		"default_mode":       "fast",
	})
	require.NoError(t, err)
	assert.Equal(t, 200, updated.PositionTolerance)
	assert.Equal(t, "fast", updated.DefaultMode)

	snap := r.Snapshot()
	assert.Equal(t, 200, snap.PositionTolerance)
	assert.Equal(t, "fast", snap.DefaultMode)
}

func TestRuntime_UpdateAcceptsJSONNumbers(t *testing.T) {
	r := NewRuntime(DefaultConfig().Engine)

	// JSON decoding yields float64 for every number.
	updated, err := r.Update(map[string]any{
		"position_tolerance": float64(175),
		"min_ocr_confidence": 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 175, updated.PositionTolerance)
	assert.InDelta(t, 0.5, updated.MinOCRConfidence, 1e-9)
}

func TestRuntime_UpdateAllOrNothing(t *testing.T) {
	r := NewRuntime(DefaultConfig().Engine)

	_, err := r.Update(map[string]any{
		"position_tolerance": 300,
		"default_mode":       "warp",
	})
	require.Error(t, err)

	snap := r.Snapshot()
	assert.Equal(t, 150, snap.PositionTolerance, "valid field must not apply when a sibling is rejected")
	assert.Equal(t, "balanced", snap.DefaultMode)
}

func TestRuntime_RejectionNamesEveryOffendingField(t *testing.T) {
	r := NewRuntime(DefaultConfig().Engine)

	_, err := r.Update(map[string]any{
		"default_mode":       "warp",
		"min_ocr_confidence": 5.0,
		"no_such_field":      1,
	})
	require.Error(t, err)

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))

	names := make(map[string]bool)
	for _, f := range rejected.Fields {
		names[f.Field] = true
	}
	assert.True(t, names["default_mode"])
	assert.True(t, names["min_ocr_confidence"])
	assert.True(t, names["no_such_field"])
}

func TestRuntime_UpdateRejectsWrongTypes(t *testing.T) {
	r := NewRuntime(DefaultConfig().Engine)

	tests := []struct {
		field string
		value any
	}{
		{"default_mode", 7},
		{"position_tolerance", "high"},
		{"position_tolerance", 1.5},
		{"min_ocr_confidence", "low"},
	}
	for _, tt := range tests {
		_, err := r.Update(map[string]any{tt.field: tt.value})
		var rejected *RejectedError
		require.ErrorAs(t, err, &rejected, "field %s value %v", tt.field, tt.value)
		require.Len(t, rejected.Fields, 1)
		assert.Equal(t, tt.field, rejected.Fields[0].Field)
	}
}

func TestRuntime_ConcurrentSnapshotsDuringUpdates(t *testing.T) {
	r := NewRuntime(DefaultConfig().Engine)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				snap := r.Snapshot()
				// A snapshot is always internally consistent.
				assert.Empty(t, snap.Validate())
			}
		}()
	}
	for i := range 100 {
		tolerance := 100 + i
		_, err := r.Update(map[string]any{"position_tolerance": tolerance})
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestRuntime_PersistsAcceptedUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	r := NewRuntime(DefaultConfig().Engine)
	r.SetPersistPath(path)

	_, err := r.Update(map[string]any{"position_tolerance": 222})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var persisted map[string]Settings
	require.NoError(t, yaml.Unmarshal(data, &persisted))
	assert.Equal(t, 222, persisted["engine"].PositionTolerance)
}

func TestRuntime_RejectedUpdateIsNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	r := NewRuntime(DefaultConfig().Engine)
	r.SetPersistPath(path)

	_, err := r.Update(map[string]any{"default_mode": "warp"})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
