// Package common provides shared utilities including stage timing.
package common

import (
	"fmt"
	"time"
)

// Timer measures the elapsed time of a named operation.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return fmt.Sprintf("%v", t.duration)
}

// StageTimings accumulates per-stage durations for a single request.
type StageTimings struct {
	stages []stageEntry
}

type stageEntry struct {
	name     string
	duration time.Duration
}

// Record adds a stage duration.
func (s *StageTimings) Record(name string, d time.Duration) {
	s.stages = append(s.stages, stageEntry{name: name, duration: d})
}

// Attrs returns the timings as alternating key-value pairs for slog.
func (s *StageTimings) Attrs() []any {
	attrs := make([]any, 0, len(s.stages)*2)
	for _, e := range s.stages {
		attrs = append(attrs, e.name+"_ms", e.duration.Milliseconds())
	}
	return attrs
}
