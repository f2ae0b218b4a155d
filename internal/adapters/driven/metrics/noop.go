// Package metrics provides MetricsRecorder adapters.
package metrics

import "github.com/KamorionLabs/dashborion-sub000/internal/core/ports"

// NoopRecorder is a no-op implementation for when metrics are disabled.
// All methods are safe to call and do nothing.
type NoopRecorder struct{}

// NewNoopRecorder creates a new no-op metrics recorder.
func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

// RecordLoginRedirect is a no-op.
func (n *NoopRecorder) RecordLoginRedirect() {}

// RecordACSResult is a no-op.
func (n *NoopRecorder) RecordACSResult(stage string, success bool) {}

// RecordSessionValidation is a no-op.
func (n *NoopRecorder) RecordSessionValidation(valid bool) {}

// RecordMetadataServed is a no-op.
func (n *NoopRecorder) RecordMetadataServed() {}

// Interface guard
var _ ports.MetricsRecorder = (*NoopRecorder)(nil)
