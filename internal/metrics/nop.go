// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/heatslab/heatslab/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is the default implementation used when no collector is provided.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: Metrics collector that performs no operations
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordKernelDuration is a no-op implementation.
func (n *NopMetrics) RecordKernelDuration(_ int, _ float64) {}

// RecordTimestep is a no-op implementation.
func (n *NopMetrics) RecordTimestep(_ int, _ int) {}

// RecordRunResult is a no-op implementation.
func (n *NopMetrics) RecordRunResult(_ int, _ string) {}

// RecordHaloExchange is a no-op implementation.
func (n *NopMetrics) RecordHaloExchange(_ int, _ float64, _ bool) {}

// RecordGather is a no-op implementation.
func (n *NopMetrics) RecordGather(_ int, _ float64, _ bool) {}

// RecordProgressPublish is a no-op implementation.
func (n *NopMetrics) RecordProgressPublish(_ int, _ bool) {}
