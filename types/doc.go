// Package types provides core type definitions and interfaces for the heatslab library.
//
// This package contains shared types that are used across multiple packages in the
// heatslab library. By keeping these types in a separate package, we avoid import cycles
// between the main heatslab package and its internal implementations.
//
// Key types:
//   - Params: Immutable physical and grid parameters of a run
//   - RowRange: A worker's slab of the global grid
//   - Grid: A reassembled N×N temperature field
//   - Endpoint: Point-to-point and gather primitives consumed by the solver
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
