// Package transport implements the communication primitives consumed by the solver:
// non-blocking row send/receive between adjacent workers, a blocking wait on each
// issued transfer, a rank-ordered gather onto one worker, and a run-wide abort.
//
// Two implementations are provided:
//   - Local: all workers are goroutines of one process; channels are the wire
//   - NATS: one worker per process (or per connection), rows travel over NATS subjects
//
// Both satisfy types.Endpoint and produce bit-identical results.
package transport
