// Package progress publishes each worker's timestep progress to a NATS JetStream
// KeyValue bucket.
//
// Every worker owns one key, "<prefix>.rank-<r>", holding a JSON Report. The key is
// refreshed on a fixed interval while the worker runs and deleted when it stops, so
// an operator can watch a long run with any KV client:
//
//	nats kv watch heatslab-progress
//
// Publication is best effort. A failed put is counted and retried on the next tick;
// it never interrupts the solver.
package progress
