// Package testing provides test utilities for the heatslab library.
//
// This package offers helpers for setting up test environments, particularly
// embedded NATS servers for exercising the NATS transport and the progress
// publisher. It follows Go's convention of providing testing utilities in a
// dedicated package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream and one client
//   - Connect: Additional client connections, one per simulated worker process
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewTestLogger: Logger writing to testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    slabtest "github.com/heatslab/heatslab/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    ns, nc := slabtest.StartEmbeddedNATS(t)
//	    peer := slabtest.Connect(t, ns)
//	    // Use nc and peer for your tests
//	}
package testing
