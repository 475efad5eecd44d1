// Package heatslab simulates two-dimensional heat diffusion on an N×N grid with an
// explicit finite-difference scheme, distributed across workers by rows.
//
// Each worker owns a contiguous block of rows plus one ghost row above and below.
// Every timestep starts with a halo exchange, where adjacent workers swap their
// outermost owned rows, followed by a five-point stencil update:
//
//	next = cur + ALPHA*DT/DX² * (up + down + left + right - 4*cur)
//
// Cells on the outer edge of the global grid are held at their initial value.
// After the final step, rank 0 collects every worker's rows into the full grid.
//
// # Quick Start
//
// Run every worker in this process:
//
//	import "github.com/heatslab/heatslab"
//
//	cfg := heatslab.DefaultConfig()
//	res, err := heatslab.RunLocal(ctx, &cfg, 4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Grid.At(50, 50))
//
// # Distributed Runs
//
// Start one process per rank, each connected to the same NATS server:
//
//	ep, err := transport.DialNATS(ctx, nc, transport.NATSConfig{
//	    Prefix: cfg.SubjectPrefix,
//	    Rank:   rank,
//	    Size:   workers,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ep.Close()
//
//	solver, err := heatslab.NewSolver(&cfg, ep, heatslab.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := solver.Run(ctx)
//
// DialNATS returns once every rank has subscribed, so no halo row is published
// before its receiver listens. Any failure on any rank aborts the whole run: there
// are no retries and no partial results.
//
// # Decomposition
//
// With N rows and W workers, every rank owns N/W rows and the last rank also takes
// the N mod W remainder. W may not exceed N.
//
// See cmd/heatslab for a complete command-line driver.
package heatslab
