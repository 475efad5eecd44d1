// Package kernel applies the explicit five-point diffusion stencil to a partition.
package kernel

import (
	"sync"

	"github.com/heatslab/heatslab/internal/grid"
	"github.com/heatslab/heatslab/types"
)

// Step computes one timestep from p.Current() into p.Next() for every owned row.
//
//	next = cur + k * (up + down + left + right - 4*cur),   k = ALPHA*DT/DX²
//
// Cells on the global edge (row 0, row N-1, column 0, column N-1) are copied
// unchanged. The edge is decided from global coordinates, never from missing ghost
// data, so rank 0's top ghost row and rank W-1's bottom ghost row are never read.
//
// The caller must have filled both ghost rows that have a neighbor before calling
// Step, and must call p.Swap() afterwards. workers > 1 splits the owned rows across
// goroutines; the result is identical to the single-threaded update.
func Step(p *grid.Partition, params types.Params, workers int) {
	rows := p.Rows()
	if workers <= 1 || rows < 2 {
		stepRows(p, params, 1, rows+1)
		return
	}
	if workers > rows {
		workers = rows
	}

	var wg sync.WaitGroup
	chunk := rows / workers
	for w := range workers {
		lo := 1 + w*chunk
		hi := lo + chunk
		if w == workers-1 {
			hi = rows + 1
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			stepRows(p, params, lo, hi)
		}()
	}
	wg.Wait()
}

// stepRows updates local rows [lo, hi).
func stepRows(p *grid.Partition, params types.Params, lo, hi int) {
	n := p.Width()
	last := params.GridSize - 1
	k := params.Coefficient()
	cur, next := p.Current(), p.Next()

	for i := lo; i < hi; i++ {
		off := i * n
		g := p.GlobalRow(i)
		if g == 0 || g == last {
			copy(next[off:off+n], cur[off:off+n])
			continue
		}

		up, down := off-n, off+n
		next[off] = cur[off]
		for j := 1; j < n-1; j++ {
			c := cur[off+j]
			next[off+j] = c + k*(cur[up+j]+cur[down+j]+cur[off+j-1]+cur[off+j+1]-4*c)
		}
		next[off+n-1] = cur[off+n-1]
	}
}
