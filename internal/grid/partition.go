// Package grid holds a worker's padded slab of the global temperature field.
package grid

import (
	"fmt"

	"github.com/heatslab/heatslab/types"
)

// Partition is one worker's exclusively owned block of Count+2 rows × N columns.
//
// Local row 0 and local row Count+1 are ghost rows: read-only copies of the adjacent
// workers' outermost owned rows. Local rows 1..Count are owned rows. Local row i maps
// to global row Start+i-1.
//
// Two buffers exist. Current() is read by the kernel, Next() is written; Swap flips
// the roles without copying data. The two are never the same slice.
type Partition struct {
	rng   types.RowRange
	width int
	bufs  [2][]float64
	cur   int
}

// New allocates both buffers for rng on a width-column grid.
//
// Buffers are sized once and never resized.
//
// Parameters:
//   - rng: Owned row range (Count must be positive)
//   - width: Global grid dimension N
//
// Returns:
//   - *Partition: Zeroed partition
//   - error: ErrInvalidConfig if the geometry is empty
func New(rng types.RowRange, width int) (*Partition, error) {
	if rng.Count <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: empty partition %v width %d", types.ErrInvalidConfig, rng, width)
	}

	size := (rng.Count + 2) * width

	return &Partition{
		rng:   rng,
		width: width,
		bufs:  [2][]float64{make([]float64, size), make([]float64, size)},
	}, nil
}

// Fill sets every owned cell of the current buffer from the initial condition,
// evaluated at the cell's global coordinates. Ghost rows are left untouched; they
// are filled by the first halo exchange.
func (p *Partition) Fill(initial types.InitialCondition) {
	cur := p.Current()
	for i := 1; i <= p.rng.Count; i++ {
		g := p.GlobalRow(i)
		row := cur[i*p.width : (i+1)*p.width]
		for j := range row {
			row[j] = initial(g, j)
		}
	}
}

// Range returns the owned global row range.
func (p *Partition) Range() types.RowRange { return p.rng }

// Width returns the number of columns N.
func (p *Partition) Width() int { return p.width }

// Rows returns the number of owned rows.
func (p *Partition) Rows() int { return p.rng.Count }

// GlobalRow maps a local row index (0..Count+1) to its global row index.
func (p *Partition) GlobalRow(local int) int {
	return p.rng.Start + local - 1
}

// Current returns the buffer holding the latest completed timestep.
func (p *Partition) Current() []float64 { return p.bufs[p.cur] }

// Next returns the buffer the kernel writes the following timestep into.
func (p *Partition) Next() []float64 { return p.bufs[1-p.cur] }

// Swap exchanges the roles of the current and next buffers.
func (p *Partition) Swap() { p.cur = 1 - p.cur }

// Row returns a view of local row i in the current buffer.
func (p *Partition) Row(i int) []float64 {
	return p.Current()[i*p.width : (i+1)*p.width]
}

// FirstOwned returns a view of local row 1 in the current buffer.
func (p *Partition) FirstOwned() []float64 { return p.Row(1) }

// LastOwned returns a view of local row Count in the current buffer.
func (p *Partition) LastOwned() []float64 { return p.Row(p.rng.Count) }

// GhostTop returns a view of ghost row 0 in the current buffer.
func (p *Partition) GhostTop() []float64 { return p.Row(0) }

// GhostBottom returns a view of ghost row Count+1 in the current buffer.
func (p *Partition) GhostBottom() []float64 { return p.Row(p.rng.Count + 1) }

// Owned returns a copy of the owned rows of the current buffer, ghost rows excluded.
func (p *Partition) Owned() []float64 {
	out := make([]float64, p.rng.Count*p.width)
	copy(out, p.Current()[p.width:(p.rng.Count+1)*p.width])

	return out
}
