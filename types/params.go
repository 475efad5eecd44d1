package types

// Params carries the physical model and grid geometry of a run.
//
// Params is passed by value into every component (planner, partition, kernel,
// collector) so that tests can run small grids without touching package state.
type Params struct {
	// GridSize is the global grid dimension N (the grid is N×N).
	GridSize int

	// Alpha is the diffusion coefficient.
	Alpha float64

	// DT is the timestep.
	DT float64

	// DX is the spatial step.
	DX float64

	// HotSquareSide is the side length of the centered hot square used by the
	// default initial condition.
	HotSquareSide int

	// HotValue is the initial temperature inside the hot square.
	HotValue float64

	// ColdValue is the initial temperature everywhere else.
	ColdValue float64
}

// Coefficient returns the explicit update factor ALPHA * DT / DX².
//
// Returns:
//   - float64: Factor multiplying the discrete Laplacian in the stencil update
func (p Params) Coefficient() float64 {
	return p.Alpha * p.DT / (p.DX * p.DX)
}

// InitialCondition returns the starting temperature of global cell (row, col).
type InitialCondition func(row, col int) float64

// HotSquare returns the default initial condition: HotValue inside a square of side
// HotSquareSide centered at GridSize/2 in both axes, ColdValue elsewhere.
//
// The square covers rows and columns [N/2 - side/2, N/2 - side/2 + side).
//
// Returns:
//   - InitialCondition: Pure function of the global coordinates
func (p Params) HotSquare() InitialCondition {
	lo := p.GridSize/2 - p.HotSquareSide/2
	hi := lo + p.HotSquareSide

	return func(row, col int) float64 {
		if row >= lo && row < hi && col >= lo && col < hi {
			return p.HotValue
		}

		return p.ColdValue
	}
}
