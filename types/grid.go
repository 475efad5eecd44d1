package types

// Grid is a row-major N×N temperature field.
//
// A Grid is only materialized on the collecting worker after the last timestep.
type Grid struct {
	// Size is the grid dimension N.
	Size int

	// Cells holds Size*Size values, row-major.
	Cells []float64
}

// NewGrid allocates a zeroed Size×Size grid.
func NewGrid(size int) *Grid {
	return &Grid{Size: size, Cells: make([]float64, size*size)}
}

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 {
	return g.Cells[row*g.Size+col]
}

// Set stores v at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Cells[row*g.Size+col] = v
}

// Row returns a view of one row. The slice aliases the grid's storage.
func (g *Grid) Row(row int) []float64 {
	return g.Cells[row*g.Size : (row+1)*g.Size]
}
