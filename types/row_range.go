package types

import "fmt"

// RowRange is the contiguous block of global rows owned by one worker.
type RowRange struct {
	// Rank is the owning worker's 0-indexed rank.
	Rank int `json:"rank" msgpack:"rank"`

	// Start is the first owned global row.
	Start int `json:"start" msgpack:"start"`

	// Count is the number of owned rows.
	Count int `json:"count" msgpack:"count"`
}

// End returns the exclusive end row of the range.
func (r RowRange) End() int {
	return r.Start + r.Count
}

// Contains reports whether global row lies in the range.
func (r RowRange) Contains(row int) bool {
	return row >= r.Start && row < r.End()
}

// String implements fmt.Stringer.
func (r RowRange) String() string {
	return fmt.Sprintf("rank %d rows [%d,%d)", r.Rank, r.Start, r.End())
}
