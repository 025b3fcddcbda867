package geo

// Step costs (integer-scaled octile metric).
const (
	CostOrthogonal = 10
	CostDiagonal   = 14
)

// unreached marks a cell with no recorded g-cost in the current search.
const unreached = int(^uint(0) >> 1)

// neighborOffsets is the fixed Moore-neighborhood iteration order:
// dx outer, dy inner, center skipped. Search tie-breaking depends on it.
var neighborOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}
