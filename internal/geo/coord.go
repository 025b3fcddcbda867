package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// WorldToCell maps a world position to cell coordinates.
// Positions outside the grid rectangle clamp to the border cell.
func (g *Grid) WorldToCell(p orb.Point) (x, y int) {
	percentX := clamp01((p[0] - g.origin[0] + g.extentX/2) / g.extentX)
	percentY := clamp01((p[1] - g.origin[1] + g.extentZ/2) / g.extentZ)

	x = int(math.RoundToEven(float64(g.cols-1) * percentX))
	y = int(math.RoundToEven(float64(g.rows-1) * percentY))
	return x, y
}

// CellFromWorld returns the cell containing p (clamped to the grid).
func (g *Grid) CellFromWorld(p orb.Point) Cell {
	x, y := g.WorldToCell(p)
	return g.cells[g.index(x, y)]
}

// Heuristic returns the octile distance between two cells scaled by the
// step costs: 14*min(dx,dy) + 10*|dx-dy|.
func Heuristic(ax, ay, bx, by int) int {
	dx := absInt(ax - bx)
	dy := absInt(ay - by)
	if dx > dy {
		return CostDiagonal*dy + CostOrthogonal*(dx-dy)
	}
	return CostDiagonal*dx + CostOrthogonal*(dy-dx)
}

// stepCost returns the cost of moving between two adjacent cells.
func stepCost(ax, ay, bx, by int) int {
	if ax != bx && ay != by {
		return CostDiagonal
	}
	return CostOrthogonal
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
