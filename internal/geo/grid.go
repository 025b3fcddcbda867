package geo

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
)

var (
	// ErrDegenerateGrid is returned by Build when either dimension resolves to zero or less.
	ErrDegenerateGrid = errors.New("degenerate grid")
	// ErrInvalidCellRadius is returned by Build for a non-positive or non-finite cell radius.
	ErrInvalidCellRadius = errors.New("invalid cell radius")
	// ErrGridTooLarge is returned by Build when cols*rows exceeds MaxCells.
	ErrGridTooLarge = errors.New("grid too large")
)

// MaxCells bounds cols*rows; search state stores cell indices as int32.
const MaxCells = math.MaxInt32

// Cell is one addressable unit of the navigation grid.
// Cells are immutable once the grid is built.
type Cell struct {
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Walkable bool      `json:"walkable"`
	World    orb.Point `json:"world"` // world-space center
}

// Grid is a fixed-size occupancy grid over a planar rectangle.
// Thread-safe for reads: searches keep their scratch state per call.
type Grid struct {
	origin     orb.Point // center of the rectangle
	extentX    float64
	extentZ    float64
	cellRadius float64
	cols, rows int
	cells      []Cell // row-major: y*cols + x
}

// Build discretizes the rectangle centered at origin into cells of diameter
// 2*cellRadius and evaluates isBlocked once per cell center.
func Build(origin orb.Point, extentX, extentZ, cellRadius float64, isBlocked func(orb.Point) bool) (*Grid, error) {
	if cellRadius <= 0 || math.IsNaN(cellRadius) || math.IsInf(cellRadius, 0) {
		return nil, fmt.Errorf("building grid: %w: %v", ErrInvalidCellRadius, cellRadius)
	}

	diameter := cellRadius * 2
	colsF := math.RoundToEven(extentX / diameter)
	rowsF := math.RoundToEven(extentZ / diameter)
	if !(colsF > 0) || !(rowsF > 0) {
		return nil, fmt.Errorf("building grid %vx%v with radius %v: %w (cols=%v rows=%v)",
			extentX, extentZ, cellRadius, ErrDegenerateGrid, colsF, rowsF)
	}
	if colsF*rowsF > MaxCells {
		return nil, fmt.Errorf("building grid %vx%v with radius %v: %w (cols=%v rows=%v, max %d cells)",
			extentX, extentZ, cellRadius, ErrGridTooLarge, colsF, rowsF, MaxCells)
	}
	cols, rows := int(colsF), int(rowsF)

	g := &Grid{
		origin:     origin,
		extentX:    extentX,
		extentZ:    extentZ,
		cellRadius: cellRadius,
		cols:       cols,
		rows:       rows,
		cells:      make([]Cell, cols*rows),
	}

	bottomLeft := orb.Point{origin[0] - extentX/2, origin[1] - extentZ/2}
	blocked := 0
	for y := range rows {
		for x := range cols {
			center := orb.Point{
				bottomLeft[0] + float64(x)*diameter + cellRadius,
				bottomLeft[1] + float64(y)*diameter + cellRadius,
			}
			walkable := isBlocked == nil || !isBlocked(center)
			if !walkable {
				blocked++
			}
			g.cells[y*cols+x] = Cell{X: x, Y: y, Walkable: walkable, World: center}
		}
	}

	slog.Debug("navigation grid built",
		"cols", cols,
		"rows", rows,
		"cellRadius", cellRadius,
		"blocked", blocked)

	return g, nil
}

// Cols returns the number of columns (X axis).
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of rows (Z axis, stored as Y).
func (g *Grid) Rows() int { return g.rows }

// CellRadius returns the configured cell radius.
func (g *Grid) CellRadius() float64 { return g.cellRadius }

// Origin returns the world-space center of the grid rectangle.
func (g *Grid) Origin() orb.Point { return g.origin }

// Bound returns the world rectangle covered by the grid.
func (g *Grid) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{g.origin[0] - g.extentX/2, g.origin[1] - g.extentZ/2},
		Max: orb.Point{g.origin[0] + g.extentX/2, g.origin[1] + g.extentZ/2},
	}
}

// Cell returns the cell at (x, y). ok is false when out of bounds.
func (g *Grid) Cell(x, y int) (Cell, bool) {
	if !g.inBounds(x, y) {
		return Cell{}, false
	}
	return g.cells[y*g.cols+x], true
}

// WalkableCount returns the number of walkable cells.
func (g *Grid) WalkableCount() int {
	n := 0
	for i := range g.cells {
		if g.cells[i].Walkable {
			n++
		}
	}
	return n
}

// Neighbors returns the in-bounds Moore neighbors of c in fixed order.
// Walkability is not filtered here.
func (g *Grid) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, len(neighborOffsets))
	for _, off := range neighborOffsets {
		nx, ny := c.X+off[0], c.Y+off[1]
		if g.inBounds(nx, ny) {
			out = append(out, g.cells[ny*g.cols+nx])
		}
	}
	return out
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.cols && y >= 0 && y < g.rows
}

func (g *Grid) index(x, y int) int {
	return y*g.cols + x
}
