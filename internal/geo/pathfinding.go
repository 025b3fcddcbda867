package geo

import (
	"container/heap"

	"github.com/paulmach/orb"
)

// Result is the outcome of FindPath.
// Found == false is the normal "no path" outcome, not an error.
type Result struct {
	Found bool
	// Waypoints run from the cell after the start through the goal.
	// Empty when start and goal share a cell.
	Waypoints []Cell
	// Cost is the accumulated step cost of Waypoints.
	Cost int
	// Expanded counts settled cells.
	Expanded int
	// Snapshot is set only when WithSnapshot is passed.
	Snapshot *Snapshot
}

// SearchOption tunes a single FindPath call.
type SearchOption func(*searchOptions)

type searchOptions struct {
	snapshot bool
}

// WithSnapshot attaches a copy of the frontier, settled set and final path to the result.
func WithSnapshot() SearchOption {
	return func(o *searchOptions) { o.snapshot = true }
}

// FindPath searches a route from start to goal over walkable cells.
// All scratch state is allocated per call, so concurrent searches over
// one grid are safe.
func (g *Grid) FindPath(start, goal orb.Point, strategy Strategy, opts ...SearchOption) Result {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	startCell := g.CellFromWorld(start)
	goalCell := g.CellFromWorld(goal)

	if !startCell.Walkable || !goalCell.Walkable {
		res := Result{}
		if o.snapshot {
			res.Snapshot = &Snapshot{Strategy: strategy, Start: startCell, Goal: goalCell}
		}
		return res
	}

	s := newSearchState(g, strategy)
	res := s.run(g.index(startCell.X, startCell.Y), g.index(goalCell.X, goalCell.Y))
	if o.snapshot {
		res.Snapshot = s.snapshot(startCell, goalCell, res.Waypoints)
	}
	return res
}

// searchState holds the per-call scratch fields, indexed by cell index.
type searchState struct {
	grid     *Grid
	strategy Strategy
	gCost    []int
	hCost    []int
	parent   []int32
	order    []int32 // discovery sequence, -1 if undiscovered
	settled  []bool
	open     frontier
	nextSeq  int32
}

func newSearchState(g *Grid, strategy Strategy) *searchState {
	n := len(g.cells)
	s := &searchState{
		grid:     g,
		strategy: strategy,
		gCost:    make([]int, n),
		hCost:    make([]int, n),
		parent:   make([]int32, n),
		order:    make([]int32, n),
		settled:  make([]bool, n),
		open:     make(frontier, 0, 64),
	}
	for i := range n {
		s.gCost[i] = unreached
		s.parent[i] = -1
		s.order[i] = -1
	}
	return s
}

func (s *searchState) run(start, goal int) Result {
	g := s.grid
	goalCell := g.cells[goal]

	s.discover(start, 0, Heuristic(g.cells[start].X, g.cells[start].Y, goalCell.X, goalCell.Y), -1)

	expanded := 0
	for s.open.Len() > 0 {
		e := heap.Pop(&s.open).(frontierEntry)
		cur := int(e.cell)
		if s.settled[cur] || e.g != s.gCost[cur] {
			continue // stale entry
		}
		s.settled[cur] = true
		expanded++

		if cur == goal {
			return Result{
				Found:     true,
				Waypoints: s.retrace(start, goal),
				Cost:      s.gCost[goal],
				Expanded:  expanded,
			}
		}

		c := g.cells[cur]
		for _, off := range neighborOffsets {
			nx, ny := c.X+off[0], c.Y+off[1]
			if !g.inBounds(nx, ny) {
				continue
			}
			next := g.index(nx, ny)
			if !g.cells[next].Walkable || s.settled[next] {
				continue
			}

			tentative := s.gCost[cur] + stepCost(c.X, c.Y, nx, ny)
			if tentative < s.gCost[next] {
				s.discover(next, tentative, Heuristic(nx, ny, goalCell.X, goalCell.Y), cur)
			}
		}
	}

	return Result{Expanded: expanded}
}

// discover records g/h/parent for idx and pushes it onto the frontier.
// The discovery sequence is assigned once, on first sight.
func (s *searchState) discover(idx, gCost, hCost, parent int) {
	if s.order[idx] < 0 {
		s.order[idx] = s.nextSeq
		s.nextSeq++
	}
	s.gCost[idx] = gCost
	s.hCost[idx] = hCost
	s.parent[idx] = int32(parent)
	heap.Push(&s.open, frontierEntry{
		cell:     int32(idx),
		priority: s.strategy.priority(gCost, hCost),
		h:        hCost,
		seq:      s.order[idx],
		g:        gCost,
	})
}

// retrace follows parent links from goal back to start (exclusive) and reverses.
func (s *searchState) retrace(start, goal int) []Cell {
	path := make([]Cell, 0, 32)
	for cur := goal; cur != start; cur = int(s.parent[cur]) {
		path = append(path, s.grid.cells[cur])
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// frontierEntry is one heap record. Entries superseded by a cheaper g are
// skipped on pop instead of being removed.
type frontierEntry struct {
	cell     int32
	priority int
	h        int
	seq      int32
	g        int
}

// frontier is a min-heap ordered by (priority, h, discovery sequence).
type frontier []frontierEntry

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].priority != f[j].priority {
		return f[i].priority < f[j].priority
	}
	if f[i].h != f[j].h {
		return f[i].h < f[j].h
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(frontierEntry)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	e := old[n-1]
	*f = old[:n-1]
	return e
}
