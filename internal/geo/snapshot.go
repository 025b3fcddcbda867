package geo

// Snapshot is a read-only copy of one search's sets, for visualization.
// Nothing in it aliases search or grid state.
type Snapshot struct {
	Strategy Strategy `json:"strategy"`
	Start    Cell     `json:"start"`
	Goal     Cell     `json:"goal"`
	Frontier []Cell   `json:"frontier"`
	Settled  []Cell   `json:"settled"`
	Path     []Cell   `json:"path"`
}

func (s *searchState) snapshot(start, goal Cell, path []Cell) *Snapshot {
	snap := &Snapshot{
		Strategy: s.strategy,
		Start:    start,
		Goal:     goal,
		Path:     append([]Cell(nil), path...),
	}
	for i := range s.order {
		switch {
		case s.settled[i]:
			snap.Settled = append(snap.Settled, s.grid.cells[i])
		case s.order[i] >= 0:
			snap.Frontier = append(snap.Frontier, s.grid.cells[i])
		}
	}
	return snap
}
