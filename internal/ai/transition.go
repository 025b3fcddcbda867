package ai

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/udisondev/wayfinder/internal/geo"
)

// Transition describes one state entry and the search it triggered.
type Transition struct {
	Agent    string
	From     State
	To       State
	Vitality float64
	At       time.Time

	// Target is set when the entry planned a path.
	HasTarget bool
	Target    orb.Point
	Strategy  geo.Strategy
	Found     bool
	PathLen   int
	PathCost  int
}

// TransitionRecorder receives every state entry. Implementations must not block.
type TransitionRecorder interface {
	RecordTransition(Transition)
}

// SearchObserver receives debug snapshots of searches run on state entry.
// Snapshots are copies; observers may keep them.
type SearchObserver interface {
	ObserveSearch(agent string, snap *geo.Snapshot)
}
