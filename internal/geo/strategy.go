package geo

import (
	"fmt"
	"strings"
)

// Strategy selects the frontier priority used by FindPath.
type Strategy uint8

const (
	// StrategyAStar orders the frontier by g+h; returns cost-optimal paths.
	StrategyAStar Strategy = iota
	// StrategyGreedy orders the frontier by h alone (greedy best-first).
	// Faster, not optimal.
	StrategyGreedy
)

// String returns the config/log name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyAStar:
		return "astar"
	case StrategyGreedy:
		return "greedy"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// ParseStrategy parses a strategy name (case-insensitive).
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "astar", "a*", "a-star":
		return StrategyAStar, nil
	case "greedy", "best-first", "bestfirst":
		return StrategyGreedy, nil
	default:
		return 0, fmt.Errorf("unknown search strategy %q", name)
	}
}

// priority returns the frontier key for a cell with the given g and h.
func (s Strategy) priority(g, h int) int {
	if s == StrategyGreedy {
		return h
	}
	return g + h
}
