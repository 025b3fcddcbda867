package ai

import "fmt"

// State is the agent planning state.
type State uint8

const (
	// StateIdle: no objective configured; nothing to plan.
	StateIdle State = iota
	// StateSeekingObjective: following a path to the primary objective.
	StateSeekingObjective
	// StateSeekingRecovery: vitality fell below the low threshold; heading to the nearest recovery zone.
	StateSeekingRecovery
	// StateLost: vitality is exhausted. Terminal for planning.
	StateLost
	// StateReached: the finish region was entered. Terminal; freezes decay.
	StateReached
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSeekingObjective:
		return "SEEKING_OBJECTIVE"
	case StateSeekingRecovery:
		return "SEEKING_RECOVERY"
	case StateLost:
		return "LOST"
	case StateReached:
		return "REACHED"
	default:
		return fmt.Sprintf("STATE(%d)", uint8(s))
	}
}

// Terminal reports whether the state stops all further planning.
func (s State) Terminal() bool {
	return s == StateLost || s == StateReached
}
