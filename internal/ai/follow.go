package ai

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/udisondev/wayfinder/internal/geo"
)

// pathTask walks a waypoint sequence. It is the cancellable handle for one
// path-following activity; the agent replaces it, never runs two at once.
type pathTask struct {
	waypoints []geo.Cell
	index     int
	epsilon   float64
	cancelled bool
}

func newPathTask(waypoints []geo.Cell, epsilon float64) *pathTask {
	return &pathTask{
		waypoints: append([]geo.Cell(nil), waypoints...),
		epsilon:   epsilon,
	}
}

// Cancel stops the task. Further Advance calls do not move.
func (t *pathTask) Cancel() {
	t.cancelled = true
}

// Active reports whether waypoints remain and the task is not cancelled.
func (t *pathTask) Active() bool {
	return !t.cancelled && t.index < len(t.waypoints)
}

// Complete reports whether every waypoint was reached.
func (t *pathTask) Complete() bool {
	return !t.cancelled && t.index >= len(t.waypoints)
}

// Remaining returns a copy of the waypoints not yet reached.
func (t *pathTask) Remaining() []geo.Cell {
	if !t.Active() {
		return nil
	}
	return append([]geo.Cell(nil), t.waypoints[t.index:]...)
}

// Advance moves pos toward the current waypoint by at most maxStep, carrying
// leftover distance on to the following waypoints.
func (t *pathTask) Advance(pos orb.Point, maxStep float64) orb.Point {
	for t.Active() {
		target := t.waypoints[t.index].World
		d := planar.Distance(pos, target)
		if d <= t.epsilon {
			t.index++
			continue
		}
		if maxStep <= 0 {
			break
		}
		if d <= maxStep {
			pos = target
			maxStep -= d
			t.index++
			continue
		}
		pos = moveTowards(pos, target, d, maxStep)
		maxStep = 0
	}
	return pos
}

func moveTowards(from, to orb.Point, dist, step float64) orb.Point {
	f := step / dist
	return orb.Point{
		from[0] + (to[0]-from[0])*f,
		from[1] + (to[1]-from[1])*f,
	}
}
