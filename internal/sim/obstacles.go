package sim

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/udisondev/wayfinder/internal/config"
)

// ObstacleSet answers occupancy queries against static shapes. A probe is a
// disc of the given radius centered on the queried point; the point is
// blocked when that disc overlaps any shape. Touching does not count.
type ObstacleSet struct {
	rects   []orb.Bound
	circles []config.Circle
	probe   float64
}

// NewObstacleSet creates an occupancy predicate over o with the given probe radius.
func NewObstacleSet(o config.Obstacles, probe float64) *ObstacleSet {
	s := &ObstacleSet{
		rects:   make([]orb.Bound, 0, len(o.Rects)),
		circles: append([]config.Circle(nil), o.Circles...),
		probe:   probe,
	}
	for _, r := range o.Rects {
		s.rects = append(s.rects, r.Bound())
	}
	return s
}

// Len returns the number of shapes.
func (s *ObstacleSet) Len() int {
	return len(s.rects) + len(s.circles)
}

// Blocked reports whether the probe disc at p overlaps an obstacle.
func (s *ObstacleSet) Blocked(p orb.Point) bool {
	r2 := s.probe * s.probe
	for _, b := range s.rects {
		if b.Contains(p) {
			return true
		}
		if distanceSquaredToBound(p, b) < r2 {
			return true
		}
	}
	for _, c := range s.circles {
		reach := c.Radius + s.probe
		if planar.DistanceSquared(p, c.Center) < reach*reach {
			return true
		}
	}
	return false
}

func distanceSquaredToBound(p orb.Point, b orb.Bound) float64 {
	dx := math.Max(math.Max(b.Min[0]-p[0], 0), p[0]-b.Max[0])
	dy := math.Max(math.Max(b.Min[1]-p[1], 0), p[1]-b.Max[1])
	return dx*dx + dy*dy
}
