package zone

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// RecoveryZone is a region where an agent regenerates vitality.
// ID is the stable identity used by the registry.
type RecoveryZone struct {
	ID       string    `yaml:"id" json:"id"`
	Position orb.Point `yaml:"position" json:"position"`
	Radius   float64   `yaml:"radius" json:"radius"`
}

// Contains reports whether p lies inside the zone volume.
func (z RecoveryZone) Contains(p orb.Point) bool {
	return planar.DistanceSquared(z.Position, p) <= z.Radius*z.Radius
}
