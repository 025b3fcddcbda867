package zone

import (
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Registry indexes the currently active recovery zones.
// Owned explicitly by whoever wires the world; not safe for concurrent use.
type Registry struct {
	zones []RecoveryZone // registration order
	byID  map[string]int // ID → index in zones
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]int),
	}
}

// Register adds z. No-op if a zone with the same ID is already active.
func (r *Registry) Register(z RecoveryZone) {
	if _, ok := r.byID[z.ID]; ok {
		return
	}
	r.byID[z.ID] = len(r.zones)
	r.zones = append(r.zones, z)

	slog.Debug("recovery zone registered", "zone", z.ID, "active", len(r.zones))
}

// Deregister removes the zone with the given ID. No-op if absent.
func (r *Registry) Deregister(id string) {
	idx, ok := r.byID[id]
	if !ok {
		return
	}

	// Keep registration order stable for nearest tie-breaks.
	copy(r.zones[idx:], r.zones[idx+1:])
	r.zones = r.zones[:len(r.zones)-1]
	delete(r.byID, id)
	for i := idx; i < len(r.zones); i++ {
		r.byID[r.zones[i].ID] = i
	}

	slog.Debug("recovery zone deregistered", "zone", id, "active", len(r.zones))
}

// OnZoneActivated is the activation signal; equivalent to Register.
func (r *Registry) OnZoneActivated(z RecoveryZone) { r.Register(z) }

// OnZoneDeactivated is the deactivation signal; equivalent to Deregister.
func (r *Registry) OnZoneDeactivated(z RecoveryZone) { r.Deregister(z.ID) }

// Nearest returns the active zone closest to p by squared Euclidean distance.
// Ties go to the zone registered first. ok is false when the registry is empty.
func (r *Registry) Nearest(p orb.Point) (RecoveryZone, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i := range r.zones {
		d := planar.DistanceSquared(r.zones[i].Position, p)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return RecoveryZone{}, false
	}
	return r.zones[best], true
}

// Get returns the active zone with the given ID.
func (r *Registry) Get(id string) (RecoveryZone, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return RecoveryZone{}, false
	}
	return r.zones[idx], true
}

// Len returns the number of active zones.
func (r *Registry) Len() int {
	return len(r.zones)
}

// Zones returns a copy of the active zones in registration order.
func (r *Registry) Zones() []RecoveryZone {
	return append([]RecoveryZone(nil), r.zones...)
}

// ContainingZone returns the first active zone whose volume contains p.
func (r *Registry) ContainingZone(p orb.Point) (RecoveryZone, bool) {
	for i := range r.zones {
		if r.zones[i].Contains(p) {
			return r.zones[i], true
		}
	}
	return RecoveryZone{}, false
}
