// Package sim wires the navigation grid, recovery zones and agents into a
// runnable world and stands in for the physics triggers that signal zone
// and finish-region membership.
package sim

import (
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/udisondev/wayfinder/internal/ai"
	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/vitality"
	"github.com/udisondev/wayfinder/internal/zone"
)

// World owns the grid, the zone registry and the agent bodies of one run.
type World struct {
	grid      *geo.Grid
	obstacles *ObstacleSet
	zones     *zone.Registry
	finish    *orb.Bound
	bodies    []*Body
	byName    map[string]*Body
}

// NewWorld builds the grid and spawns every configured agent. opts apply to
// every agent (recorders, observers).
func NewWorld(cfg config.Wayfinder, opts ...ai.Option) (*World, error) {
	obstacles := NewObstacleSet(cfg.Grid.Obstacles, cfg.Grid.CellRadius)

	grid, err := geo.Build(cfg.Grid.Origin, cfg.Grid.ExtentX, cfg.Grid.ExtentZ, cfg.Grid.CellRadius, obstacles.Blocked)
	if err != nil {
		return nil, fmt.Errorf("building grid: %w", err)
	}

	settings, err := cfg.AgentSettings()
	if err != nil {
		return nil, fmt.Errorf("agent settings: %w", err)
	}

	w := &World{
		grid:      grid,
		obstacles: obstacles,
		zones:     zone.NewRegistry(),
		byName:    make(map[string]*Body, len(cfg.Agents)),
	}
	if cfg.Finish != nil {
		b := cfg.Finish.Bound()
		w.finish = &b
	}
	for _, z := range cfg.RecoveryZones {
		w.zones.Register(z)
	}

	for _, entry := range cfg.Agents {
		if _, dup := w.byName[entry.Name]; dup {
			return nil, fmt.Errorf("agent %q: duplicate name", entry.Name)
		}

		v, err := vitality.New(cfg.Vitality)
		if err != nil {
			return nil, fmt.Errorf("agent %q vitality: %w", entry.Name, err)
		}

		agentOpts := append([]ai.Option(nil), opts...)
		if entry.Objective != nil {
			agentOpts = append(agentOpts, ai.WithObjective(*entry.Objective))
		}

		agent, err := ai.NewAgentAI(entry.Name, entry.Spawn, settings, grid, w.zones, v, agentOpts...)
		if err != nil {
			return nil, err
		}

		b := &Body{agent: agent, world: w}
		w.bodies = append(w.bodies, b)
		w.byName[entry.Name] = b
	}

	slog.Info("world built",
		"cols", grid.Cols(),
		"rows", grid.Rows(),
		"walkable", grid.WalkableCount(),
		"obstacles", obstacles.Len(),
		"zones", w.zones.Len(),
		"agents", len(w.bodies),
		"strategy", settings.Strategy)

	return w, nil
}

// Grid returns the navigation grid.
func (w *World) Grid() *geo.Grid { return w.grid }

// Zones returns the zone registry. Activating or deactivating zones through
// it is picked up on the next tick.
func (w *World) Zones() *zone.Registry { return w.zones }

// Finish returns the finish region, if one is configured.
func (w *World) Finish() (orb.Bound, bool) {
	if w.finish == nil {
		return orb.Bound{}, false
	}
	return *w.finish, true
}

// Bodies returns the agent bodies in spawn order.
func (w *World) Bodies() []*Body {
	return append([]*Body(nil), w.bodies...)
}

// Body returns the body with the given agent name.
func (w *World) Body(name string) (*Body, bool) {
	b, ok := w.byName[name]
	return b, ok
}

// Register adds every body to the tick manager, keyed by agent name.
func (w *World) Register(m *ai.TickManager) {
	for _, b := range w.bodies {
		m.Register(b.agent.Name(), b)
	}
}

// Settled reports whether every agent reached a terminal state.
func (w *World) Settled() bool {
	for _, b := range w.bodies {
		if !b.agent.State().Terminal() {
			return false
		}
	}
	return true
}

func (w *World) inFinish(p orb.Point) bool {
	return w.finish != nil && w.finish.Contains(p)
}
