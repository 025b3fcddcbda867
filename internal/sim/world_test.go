package sim

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wayfinder/internal/ai"
	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/zone"
)

type transitions struct {
	got []ai.Transition
}

func (r *transitions) RecordTransition(tr ai.Transition) { r.got = append(r.got, tr) }

func (r *transitions) states() []ai.State {
	out := make([]ai.State, len(r.got))
	for i, tr := range r.got {
		out[i] = tr.To
	}
	return out
}

func point(x, y float64) *orb.Point {
	p := orb.Point{x, y}
	return &p
}

// wallWorld is a 10x10 grid of 2-unit cells (centers at 2x+1) with a wall
// through column 3 leaving a gap in rows 8 and 9.
func wallWorld() config.Wayfinder {
	cfg := config.DefaultWayfinder()
	cfg.Grid = config.GridConfig{
		Origin:     orb.Point{10, 10},
		ExtentX:    20,
		ExtentZ:    20,
		CellRadius: 1,
		Obstacles: config.Obstacles{
			Rects: []config.Rect{{Min: orb.Point{6, 0}, Max: orb.Point{8, 16}}},
		},
	}
	cfg.Agent.Speed = 10
	cfg.Agents = []config.AgentEntry{{Name: "scout", Spawn: orb.Point{1, 1}, Objective: point(19, 1)}}
	cfg.Finish = &config.Rect{Min: orb.Point{18, 0}, Max: orb.Point{20, 2}}
	return cfg
}

func TestNewWorld_BuildsGridFromObstacles(t *testing.T) {
	w, err := NewWorld(wallWorld())
	require.NoError(t, err)

	g := w.Grid()
	assert.Equal(t, 10, g.Cols())
	assert.Equal(t, 10, g.Rows())
	for y := 0; y < 10; y++ {
		c, ok := g.Cell(3, y)
		require.True(t, ok)
		assert.Equal(t, y >= 8, c.Walkable, "cell (3,%d)", y)
	}
	c, _ := g.Cell(2, 0)
	assert.True(t, c.Walkable, "cell touching the wall stays walkable")

	_, ok := w.Finish()
	assert.True(t, ok)
	_, ok = w.Body("scout")
	assert.True(t, ok)
}

func TestNewWorld_DegenerateGrid(t *testing.T) {
	cfg := wallWorld()
	cfg.Grid.ExtentX = 0.5
	_, err := NewWorld(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, geo.ErrDegenerateGrid)
}

func TestWorld_AgentReachesFinishAroundWall(t *testing.T) {
	rec := &transitions{}
	w, err := NewWorld(wallWorld(), ai.WithRecorder(rec))
	require.NoError(t, err)

	mgr := ai.NewTickManager(100 * time.Millisecond)
	w.Register(mgr)

	for i := 0; i < 500 && !w.Settled(); i++ {
		mgr.TickOnce()
	}

	require.True(t, w.Settled())
	b, _ := w.Body("scout")
	agent := b.Agent()
	assert.Equal(t, ai.StateReached, agent.State())
	assert.InDelta(t, agent.Vitality().Max(), agent.Vitality().Current(), 0)
	assert.Equal(t, []ai.State{ai.StateSeekingObjective, ai.StateReached}, rec.states())
	assert.True(t, rec.got[0].Found)
	assert.Equal(t, 196, rec.got[0].PathCost, "shortest route through the gap")

	frozen := agent.Position()
	mgr.TickOnce()
	assert.Equal(t, frozen, agent.Position())
}

func TestBody_ZoneEdges(t *testing.T) {
	cfg := wallWorld()
	cfg.Agents = []config.AgentEntry{{Name: "idler", Spawn: orb.Point{1, 1}}}
	cfg.RecoveryZones = []zone.RecoveryZone{{ID: "well", Position: orb.Point{1, 1}, Radius: 1}}

	w, err := NewWorld(cfg)
	require.NoError(t, err)
	mgr := ai.NewTickManager(100 * time.Millisecond)
	w.Register(mgr)

	b, _ := w.Body("idler")
	assert.Equal(t, ai.StateIdle, b.State())
	assert.True(t, b.Agent().InsideRecoveryZone(), "spawned inside the zone")
	id, ok := b.ZoneID()
	assert.True(t, ok)
	assert.Equal(t, "well", id)

	w.Zones().Deregister("well")
	mgr.TickOnce()
	assert.False(t, b.Agent().InsideRecoveryZone())
	_, ok = b.ZoneID()
	assert.False(t, ok)

	w.Zones().Register(zone.RecoveryZone{ID: "well", Position: orb.Point{1, 1}, Radius: 1})
	mgr.TickOnce()
	assert.True(t, b.Agent().InsideRecoveryZone())
}

// corridorWorld is a 20x2 strip of 2-unit cells. The zone sits mid-way on
// the upper row, off the straight route along the lower row.
func corridorWorld() config.Wayfinder {
	cfg := config.DefaultWayfinder()
	cfg.Grid = config.GridConfig{
		Origin:     orb.Point{20, 2},
		ExtentX:    40,
		ExtentZ:    4,
		CellRadius: 1,
	}
	cfg.Vitality.DecayRate = 10
	cfg.Vitality.RegenRate = 100
	cfg.Agent.Speed = 10
	cfg.Agents = []config.AgentEntry{{Name: "runner", Spawn: orb.Point{1, 1}, Objective: point(39, 1)}}
	cfg.RecoveryZones = []zone.RecoveryZone{{ID: "well", Position: orb.Point{21, 3}, Radius: 1.2}}
	return cfg
}

func TestWorld_RecoveryRoundTrip(t *testing.T) {
	rec := &transitions{}
	w, err := NewWorld(corridorWorld(), ai.WithRecorder(rec))
	require.NoError(t, err)

	mgr := ai.NewTickManager(100 * time.Millisecond)
	w.Register(mgr)

	for i := 0; i < 200; i++ {
		mgr.TickOnce()
	}

	states := rec.states()
	require.GreaterOrEqual(t, len(states), 3)
	assert.Equal(t, []ai.State{
		ai.StateSeekingObjective,
		ai.StateSeekingRecovery,
		ai.StateSeekingObjective,
	}, states[:3])
	assert.NotContains(t, states, ai.StateLost)

	// Entering recovery plans toward the zone, leaving it plans back.
	assert.Less(t, rec.got[1].Vitality, 30.0)
	assert.Equal(t, orb.Point{21, 3}, rec.got[1].Target)
	assert.GreaterOrEqual(t, rec.got[2].Vitality, 90.0)
	assert.Equal(t, orb.Point{39, 1}, rec.got[2].Target)
}
