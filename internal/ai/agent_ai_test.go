package ai

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/vitality"
	"github.com/udisondev/wayfinder/internal/zone"
)

// countingPlanner wraps a grid and records every search.
type countingPlanner struct {
	grid     *geo.Grid
	goals    []orb.Point
	notFound bool
	onSearch func()
}

func (p *countingPlanner) FindPath(start, goal orb.Point, s geo.Strategy, opts ...geo.SearchOption) geo.Result {
	p.goals = append(p.goals, goal)
	if p.onSearch != nil {
		p.onSearch()
	}
	if p.notFound {
		return geo.Result{}
	}
	return p.grid.FindPath(start, goal, s, opts...)
}

type recorder struct {
	transitions []Transition
}

func (r *recorder) RecordTransition(tr Transition) {
	r.transitions = append(r.transitions, tr)
}

func (r *recorder) states() []State {
	out := make([]State, 0, len(r.transitions))
	for _, tr := range r.transitions {
		out = append(out, tr.To)
	}
	return out
}

type snapshotCollector struct {
	snaps []*geo.Snapshot
}

func (c *snapshotCollector) ObserveSearch(_ string, s *geo.Snapshot) {
	c.snaps = append(c.snaps, s)
}

// testGrid is 10x10 open cells centered at (2x+1, 2y+1).
func testGrid(t *testing.T) *geo.Grid {
	t.Helper()
	g, err := geo.Build(orb.Point{10, 10}, 20, 20, 1, nil)
	require.NoError(t, err)
	return g
}

// newTestAgent: max 100, 10/s decay and regen, band [30, 90).
func newTestAgent(t *testing.T, planner Planner, zones ZoneLocator, opts ...Option) *AgentAI {
	t.Helper()
	v, err := vitality.New(vitality.Settings{Max: 100, DecayRate: 10, RegenRate: 10})
	require.NoError(t, err)

	settings := DefaultSettings()
	settings.LowThreshold = 30
	settings.HighThreshold = 90
	settings.Speed = 0 // stay put unless a test moves

	a, err := NewAgentAI("scout", orb.Point{1, 1}, settings, planner, zones, v, opts...)
	require.NoError(t, err)
	return a
}

func tickN(a *AgentAI, n int, dt float64) {
	for range n {
		a.Tick(dt)
	}
}

func TestAgentAI_StartWithoutObjectiveIdles(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	rec := &recorder{}
	a := newTestAgent(t, p, zone.NewRegistry(), WithRecorder(rec))

	a.Start()

	assert.Equal(t, StateIdle, a.State())
	assert.Empty(t, p.goals, "idle agent must not search")
	assert.Nil(t, a.Path())
	require.Len(t, rec.transitions, 1)
	assert.False(t, rec.transitions[0].HasTarget)
}

func TestAgentAI_StartWithObjectiveSearchesOnce(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	a := newTestAgent(t, p, zone.NewRegistry(), WithObjective(orb.Point{19, 19}))

	a.Start()

	assert.Equal(t, StateSeekingObjective, a.State())
	require.Len(t, p.goals, 1)
	assert.Equal(t, orb.Point{19, 19}, p.goals[0])
	assert.Len(t, a.Path(), 9)

	tickN(a, 5, 0.1)
	assert.Len(t, p.goals, 1, "no replanning without a state change")
}

func TestAgentAI_HysteresisBand(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	zones := zone.NewRegistry()
	zones.Register(zone.RecoveryZone{ID: "spring", Position: orb.Point{15, 15}, Radius: 2})
	a := newTestAgent(t, p, zones, WithObjective(orb.Point{19, 1}))
	a.Start()

	tickN(a, 7, 1) // 100 → 30: not below low yet
	assert.InDelta(t, 30.0, a.Vitality().Current(), 1e-9)
	assert.Equal(t, StateSeekingObjective, a.State())

	a.Tick(1) // 20 < 30
	assert.Equal(t, StateSeekingRecovery, a.State())
	require.Len(t, p.goals, 2)
	assert.Equal(t, orb.Point{15, 15}, p.goals[1])

	a.OnEnterRecoveryZone()
	for range 6 { // 30 … 80: above low, below high
		a.Tick(1)
		assert.Equal(t, StateSeekingRecovery, a.State(), "vitality %v", a.Vitality().Current())
	}
	assert.InDelta(t, 80.0, a.Vitality().Current(), 1e-9)
	assert.Len(t, p.goals, 2)

	a.Tick(1) // 90 >= high
	assert.Equal(t, StateSeekingObjective, a.State())
	require.Len(t, p.goals, 3)
	assert.Equal(t, orb.Point{19, 1}, p.goals[2])
}

func TestAgentAI_NoRecoveryZoneLeavesAgentPathless(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	a := newTestAgent(t, p, zone.NewRegistry(), WithObjective(orb.Point{19, 19}))
	a.Start()

	tickN(a, 8, 1)
	assert.Equal(t, StateSeekingRecovery, a.State())
	assert.Nil(t, a.Path())
	assert.Len(t, p.goals, 1, "recovery entry without zones must not search")

	tickN(a, 1, 1)
	assert.Len(t, p.goals, 1, "no retry storm")
}

func TestAgentAI_DepletionIsLost(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	zones := zone.NewRegistry()
	zones.Register(zone.RecoveryZone{ID: "far", Position: orb.Point{19, 19}})
	rec := &recorder{}
	a := newTestAgent(t, p, zones, WithObjective(orb.Point{19, 1}), WithRecorder(rec))
	a.Start()

	tickN(a, 10, 1)
	assert.Equal(t, StateLost, a.State())
	assert.Nil(t, a.Path())
	searches := len(p.goals)

	a.OnEnterRecoveryZone()
	tickN(a, 20, 1)
	assert.Equal(t, StateLost, a.State(), "lost is terminal for planning")
	assert.Len(t, p.goals, searches)

	assert.Equal(t, []State{StateSeekingObjective, StateSeekingRecovery, StateLost}, rec.states())
}

func TestAgentAI_ReachedFreezes(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	rec := &recorder{}
	a := newTestAgent(t, p, zone.NewRegistry(), WithObjective(orb.Point{19, 19}), WithRecorder(rec))
	a.Start()

	tickN(a, 3, 1)
	assert.InDelta(t, 70.0, a.Vitality().Current(), 1e-9)

	a.OnFinishReached()
	assert.Equal(t, StateReached, a.State())
	assert.Equal(t, 100.0, a.Vitality().Current(), "reset to max on entry")
	assert.Nil(t, a.Path())

	tickN(a, 50, 1)
	assert.Equal(t, 100.0, a.Vitality().Current(), "decay frozen")
	assert.Equal(t, StateReached, a.State())

	a.OnFinishReached()
	a.SetObjective(orb.Point{1, 19})
	assert.Len(t, rec.transitions, 2)
	assert.Len(t, p.goals, 1)
}

func TestAgentAI_ReachedFromLost(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	a := newTestAgent(t, p, zone.NewRegistry(), WithObjective(orb.Point{19, 19}))
	a.Start()
	tickN(a, 10, 1)
	require.Equal(t, StateLost, a.State())

	a.OnFinishReached()
	assert.Equal(t, StateReached, a.State())
	assert.Equal(t, 100.0, a.Vitality().Current())
}

func TestAgentAI_CancelBeforeReplace(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	zones := zone.NewRegistry()
	zones.Register(zone.RecoveryZone{ID: "spring", Position: orb.Point{9, 9}})
	a := newTestAgent(t, p, zones, WithObjective(orb.Point{19, 19}))
	a.Start()

	old := a.task
	require.NotNil(t, old)

	var taskDuringSearch *pathTask
	var oldCancelledDuringSearch bool
	p.onSearch = func() {
		taskDuringSearch = a.task
		oldCancelledDuringSearch = old.cancelled
	}

	tickN(a, 8, 1) // enters SeekingRecovery
	require.Equal(t, StateSeekingRecovery, a.State())

	assert.Nil(t, taskDuringSearch, "old task must be detached before the new search runs")
	assert.True(t, oldCancelledDuringSearch, "old task must be cancelled before the new search runs")
	assert.NotNil(t, a.task)
	assert.NotSame(t, old, a.task)
	assert.False(t, old.Active())
}

func TestAgentAI_NotFoundStaysPut(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t), notFound: true}
	rec := &recorder{}
	a := newTestAgent(t, p, zone.NewRegistry(), WithObjective(orb.Point{19, 19}), WithRecorder(rec))
	a.settings.Speed = 5
	a.Start()

	assert.Equal(t, StateSeekingObjective, a.State())
	assert.Nil(t, a.Path())
	require.Len(t, rec.transitions, 1)
	assert.True(t, rec.transitions[0].HasTarget)
	assert.False(t, rec.transitions[0].Found)

	tickN(a, 3, 0.5)
	assert.Equal(t, orb.Point{1, 1}, a.Position())
	assert.Len(t, p.goals, 1)
}

func TestAgentAI_SetObjectiveFromIdle(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	a := newTestAgent(t, p, zone.NewRegistry())
	a.Start()
	require.Equal(t, StateIdle, a.State())

	a.SetObjective(orb.Point{9, 1})
	assert.Equal(t, StateSeekingObjective, a.State())
	require.Len(t, p.goals, 1)
	assert.Len(t, a.Path(), 4)

	obj, ok := a.Objective()
	assert.True(t, ok)
	assert.Equal(t, orb.Point{9, 1}, obj)
}

func TestAgentAI_FollowsPathToObjective(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	a := newTestAgent(t, p, zone.NewRegistry(), WithObjective(orb.Point{19, 1}))
	a.settings.Speed = 4
	a.Start()
	require.Len(t, a.Path(), 9)

	tickN(a, 10, 0.5) // 20 units of travel budget, 18 needed
	assert.InDelta(t, 19.0, a.Position()[0], 1e-9)
	assert.InDelta(t, 1.0, a.Position()[1], 1e-9)
	assert.Nil(t, a.Path())
}

func TestAgentAI_ObserverGetsSnapshots(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	obs := &snapshotCollector{}
	a := newTestAgent(t, p, zone.NewRegistry(), WithObjective(orb.Point{19, 19}), WithSearchObserver(obs))
	a.Start()

	require.Len(t, obs.snaps, 1)
	assert.Len(t, obs.snaps[0].Path, 9)
}

func TestAgentAI_TransitionTimestamps(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &recorder{}
	p := &countingPlanner{grid: testGrid(t)}
	a := newTestAgent(t, p, zone.NewRegistry(),
		WithObjective(orb.Point{19, 19}),
		WithRecorder(rec),
		WithClock(func() time.Time { return at }))
	a.Start()

	require.Len(t, rec.transitions, 1)
	tr := rec.transitions[0]
	assert.Equal(t, at, tr.At)
	assert.Equal(t, "scout", tr.Agent)
	assert.Equal(t, StateIdle, tr.From)
	assert.Equal(t, StateSeekingObjective, tr.To)
	assert.Equal(t, 126, tr.PathCost)
	assert.Equal(t, 100.0, tr.Vitality)
}

func TestAgentAI_StoppedIgnoresTicks(t *testing.T) {
	p := &countingPlanner{grid: testGrid(t)}
	a := newTestAgent(t, p, zone.NewRegistry(), WithObjective(orb.Point{19, 19}))
	a.Start()
	a.Stop()

	tickN(a, 20, 1)
	assert.Equal(t, 100.0, a.Vitality().Current())
	assert.Nil(t, a.Path())
	assert.Zero(t, a.Ticks())
}

func TestNewAgentAI_Validation(t *testing.T) {
	g := testGrid(t)
	v, err := vitality.New(vitality.DefaultSettings())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"inverted band", func(s *Settings) { s.LowThreshold, s.HighThreshold = 90, 30 }},
		{"empty band", func(s *Settings) { s.LowThreshold, s.HighThreshold = 50, 50 }},
		{"negative low", func(s *Settings) { s.LowThreshold = -1 }},
		{"high above max", func(s *Settings) { s.HighThreshold = 150 }},
		{"negative speed", func(s *Settings) { s.Speed = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			_, err := NewAgentAI("x", orb.Point{}, s, g, zone.NewRegistry(), v)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "SEEKING_RECOVERY", StateSeekingRecovery.String())
	assert.Equal(t, "STATE(42)", State(42).String())
	assert.True(t, StateLost.Terminal())
	assert.False(t, StateSeekingObjective.Terminal())
}
