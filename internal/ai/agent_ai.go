package ai

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/vitality"
	"github.com/udisondev/wayfinder/internal/zone"
)

// ErrInvalidSettings is returned by NewAgentAI for inconsistent thresholds or movement settings.
var ErrInvalidSettings = errors.New("invalid agent settings")

// Planner finds paths over the navigation grid. *geo.Grid implements it.
type Planner interface {
	FindPath(start, goal orb.Point, strategy geo.Strategy, opts ...geo.SearchOption) geo.Result
}

// ZoneLocator answers nearest recovery zone queries. *zone.Registry implements it.
type ZoneLocator interface {
	Nearest(p orb.Point) (zone.RecoveryZone, bool)
}

// Settings tunes the agent's recovery policy and movement.
type Settings struct {
	// LowThreshold: below it a seeking agent turns to recovery.
	LowThreshold float64 `yaml:"low_threshold"`
	// HighThreshold: a recovering agent resumes the objective at or above it.
	HighThreshold float64      `yaml:"high_threshold"`
	Strategy      geo.Strategy `yaml:"-"`
	Speed         float64      `yaml:"speed"`   // world units per second
	Epsilon       float64      `yaml:"epsilon"` // waypoint arrival tolerance
}

// DefaultSettings returns the stock agent tuning.
func DefaultSettings() Settings {
	return Settings{
		LowThreshold:  30,
		HighThreshold: 90,
		Strategy:      geo.StrategyAStar,
		Speed:         5,
		Epsilon:       0.01,
	}
}

// Validate checks the hysteresis band and movement parameters.
func (s Settings) Validate() error {
	if s.LowThreshold < 0 || s.HighThreshold <= s.LowThreshold {
		return fmt.Errorf("%w: need 0 <= low < high, got low=%v high=%v",
			ErrInvalidSettings, s.LowThreshold, s.HighThreshold)
	}
	if s.Speed < 0 || s.Epsilon < 0 {
		return fmt.Errorf("%w: speed and epsilon must be non-negative", ErrInvalidSettings)
	}
	return nil
}

// Option configures an AgentAI.
type Option func(*AgentAI)

// WithObjective sets the primary objective before Start.
func WithObjective(p orb.Point) Option {
	return func(a *AgentAI) {
		a.objective = p
		a.hasObjective = true
	}
}

// WithRecorder attaches a transition recorder.
func WithRecorder(r TransitionRecorder) Option {
	return func(a *AgentAI) { a.recorder = r }
}

// WithSearchObserver requests search snapshots on every planning entry.
func WithSearchObserver(o SearchObserver) Option {
	return func(a *AgentAI) { a.observer = o }
}

// WithClock overrides the transition timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *AgentAI) { a.now = now }
}

// AgentAI drives one agent: it ticks vitality, runs the state machine and
// replans only on state entry. Not safe for concurrent use; it is driven
// from the tick goroutine.
type AgentAI struct {
	name     string
	settings Settings
	planner  Planner
	zones    ZoneLocator
	vitality *vitality.Model
	recorder TransitionRecorder
	observer SearchObserver
	now      func() time.Time

	isRunning atomic.Bool
	tickCount atomic.Uint64

	state          State
	position       orb.Point
	objective      orb.Point
	hasObjective   bool
	insideRecovery bool
	task           *pathTask
}

// NewAgentAI creates an agent at spawn. Call Start to run the initial state entry.
func NewAgentAI(
	name string,
	spawn orb.Point,
	settings Settings,
	planner Planner,
	zones ZoneLocator,
	v *vitality.Model,
	opts ...Option,
) (*AgentAI, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}
	if planner == nil || zones == nil || v == nil {
		return nil, fmt.Errorf("agent %q: %w: planner, zones and vitality are required", name, ErrInvalidSettings)
	}
	if settings.HighThreshold > v.Max() {
		return nil, fmt.Errorf("agent %q: %w: high threshold %v exceeds vitality max %v",
			name, ErrInvalidSettings, settings.HighThreshold, v.Max())
	}

	a := &AgentAI{
		name:     name,
		settings: settings,
		planner:  planner,
		zones:    zones,
		vitality: v,
		now:      time.Now,
		state:    StateIdle,
		position: spawn,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Name returns the agent name.
func (a *AgentAI) Name() string { return a.name }

// State returns the current state.
func (a *AgentAI) State() State { return a.state }

// Position returns the agent's world position.
func (a *AgentAI) Position() orb.Point { return a.position }

// Vitality returns the agent's vitality model.
func (a *AgentAI) Vitality() *vitality.Model { return a.vitality }

// InsideRecoveryZone reports the current zone-volume flag.
func (a *AgentAI) InsideRecoveryZone() bool { return a.insideRecovery }

// Objective returns the primary objective, if set.
func (a *AgentAI) Objective() (orb.Point, bool) { return a.objective, a.hasObjective }

// Path returns the waypoints still to be reached (copy).
func (a *AgentAI) Path() []geo.Cell {
	if a.task == nil {
		return nil
	}
	return a.task.Remaining()
}

// Ticks returns the number of ticks processed since Start.
func (a *AgentAI) Ticks() uint64 { return a.tickCount.Load() }

// Start runs the initial state entry.
func (a *AgentAI) Start() {
	a.isRunning.Store(true)

	if !a.hasObjective {
		slog.Info("agent has no objective configured, idling", "agent", a.name)
		a.enter(StateIdle)
		return
	}
	a.enter(StateSeekingObjective)
}

// Stop halts the agent and cancels path following.
func (a *AgentAI) Stop() {
	a.isRunning.Store(false)
	a.replaceTask(nil)
	slog.Debug("agent stopped", "agent", a.name, "state", a.state)
}

// Tick advances vitality, evaluates transitions and moves along the path.
func (a *AgentAI) Tick(dt float64) {
	if !a.isRunning.Load() {
		return
	}
	ticks := a.tickCount.Add(1)

	if a.state == StateReached {
		return
	}

	a.vitality.Tick(dt, a.insideRecovery)
	a.evaluate()

	if a.task != nil && !a.state.Terminal() {
		a.position = a.task.Advance(a.position, a.settings.Speed*dt)
		if a.task.Complete() {
			slog.Debug("agent path complete", "agent", a.name, "state", a.state)
			a.task = nil
		}
	}

	if IsDebugEnabled() {
		slog.Debug("agent tick",
			"agent", a.name,
			"tick", ticks,
			"state", a.state,
			"vitality", a.vitality.Current(),
			"x", a.position[0],
			"y", a.position[1])
	}
}

// evaluate applies at most one vitality-driven transition.
func (a *AgentAI) evaluate() {
	v := a.vitality.Current()

	switch {
	case a.state != StateLost && v <= 0:
		a.enter(StateLost)
	case a.state == StateSeekingObjective && v < a.settings.LowThreshold:
		a.enter(StateSeekingRecovery)
	case a.state == StateSeekingRecovery && v >= a.settings.HighThreshold:
		a.enter(StateSeekingObjective)
	}
}

// SetObjective sets the primary objective. An idle agent starts seeking it;
// an agent already seeking it replans.
func (a *AgentAI) SetObjective(p orb.Point) {
	a.objective = p
	a.hasObjective = true

	if !a.isRunning.Load() {
		return
	}
	switch a.state {
	case StateIdle, StateSeekingObjective:
		a.enter(StateSeekingObjective)
	}
}

// OnEnterRecoveryZone marks the agent as inside a recovery zone volume.
func (a *AgentAI) OnEnterRecoveryZone() {
	a.insideRecovery = true
}

// OnExitRecoveryZone clears the recovery zone flag.
func (a *AgentAI) OnExitRecoveryZone() {
	a.insideRecovery = false
}

// OnFinishReached handles the finish-region signal.
func (a *AgentAI) OnFinishReached() {
	if !a.isRunning.Load() || a.state == StateReached {
		return
	}
	a.enter(StateReached)
}

// enter performs a state entry: cancel the current task first, then run
// the entry action for the new state.
func (a *AgentAI) enter(to State) {
	from := a.state
	a.replaceTask(nil)
	a.state = to

	tr := Transition{
		Agent: a.name,
		From:  from,
		To:    to,
		At:    a.now(),
	}

	switch to {
	case StateSeekingObjective:
		a.planTo(a.objective, &tr)

	case StateSeekingRecovery:
		z, ok := a.zones.Nearest(a.position)
		if !ok {
			slog.Warn("no recovery zone registered, agent stays without a path",
				"agent", a.name,
				"vitality", a.vitality.Current())
			break
		}
		a.planTo(z.Position, &tr)

	case StateReached:
		a.vitality.Reset()

	case StateLost, StateIdle:
	}

	tr.Vitality = a.vitality.Current()

	slog.Info("agent state changed",
		"agent", a.name,
		"from", from,
		"to", to,
		"vitality", tr.Vitality,
		"pathFound", tr.Found,
		"pathLen", tr.PathLen)

	if a.recorder != nil {
		a.recorder.RecordTransition(tr)
	}
}

// planTo runs exactly one search and installs the resulting path.
func (a *AgentAI) planTo(target orb.Point, tr *Transition) {
	var opts []geo.SearchOption
	if a.observer != nil {
		opts = append(opts, geo.WithSnapshot())
	}

	res := a.planner.FindPath(a.position, target, a.settings.Strategy, opts...)

	tr.HasTarget = true
	tr.Target = target
	tr.Strategy = a.settings.Strategy
	tr.Found = res.Found
	tr.PathLen = len(res.Waypoints)
	tr.PathCost = res.Cost

	if a.observer != nil && res.Snapshot != nil {
		a.observer.ObserveSearch(a.name, res.Snapshot)
	}

	if !res.Found {
		slog.Warn("no path found, agent stays put",
			"agent", a.name,
			"state", a.state,
			"strategy", a.settings.Strategy,
			"targetX", target[0],
			"targetY", target[1])
		return
	}
	a.replaceTask(newPathTask(res.Waypoints, a.settings.Epsilon))
}

// replaceTask cancels the current task before installing next (may be nil).
func (a *AgentAI) replaceTask(next *pathTask) {
	if a.task != nil {
		a.task.Cancel()
	}
	a.task = next
}
