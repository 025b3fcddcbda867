package vitality

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSettings is returned by New for non-positive max or negative rates.
var ErrInvalidSettings = errors.New("invalid vitality settings")

// Settings configures a Model.
type Settings struct {
	Max       float64 `yaml:"max"`
	DecayRate float64 `yaml:"decay_rate"` // units per second outside recovery zones
	RegenRate float64 `yaml:"regen_rate"` // units per second inside recovery zones
}

// DefaultSettings mirrors the stock agent tuning.
func DefaultSettings() Settings {
	return Settings{
		Max:       100,
		DecayRate: 2.5,
		RegenRate: 10,
	}
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if !(s.Max > 0) || math.IsInf(s.Max, 0) {
		return fmt.Errorf("%w: max must be positive, got %v", ErrInvalidSettings, s.Max)
	}
	if s.DecayRate < 0 || s.RegenRate < 0 || math.IsNaN(s.DecayRate) || math.IsNaN(s.RegenRate) {
		return fmt.Errorf("%w: rates must be non-negative (decay=%v regen=%v)",
			ErrInvalidSettings, s.DecayRate, s.RegenRate)
	}
	return nil
}

// Listener receives (current, max) after every change.
type Listener func(current, max float64)

// Model is a bounded scalar resource that decays over time and regenerates
// inside recovery zones. Not safe for concurrent use: it is ticked by its
// owning agent.
type Model struct {
	settings  Settings
	current   float64
	listeners []*subscription
}

type subscription struct {
	fn Listener
}

// New creates a Model starting at max.
func New(s Settings) (*Model, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Model{settings: s, current: s.Max}, nil
}

// Current returns the current value.
func (m *Model) Current() float64 { return m.current }

// Max returns the upper bound.
func (m *Model) Max() float64 { return m.settings.Max }

// Settings returns the configured settings.
func (m *Model) Settings() Settings { return m.settings }

// Depleted reports whether the value reached zero.
func (m *Model) Depleted() bool { return m.current <= 0 }

// Tick advances the model by dt seconds, regenerating inside a recovery zone
// and decaying otherwise.
func (m *Model) Tick(dt float64, insideRecovery bool) {
	if insideRecovery {
		m.set(m.current + m.settings.RegenRate*dt)
		return
	}
	m.set(m.current - m.settings.DecayRate*dt)
}

// Regenerate applies dt seconds of regeneration.
func (m *Model) Regenerate(dt float64) {
	m.set(m.current + m.settings.RegenRate*dt)
}

// Reset restores the value to max.
func (m *Model) Reset() {
	m.set(m.settings.Max)
}

// Subscribe registers fn for change notifications. The returned function
// removes it; calling it more than once is harmless.
func (m *Model) Subscribe(fn Listener) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	m.listeners = append(m.listeners, sub)

	return func() {
		for i, s := range m.listeners {
			if s == sub {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// set clamps v to [0, max] and notifies only when the value changed.
func (m *Model) set(v float64) {
	v = min(max(v, 0), m.settings.Max)
	if v == m.current {
		return
	}
	m.current = v

	// Snapshot so listeners may unsubscribe while being notified.
	subs := append([]*subscription(nil), m.listeners...)
	for _, s := range subs {
		s.fn(m.current, m.settings.Max)
	}
}
