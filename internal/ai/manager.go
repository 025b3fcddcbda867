package ai

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// TickManager ticks all registered controllers at a fixed interval.
type TickManager struct {
	interval time.Duration

	mu          sync.Mutex
	order       []string              // registration order; ticks are deterministic
	controllers map[string]Controller // id → controller
	afterTick   []func(tick uint64)

	tick   atomic.Uint64
	stopCh chan struct{}
	once   sync.Once
}

// NewTickManager creates a tick manager with the given interval.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &TickManager{
		interval:    interval,
		controllers: make(map[string]Controller),
		stopCh:      make(chan struct{}),
	}
}

// Interval returns the tick interval.
func (m *TickManager) Interval() time.Duration { return m.interval }

// Register registers and starts a controller. Re-registering an id replaces
// (and stops) the previous controller.
func (m *TickManager) Register(id string, controller Controller) {
	m.mu.Lock()
	old, exists := m.controllers[id]
	m.controllers[id] = controller
	if !exists {
		m.order = append(m.order, id)
	}
	m.mu.Unlock()

	if exists {
		old.Stop()
	}
	controller.Start()

	slog.Debug("AI controller registered", "id", id, "state", controller.State())
}

// Unregister stops and removes a controller.
func (m *TickManager) Unregister(id string) {
	m.mu.Lock()
	controller, ok := m.controllers[id]
	if ok {
		delete(m.controllers, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	controller.Stop()

	slog.Debug("AI controller unregistered", "id", id)
}

// AfterTick registers fn to run after every tick, on the tick goroutine.
func (m *TickManager) AfterTick(fn func(tick uint64)) {
	m.mu.Lock()
	m.afterTick = append(m.afterTick, fn)
	m.mu.Unlock()
}

// Start runs the tick loop (blocks until the context is canceled or Stop is called).
func (m *TickManager) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("AI tick manager started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("AI tick manager stopping", "ticks", m.tick.Load())
			return ctx.Err()

		case <-m.stopCh:
			slog.Info("AI tick manager stopped", "ticks", m.tick.Load())
			return nil

		case <-ticker.C:
			m.TickOnce()
		}
	}
}

// Stop stops the tick loop. Safe to call more than once.
func (m *TickManager) Stop() {
	m.once.Do(func() { close(m.stopCh) })
}

// TickOnce ticks every controller once with dt = interval.
func (m *TickManager) TickOnce() {
	dt := m.interval.Seconds()

	m.mu.Lock()
	controllers := make([]Controller, 0, len(m.order))
	for _, id := range m.order {
		controllers = append(controllers, m.controllers[id])
	}
	hooks := slices.Clone(m.afterTick)
	m.mu.Unlock()

	for _, c := range controllers {
		c.Tick(dt)
	}

	tick := m.tick.Add(1)
	for _, fn := range hooks {
		fn(tick)
	}

	if len(controllers) > 0 && IsDebugEnabled() {
		slog.Debug("AI tick completed", "tick", tick, "controllers", len(controllers))
	}
}

// Ticks returns the number of completed ticks.
func (m *TickManager) Ticks() uint64 {
	return m.tick.Load()
}

// Count returns the number of registered controllers.
func (m *TickManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// GetController returns the controller registered under id.
func (m *TickManager) GetController(id string) (Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[id]
	if !ok {
		return nil, fmt.Errorf("controller not found for id %q", id)
	}
	return c, nil
}
