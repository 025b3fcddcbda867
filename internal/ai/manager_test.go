package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubController records lifecycle calls.
type stubController struct {
	started, stopped int
	ticks            []float64
	state            State
}

func (c *stubController) Start()          { c.started++; c.state = StateSeekingObjective }
func (c *stubController) Stop()           { c.stopped++ }
func (c *stubController) Tick(dt float64) { c.ticks = append(c.ticks, dt) }
func (c *stubController) State() State    { return c.state }

func TestTickManager_RegisterUnregister(t *testing.T) {
	mgr := NewTickManager(100 * time.Millisecond)
	c := &stubController{}

	mgr.Register("a1", c)

	if mgr.Count() != 1 {
		t.Errorf("Count() after Register() = %d, want 1", mgr.Count())
	}
	if c.started != 1 {
		t.Errorf("Start() calls = %d, want 1", c.started)
	}

	got, err := mgr.GetController("a1")
	if err != nil {
		t.Fatalf("GetController() error = %v", err)
	}
	if got.State() != StateSeekingObjective {
		t.Errorf("controller.State() = %v, want SEEKING_OBJECTIVE", got.State())
	}

	mgr.Unregister("a1")
	mgr.Unregister("a1")

	if mgr.Count() != 0 {
		t.Errorf("Count() after Unregister() = %d, want 0", mgr.Count())
	}
	if c.stopped != 1 {
		t.Errorf("Stop() calls = %d, want 1", c.stopped)
	}
	if _, err := mgr.GetController("a1"); err == nil {
		t.Error("GetController() after Unregister() should return error")
	}
}

func TestTickManager_ReRegisterStopsPrevious(t *testing.T) {
	mgr := NewTickManager(time.Second)
	first, second := &stubController{}, &stubController{}

	mgr.Register("a1", first)
	mgr.Register("a1", second)

	if mgr.Count() != 1 {
		t.Errorf("Count() = %d, want 1", mgr.Count())
	}
	if first.stopped != 1 {
		t.Errorf("previous controller Stop() calls = %d, want 1", first.stopped)
	}

	mgr.TickOnce()
	if len(first.ticks) != 0 || len(second.ticks) != 1 {
		t.Errorf("ticks first=%d second=%d, want 0 and 1", len(first.ticks), len(second.ticks))
	}
}

func TestTickManager_TickOnce(t *testing.T) {
	mgr := NewTickManager(250 * time.Millisecond)

	controllers := make([]*stubController, 5)
	for i := range controllers {
		controllers[i] = &stubController{}
		mgr.Register(string(rune('a'+i)), controllers[i])
	}

	var hookTicks []uint64
	mgr.AfterTick(func(tick uint64) { hookTicks = append(hookTicks, tick) })

	mgr.TickOnce()
	mgr.TickOnce()

	for i, c := range controllers {
		if len(c.ticks) != 2 {
			t.Fatalf("controller %d ticks = %d, want 2", i, len(c.ticks))
		}
		if c.ticks[0] != 0.25 {
			t.Errorf("controller %d dt = %v, want 0.25", i, c.ticks[0])
		}
	}
	if len(hookTicks) != 2 || hookTicks[0] != 1 || hookTicks[1] != 2 {
		t.Errorf("hook ticks = %v, want [1 2]", hookTicks)
	}
	if mgr.Ticks() != 2 {
		t.Errorf("Ticks() = %d, want 2", mgr.Ticks())
	}
}

func TestTickManager_HookAddedDuringTickRunsNextTick(t *testing.T) {
	mgr := NewTickManager(100 * time.Millisecond)

	var late []uint64
	added := false
	mgr.AfterTick(func(tick uint64) {
		if !added {
			added = true
			mgr.AfterTick(func(tick uint64) { late = append(late, tick) })
		}
	})

	mgr.TickOnce()
	if len(late) != 0 {
		t.Errorf("hook added during tick 1 ran in that tick: %v", late)
	}

	mgr.TickOnce()
	if len(late) != 1 || late[0] != 2 {
		t.Errorf("late hook ticks = %v, want [2]", late)
	}
}

func TestTickManager_StartStopsOnCancel(t *testing.T) {
	mgr := NewTickManager(10 * time.Millisecond)
	c := &stubController{}
	mgr.Register("a1", c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mgr.Start(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for mgr.Ticks() < 3 {
		select {
		case <-deadline:
			t.Fatal("tick loop did not advance")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not stop after context cancel")
	}
}

func TestTickManager_Stop(t *testing.T) {
	mgr := NewTickManager(10 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- mgr.Start(context.Background())
	}()

	mgr.Stop()
	mgr.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestNewTickManager_DefaultInterval(t *testing.T) {
	if got := NewTickManager(0).Interval(); got != 100*time.Millisecond {
		t.Errorf("Interval() = %v, want 100ms", got)
	}
}
