package sim

import (
	"github.com/udisondev/wayfinder/internal/ai"
)

// Body places an agent in the world. It implements ai.Controller and,
// after every tick, raises the enter/exit and finish signals on membership
// edges, like a trigger volume would.
type Body struct {
	agent *ai.AgentAI
	world *World

	zoneID   string // zone currently containing the agent, "" if none
	inFinish bool
}

var _ ai.Controller = (*Body)(nil)

// Agent returns the wrapped agent.
func (b *Body) Agent() *ai.AgentAI { return b.agent }

// ZoneID returns the recovery zone currently containing the agent.
func (b *Body) ZoneID() (string, bool) { return b.zoneID, b.zoneID != "" }

// Start runs the agent's initial state entry and the first membership check.
func (b *Body) Start() {
	b.agent.Start()
	b.sense()
}

// Stop halts the agent.
func (b *Body) Stop() { b.agent.Stop() }

// State returns the agent state.
func (b *Body) State() ai.State { return b.agent.State() }

// Tick advances the agent, then reports membership changes caused by its move.
func (b *Body) Tick(dt float64) {
	b.agent.Tick(dt)
	b.sense()
}

func (b *Body) sense() {
	pos := b.agent.Position()

	z, inside := b.world.zones.ContainingZone(pos)
	switch {
	case inside && b.zoneID == "":
		b.zoneID = z.ID
		b.agent.OnEnterRecoveryZone()
	case !inside && b.zoneID != "":
		b.zoneID = ""
		b.agent.OnExitRecoveryZone()
	case inside:
		b.zoneID = z.ID
	}

	finish := b.world.inFinish(pos)
	if finish && !b.inFinish {
		b.agent.OnFinishReached()
	}
	b.inFinish = finish
}
