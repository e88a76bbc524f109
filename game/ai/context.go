package ai

import (
	"time"

	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// AIContext is passed to every behavior tree node during a tick.
// It carries the world view and the agent snapshot for that tick.
type AIContext struct {
	World world.Query
	Agent player.State
	Now   time.Time
	Tick  uint64
}

// NewContext builds the per-tick context.
func NewContext(q world.Query, agent player.State, now time.Time, tick uint64) *AIContext {
	return &AIContext{World: q, Agent: agent, Now: now, Tick: tick}
}

// Position is the agent's feet cell.
func (c *AIContext) Position() world.Coord { return c.Agent.Position }
