// Package player describes the piloted agent as the engine sees it.
package player

import (
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/world"
)

const (
	MaxHealth = 20.0
	MaxHunger = 20
)

// Velocity is the agent's motion in cells per second.
type Velocity struct {
	X, Y, Z float64
}

// State is a per-tick snapshot of the agent.
type State struct {
	Position       world.Coord // cell occupied by the agent's feet
	Heading        world.Heading
	Velocity       Velocity
	Health         float64
	Hunger         int
	Inventory      item.Inventory
	TouchingLiquid bool
	OnGround       bool
	// NearbyFauna counts huntable animals within sight.
	NearbyFauna int
}

// Source supplies the current agent state each tick.
type Source interface {
	State() State
}

// SourceFunc adapts a function to Source.
type SourceFunc func() State

func (f SourceFunc) State() State { return f() }
