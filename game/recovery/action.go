package recovery

import (
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// Kind names a recovery action.
type Kind int

const (
	KindNone Kind = iota
	KindBacktrack
	KindDigOut
	KindDigUp
	KindDigLateral
	KindEmergencyTeleport
	KindRandomWalk
	KindPanicDig
)

func (k Kind) String() string {
	switch k {
	case KindBacktrack:
		return "backtrack"
	case KindDigOut:
		return "dig_out"
	case KindDigUp:
		return "dig_up"
	case KindDigLateral:
		return "dig_lateral"
	case KindEmergencyTeleport:
		return "emergency_teleport"
	case KindRandomWalk:
		return "random_walk"
	case KindPanicDig:
		return "panic_dig"
	default:
		return "none"
	}
}

// Digs reports whether the action breaks blocks.
func (k Kind) Digs() bool {
	return k == KindDigOut || k == KindDigUp || k == KindDigLateral || k == KindPanicDig
}

// Action is one step of recovery for the host to carry out this tick.
type Action struct {
	Kind    Kind          `json:"kind"`
	Target  world.Coord   `json:"target"`
	Dig     []world.Coord `json:"dig,omitempty"`
	Heading world.Heading `json:"heading"`
	Forward bool          `json:"forward"`
	Jump    bool          `json:"jump"`
	Use     item.Item     `json:"use,omitempty"`
}

// Exit reports how a recovery episode ended on this step.
type Exit int

const (
	ExitNone Exit = iota
	ExitRecovered
	ExitGaveUp
)

func (e Exit) String() string {
	switch e {
	case ExitRecovered:
		return "recovered"
	case ExitGaveUp:
		return "gave_up"
	default:
		return "none"
	}
}

// Trigger is the condition that asked for recovery.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerSuffocation
	TriggerStalled
	TriggerKnownStuck
	TriggerDeadEnd
)

func (t Trigger) String() string {
	switch t {
	case TriggerSuffocation:
		return "suffocation"
	case TriggerStalled:
		return "stalled"
	case TriggerKnownStuck:
		return "known_stuck"
	case TriggerDeadEnd:
		return "dead_end"
	default:
		return "none"
	}
}
