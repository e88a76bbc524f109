package pilot

import (
	"github.com/kasuganosora/voxelpilot/game/crisis"
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/recovery"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// Mode says which controller produced the tick's intent.
type Mode int

const (
	ModeIdle Mode = iota
	ModeTravel
	ModeRecovery
	ModeCrisis
	ModeCompleted
	ModeFall
)

func (m Mode) String() string {
	switch m {
	case ModeTravel:
		return "travel"
	case ModeRecovery:
		return "recovery"
	case ModeCrisis:
		return "crisis"
	case ModeCompleted:
		return "completed"
	case ModeFall:
		return "fall"
	default:
		return "idle"
	}
}

// Intent is the steering output for one tick. The host maps it onto its own
// input layer; the engine never touches controls directly.
type Intent struct {
	Mode     Mode              `json:"mode"`
	Heading  world.Heading     `json:"heading"`
	Forward  bool              `json:"forward"`
	Jump     bool              `json:"jump"`
	Dig      []world.Coord     `json:"dig,omitempty"`
	Consume  item.Item         `json:"consume,omitempty"`
	Craft    *item.Recipe      `json:"-"`
	Teleport *world.Coord      `json:"teleport,omitempty"`
	Place    *player.Placement `json:"place,omitempty"`
	Recovery recovery.Kind     `json:"recovery,omitempty"`
	Crisis   crisis.ActionKind `json:"crisis,omitempty"`
}

func fromCrisis(a crisis.Action) Intent {
	return Intent{
		Mode:    ModeCrisis,
		Heading: a.Heading,
		Forward: a.Forward,
		Jump:    a.Jump,
		Dig:     a.Dig,
		Consume: a.Consume,
		Craft:   a.Craft,
		Crisis:  a.Kind,
	}
}

func fromRecovery(a recovery.Action) Intent {
	in := Intent{
		Mode:     ModeRecovery,
		Heading:  a.Heading,
		Forward:  a.Forward,
		Jump:     a.Jump,
		Dig:      a.Dig,
		Recovery: a.Kind,
	}
	if a.Kind == recovery.KindEmergencyTeleport {
		t := a.Target
		in.Teleport = &t
	}
	return in
}
