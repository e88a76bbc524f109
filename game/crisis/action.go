package crisis

import (
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// Kind is a survival emergency.
type Kind int

const (
	KindNone Kind = iota
	KindLowHealth
	KindLowHunger
	KindNoFood
	KindNoTools
	KindMultiple
)

func (k Kind) String() string {
	switch k {
	case KindLowHealth:
		return "low_health"
	case KindLowHunger:
		return "low_hunger"
	case KindNoFood:
		return "no_food"
	case KindNoTools:
		return "no_tools"
	case KindMultiple:
		return "multiple"
	default:
		return "none"
	}
}

// Description is the human-readable label shown in status output.
func (k Kind) Description() string {
	switch k {
	case KindLowHealth:
		return "Critical Health"
	case KindLowHunger:
		return "Critical Hunger"
	case KindNoFood:
		return "No Food Available"
	case KindNoTools:
		return "No Usable Tools"
	case KindMultiple:
		return "Multiple Critical Issues"
	default:
		return "No Crisis"
	}
}

// ActionKind names what the agent should do this tick while in crisis.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionResolved
	ActionGiveUp
	ActionHideAndWait
	ActionUseHealingItem
	ActionEatFood
	ActionRetreatToShelter
	ActionCraftShield
	ActionHuntAnimal
	ActionGatherFood
	ActionCraftFood
	ActionSearchForFood
	ActionCraftTools
	ActionGatherWood
	ActionGatherStone
	ActionSearchForMaterials
)

var actionNames = [...]string{
	ActionNone:               "none",
	ActionResolved:           "resolved",
	ActionGiveUp:             "give_up",
	ActionHideAndWait:        "hide_and_wait",
	ActionUseHealingItem:     "use_healing_item",
	ActionEatFood:            "eat_food",
	ActionRetreatToShelter:   "retreat_to_shelter",
	ActionCraftShield:        "craft_shield",
	ActionHuntAnimal:         "hunt_animal",
	ActionGatherFood:         "gather_food",
	ActionCraftFood:          "craft_food",
	ActionSearchForFood:      "search_for_food",
	ActionCraftTools:         "craft_tools",
	ActionGatherWood:         "gather_wood",
	ActionGatherStone:        "gather_stone",
	ActionSearchForMaterials: "search_for_materials",
}

func (a ActionKind) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// Action is the crisis decision for one tick. Zero fields mean "leave as is".
type Action struct {
	Kind      ActionKind    `json:"kind"`
	Target    world.Coord   `json:"target"`
	HasTarget bool          `json:"has_target"`
	Heading   world.Heading `json:"heading"`
	Forward   bool          `json:"forward"`
	Jump      bool          `json:"jump"`
	Dig       []world.Coord `json:"dig,omitempty"`
	Consume   item.Item     `json:"consume,omitempty"`
	Craft     *item.Recipe  `json:"-"`
}

// Exit reports how a crisis ended on this step.
type Exit int

const (
	ExitNone Exit = iota
	ExitResolved
	ExitGaveUp
	ExitCancelled
)

func (e Exit) String() string {
	switch e {
	case ExitResolved:
		return "resolved"
	case ExitGaveUp:
		return "gave_up"
	case ExitCancelled:
		return "cancelled"
	default:
		return "none"
	}
}
