package world

import "fmt"

// Material identifies what occupies a cell.
type Material uint8

const (
	MaterialUnknown Material = iota // unloaded or failed query; always blocking
	MaterialAir
	MaterialStone
	MaterialCobblestone
	MaterialDirt
	MaterialGrass
	MaterialSand
	MaterialGravel
	MaterialClay
	MaterialLog
	MaterialPlanks
	MaterialLeaves
	MaterialIronOre
	MaterialCoalOre
	MaterialObsidian
	MaterialGlass
	MaterialMelon
	MaterialPumpkin
	MaterialBedrock
	MaterialBarrier
	MaterialCommandBlock
	MaterialStructureBlock
	MaterialWater
	MaterialLava
	MaterialFire
	MaterialMagma
	MaterialCactus
	MaterialTallGrass
	MaterialFern
	MaterialFlower
	MaterialDeadBush
	MaterialVine
	MaterialSnowLayer
	MaterialWheat
	MaterialBerryBush
	MaterialCarrots
)

var materialNames = map[Material]string{
	MaterialUnknown:        "unknown",
	MaterialAir:            "air",
	MaterialStone:          "stone",
	MaterialCobblestone:    "cobblestone",
	MaterialDirt:           "dirt",
	MaterialGrass:          "grass_block",
	MaterialSand:           "sand",
	MaterialGravel:         "gravel",
	MaterialClay:           "clay",
	MaterialLog:            "log",
	MaterialPlanks:         "planks",
	MaterialLeaves:         "leaves",
	MaterialIronOre:        "iron_ore",
	MaterialCoalOre:        "coal_ore",
	MaterialObsidian:       "obsidian",
	MaterialGlass:          "glass",
	MaterialMelon:          "melon",
	MaterialPumpkin:        "pumpkin",
	MaterialBedrock:        "bedrock",
	MaterialBarrier:        "barrier",
	MaterialCommandBlock:   "command_block",
	MaterialStructureBlock: "structure_block",
	MaterialWater:          "water",
	MaterialLava:           "lava",
	MaterialFire:           "fire",
	MaterialMagma:          "magma_block",
	MaterialCactus:         "cactus",
	MaterialTallGrass:      "tall_grass",
	MaterialFern:           "fern",
	MaterialFlower:         "flower",
	MaterialDeadBush:       "dead_bush",
	MaterialVine:           "vine",
	MaterialSnowLayer:      "snow",
	MaterialWheat:          "wheat",
	MaterialBerryBush:      "sweet_berry_bush",
	MaterialCarrots:        "carrots",
}

var materialByName = func() map[string]Material {
	out := make(map[string]Material, len(materialNames))
	for m, n := range materialNames {
		out[n] = m
	}
	return out
}()

func (m Material) String() string {
	if n, ok := materialNames[m]; ok {
		return n
	}
	return "unknown"
}

// ParseMaterial looks up a material by name.
func ParseMaterial(name string) (Material, bool) {
	m, ok := materialByName[name]
	return m, ok
}

func (m Material) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Material) UnmarshalText(b []byte) error {
	v, ok := ParseMaterial(string(b))
	if !ok {
		return fmt.Errorf("world: unknown material %q", b)
	}
	*m = v
	return nil
}

// Class is the coarse movement classification of a material.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassOpen
	ClassSoft
	ClassLiquid
	ClassSolid
	ClassHazard
)

func (c Class) String() string {
	switch c {
	case ClassOpen:
		return "open"
	case ClassSoft:
		return "soft"
	case ClassLiquid:
		return "liquid"
	case ClassSolid:
		return "solid"
	case ClassHazard:
		return "hazard"
	default:
		return "unknown"
	}
}

// Class maps a material onto its movement class.
func (m Material) Class() Class {
	switch m {
	case MaterialAir:
		return ClassOpen
	case MaterialTallGrass, MaterialFern, MaterialFlower, MaterialDeadBush,
		MaterialVine, MaterialSnowLayer, MaterialWheat, MaterialCarrots:
		return ClassSoft
	case MaterialWater:
		return ClassLiquid
	case MaterialLava, MaterialFire, MaterialMagma, MaterialCactus, MaterialBerryBush:
		return ClassHazard
	case MaterialUnknown:
		return ClassUnknown
	default:
		return ClassSolid
	}
}

// Passable reports whether an agent can occupy the cell. Shallow liquid and
// low vegetation count as passable.
func (m Material) Passable() bool {
	switch m.Class() {
	case ClassOpen, ClassSoft, ClassLiquid:
		return true
	}
	return false
}

// Soft reports vegetation, snow and liquid that slow but never block movement.
func (m Material) Soft() bool {
	c := m.Class()
	return c == ClassSoft || c == ClassLiquid
}

// Solid reports whether the material blocks movement and can be stood on.
// Magma and cactus block movement but are hazards, not solid ground.
func (m Material) Solid() bool { return m.Class() == ClassSolid }

func (m Material) Hazard() bool { return m.Class() == ClassHazard }
func (m Material) Liquid() bool { return m == MaterialWater || m == MaterialLava }

// Support reports whether an agent standing on top of m is held up safely.
func (m Material) Support() bool { return m.Solid() }

// Unbreakable lists materials that must never be proposed as dig targets.
func (m Material) Unbreakable() bool {
	switch m {
	case MaterialBedrock, MaterialBarrier, MaterialCommandBlock, MaterialStructureBlock, MaterialUnknown:
		return true
	}
	return false
}

// Breakable reports whether digging the cell is allowed and clears it.
func (m Material) Breakable() bool {
	return m.Solid() && !m.Unbreakable()
}

// Diggable reports materials quick enough to carve a shelter into by hand.
func (m Material) Diggable() bool {
	switch m {
	case MaterialStone, MaterialCobblestone, MaterialDirt, MaterialGrass,
		MaterialSand, MaterialGravel, MaterialClay:
		return true
	}
	return false
}

// FoodSource reports harvestable blocks that yield food.
func (m Material) FoodSource() bool {
	switch m {
	case MaterialWheat, MaterialCarrots, MaterialBerryBush, MaterialMelon, MaterialPumpkin:
		return true
	}
	return false
}

func (m Material) Wood() bool { return m == MaterialLog }

// Rock reports minable stone that yields cobblestone.
func (m Material) Rock() bool {
	return m == MaterialStone || m == MaterialCobblestone
}
