// Package item defines the agent's carried items and how the engine
// classifies them.
package item

// Item identifies a stackable item type.
type Item string

const (
	Bread        Item = "bread"
	CookedBeef   Item = "cooked_beef"
	CookedPork   Item = "cooked_porkchop"
	Apple        Item = "apple"
	Carrot       Item = "carrot"
	SweetBerries Item = "sweet_berries"
	MelonSlice   Item = "melon_slice"
	RawBeef      Item = "beef"

	GoldenApple   Item = "golden_apple"
	HealingPotion Item = "potion_healing"
	RegenPotion   Item = "potion_regeneration"

	WoodenPickaxe  Item = "wooden_pickaxe"
	StonePickaxe   Item = "stone_pickaxe"
	IronPickaxe    Item = "iron_pickaxe"
	DiamondPickaxe Item = "diamond_pickaxe"
	WoodenAxe      Item = "wooden_axe"
	StoneAxe       Item = "stone_axe"
	IronAxe        Item = "iron_axe"
	WoodenSword    Item = "wooden_sword"
	StoneSword     Item = "stone_sword"
	IronSword      Item = "iron_sword"

	Log         Item = "log"
	Planks      Item = "planks"
	Stick       Item = "stick"
	Cobblestone Item = "cobblestone"
	IronIngot   Item = "iron_ingot"
	Wheat       Item = "wheat"
	Dirt        Item = "dirt"

	Shield      Item = "shield"
	EnderPearl  Item = "ender_pearl"
	WaterBucket Item = "water_bucket"
	Bucket      Item = "bucket"
)

// Kind groups items by the role the survival logic gives them.
type Kind uint8

const (
	KindOther Kind = iota
	KindFood
	KindHealing
	KindTool
	KindMaterial
	KindDefense
	KindEscape
)

type info struct {
	kind Kind
	// food points restored when eaten; healing points for KindHealing.
	value int
}

var catalogue = map[Item]info{
	Bread:          {KindFood, 5},
	CookedBeef:     {KindFood, 8},
	CookedPork:     {KindFood, 8},
	Apple:          {KindFood, 4},
	Carrot:         {KindFood, 3},
	SweetBerries:   {KindFood, 2},
	MelonSlice:     {KindFood, 2},
	RawBeef:        {KindFood, 3},
	GoldenApple:    {KindHealing, 8},
	HealingPotion:  {KindHealing, 8},
	RegenPotion:    {KindHealing, 6},
	WoodenPickaxe:  {KindTool, 0},
	StonePickaxe:   {KindTool, 0},
	IronPickaxe:    {KindTool, 0},
	DiamondPickaxe: {KindTool, 0},
	WoodenAxe:      {KindTool, 0},
	StoneAxe:       {KindTool, 0},
	IronAxe:        {KindTool, 0},
	WoodenSword:    {KindTool, 0},
	StoneSword:     {KindTool, 0},
	IronSword:      {KindTool, 0},
	Log:            {KindMaterial, 0},
	Planks:         {KindMaterial, 0},
	Stick:          {KindMaterial, 0},
	Cobblestone:    {KindMaterial, 0},
	IronIngot:      {KindMaterial, 0},
	Wheat:          {KindMaterial, 0},
	Dirt:           {KindMaterial, 0},
	Shield:         {KindDefense, 0},
	EnderPearl:     {KindEscape, 0},
	WaterBucket:    {KindEscape, 0},
	Bucket:         {KindOther, 0},
}

// Parse looks up an item by its identifier.
func Parse(name string) (Item, bool) {
	i := Item(name)
	_, ok := catalogue[i]
	return i, ok
}

func (i Item) Kind() Kind { return catalogue[i].kind }

// Value is the food or healing restored by consuming one unit.
func (i Item) Value() int { return catalogue[i].value }

func (i Item) Edible() bool { return i.Kind() == KindFood }
func (i Item) Heals() bool  { return i.Kind() == KindHealing }
func (i Item) IsTool() bool { return i.Kind() == KindTool }

// Food items in the order the agent prefers to eat them.
var foodPreference = []Item{CookedBeef, CookedPork, Bread, Apple, Carrot, MelonSlice, SweetBerries, RawBeef}

// Healing items, strongest first.
var healingPreference = []Item{GoldenApple, HealingPotion, RegenPotion}

// Blocks the agent will place under itself, most plentiful kinds first.
var placeablePreference = []Item{Cobblestone, Dirt, Planks}

// Placeable reports whether i can be set down as a solid block.
func (i Item) Placeable() bool {
	for _, p := range placeablePreference {
		if i == p {
			return true
		}
	}
	return false
}
