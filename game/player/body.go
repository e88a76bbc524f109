package player

import (
	"math"

	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// World is what a simulated body needs from the terrain: reads plus edits.
type World interface {
	world.Query
	Set(c world.Coord, m world.Material)
}

// Input is one tick of low-level control applied to a Body.
type Input struct {
	Heading world.Heading
	Forward bool
	Jump    bool
	Dig     []world.Coord
	Consume item.Item
	Craft   *item.Recipe
	// Teleport moves the body to the given cell, consuming an ender pearl.
	Teleport *world.Coord
	Place    *Placement
}

// Placement sets one carried item down into an open cell.
type Placement struct {
	At   world.Coord `json:"at"`
	Item item.Item   `json:"item"`
}

var placedMaterial = map[item.Item]world.Material{
	item.WaterBucket: world.MaterialWater,
	item.Cobblestone: world.MaterialCobblestone,
	item.Dirt:        world.MaterialDirt,
	item.Planks:      world.MaterialPlanks,
}

// BodyConfig tunes the kinematic simulation.
type BodyConfig struct {
	TickRate     int     // ticks per second
	WalkSpeed    float64 // cells per second
	HungerPeriod int     // ticks per point of hunger lost
	RegenPeriod  int     // ticks per health point regained when fed
	LavaDamage   float64 // per tick in contact
	FaunaRadius  int     // cells within which animals count as nearby
}

func DefaultBodyConfig() BodyConfig {
	return BodyConfig{
		TickRate:     20,
		WalkSpeed:    4.3,
		HungerPeriod: 600,
		RegenPeriod:  80,
		LavaDamage:   2,
		FaunaRadius:  16,
	}
}

// Body is a minimal kinematic agent used to run the engine headless: it
// walks, steps up one cell when jumping, falls, digs and eats. On a world
// that implements world.Fauna it also sees animals and catches any it walks
// onto. It is not safe for concurrent use.
type Body struct {
	cfg   BodyConfig
	w     World
	x, z  float64
	y     int
	state State
	ticks int
	fell  int
}

// NewBody places a body at spawn with full health and hunger.
func NewBody(w World, spawn world.Coord, inv item.Inventory, cfg BodyConfig) *Body {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 20
	}
	if inv == nil {
		inv = item.Inventory{}
	}
	b := &Body{
		cfg: cfg,
		w:   w,
		x:   float64(spawn.X) + 0.5,
		z:   float64(spawn.Z) + 0.5,
		y:   spawn.Y,
		state: State{
			Position:  spawn,
			Health:    MaxHealth,
			Hunger:    MaxHunger,
			Inventory: inv,
		},
	}
	b.refresh()
	return b
}

// State implements Source.
func (b *Body) State() State {
	s := b.state
	s.Inventory = b.state.Inventory.Clone()
	return s
}

// SetVitals overrides health and hunger.
func (b *Body) SetVitals(health float64, hunger int) {
	b.state.Health = health
	b.state.Hunger = hunger
}

// Inventory exposes the live inventory for hosts that grant items.
func (b *Body) Inventory() item.Inventory { return b.state.Inventory }

// Apply advances the body by one tick under in.
func (b *Body) Apply(in Input) {
	b.ticks++
	for _, c := range in.Dig {
		if m := b.w.MaterialAt(c); m.Breakable() || m.FoodSource() {
			b.w.Set(c, world.MaterialAir)
			b.collect(m)
		}
	}
	if in.Place != nil {
		b.place(*in.Place)
	}
	if in.Teleport != nil && b.state.Inventory.Take(item.EnderPearl, 1) {
		b.moveTo(*in.Teleport)
	}
	if in.Consume != "" {
		b.consume(in.Consume)
	}
	if in.Craft != nil {
		b.state.Inventory.Craft(*in.Craft)
	}
	if !in.Heading.IsZero() {
		b.state.Heading = in.Heading
	}

	prev := b.state.Position
	if in.Forward && !in.Heading.IsZero() {
		b.walk(in.Heading, in.Jump)
	} else if in.Jump {
		b.climb()
	}
	b.fall()
	b.vitals()
	b.refresh()

	dt := float64(b.cfg.TickRate)
	b.state.Velocity = Velocity{
		X: float64(b.state.Position.X-prev.X) * dt,
		Y: float64(b.state.Position.Y-prev.Y) * dt,
		Z: float64(b.state.Position.Z-prev.Z) * dt,
	}
}

func (b *Body) walk(h world.Heading, jump bool) {
	step := b.cfg.WalkSpeed / float64(b.cfg.TickRate)
	nx, nz := b.x+h.X*step, b.z+h.Z*step
	cur := b.cell()
	next := world.Coord{X: int(math.Floor(nx)), Y: b.y, Z: int(math.Floor(nz))}
	if next == cur {
		b.x, b.z = nx, nz
		return
	}
	switch {
	case world.Clear(b.w, next) && !b.w.MaterialAt(next).Hazard():
		b.x, b.z = nx, nz
	case jump && world.Clear(b.w, next.Up()) && b.w.MaterialAt(cur.Add(0, 2, 0)).Passable():
		b.x, b.z = nx, nz
		b.y++
	}
}

func (b *Body) climb() {
	cur := b.cell()
	if b.state.TouchingLiquid && b.w.MaterialAt(cur.Add(0, 2, 0)).Passable() {
		b.y++
	}
}

// place sets p.Item into p.At when the cell is open and the item is held.
// Emptying a water bucket leaves the bucket.
func (b *Body) place(p Placement) {
	m, ok := placedMaterial[p.Item]
	if !ok || !b.w.MaterialAt(p.At).Passable() || b.w.MaterialAt(p.At).Liquid() {
		return
	}
	if !b.state.Inventory.Take(p.Item, 1) {
		return
	}
	b.w.Set(p.At, m)
	if p.Item == item.WaterBucket {
		b.state.Inventory.Add(item.Bucket, 1)
	}
}

func (b *Body) fall() {
	below := b.cell().Down()
	if b.state.TouchingLiquid {
		b.fell = 0
		return
	}
	if b.w.MaterialAt(below).Passable() {
		b.y--
		b.fell++
		return
	}
	if b.fell > 3 {
		b.state.Health -= float64(b.fell - 3)
	}
	b.fell = 0
}

func (b *Body) vitals() {
	if b.cfg.HungerPeriod > 0 && b.ticks%b.cfg.HungerPeriod == 0 && b.state.Hunger > 0 {
		b.state.Hunger--
	}
	if b.cfg.RegenPeriod > 0 && b.ticks%b.cfg.RegenPeriod == 0 {
		switch {
		case b.state.Hunger >= 18:
			b.state.Health = math.Min(MaxHealth, b.state.Health+1)
		case b.state.Hunger == 0:
			b.state.Health = math.Max(1, b.state.Health-1)
		}
	}
	c := b.cell()
	if b.w.MaterialAt(c).Hazard() || b.w.MaterialAt(c.Down()) == world.MaterialMagma {
		b.state.Health = math.Max(0, b.state.Health-b.cfg.LavaDamage)
	}
}

func (b *Body) consume(it item.Item) {
	switch {
	case it.Edible() && b.state.Inventory.Take(it, 1):
		b.state.Hunger = min(MaxHunger, b.state.Hunger+it.Value())
	case it.Heals() && b.state.Inventory.Take(it, 1):
		b.state.Health = math.Min(MaxHealth, b.state.Health+float64(it.Value()))
	}
}

func (b *Body) collect(m world.Material) {
	switch {
	case m.Wood():
		b.state.Inventory.Add(item.Log, 1)
	case m.Rock():
		b.state.Inventory.Add(item.Cobblestone, 1)
	case m == world.MaterialWheat:
		b.state.Inventory.Add(item.Wheat, 1)
	case m == world.MaterialCarrots:
		b.state.Inventory.Add(item.Carrot, 1)
	case m == world.MaterialBerryBush:
		b.state.Inventory.Add(item.SweetBerries, 2)
	case m == world.MaterialMelon:
		b.state.Inventory.Add(item.MelonSlice, 3)
	case m == world.MaterialDirt || m == world.MaterialGrass:
		b.state.Inventory.Add(item.Dirt, 1)
	}
}

func (b *Body) moveTo(c world.Coord) {
	b.x, b.z, b.y = float64(c.X)+0.5, float64(c.Z)+0.5, c.Y
}

func (b *Body) cell() world.Coord {
	return world.Coord{X: int(math.Floor(b.x)), Y: b.y, Z: int(math.Floor(b.z))}
}

func (b *Body) refresh() {
	c := b.cell()
	b.state.Position = c
	feet, head := b.w.MaterialAt(c), b.w.MaterialAt(c.Up())
	b.state.TouchingLiquid = feet.Liquid() || head.Liquid()
	b.state.OnGround = b.w.MaterialAt(c.Down()).Support()
	if f, ok := b.w.(world.Fauna); ok {
		if f.Catch(c) {
			b.state.Inventory.Add(item.RawBeef, 1)
		}
		b.state.NearbyFauna = f.FaunaNear(c, b.cfg.FaunaRadius)
	}
}
