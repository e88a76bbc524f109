// Package sim closes the loop between the engine and a simulated body so
// the pilot can run headless.
package sim

import (
	"sync"
	"time"

	"github.com/kasuganosora/voxelpilot/game/pilot"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// Anchored is implemented by worlds that stream terrain around the agent.
type Anchored interface {
	SetAnchor(c world.Coord)
}

// Driver feeds every engine intent to a body. Step, Start and Stop are
// safe to call from different goroutines.
type Driver struct {
	mu     sync.Mutex
	w      player.World
	body   *player.Body
	engine *pilot.Engine
	ticks  uint64
	last   pilot.Intent
}

func NewDriver(w player.World, body *player.Body, e *pilot.Engine) *Driver {
	d := &Driver{w: w, body: body, engine: e}
	d.anchor()
	return d
}

func (d *Driver) Engine() *pilot.Engine { return d.engine }

// Step runs one engine tick and applies the resulting intent to the body.
func (d *Driver) Step(now time.Time) pilot.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks++
	in := d.engine.Tick(now)
	d.body.Apply(ToInput(in))
	d.anchor()
	d.last = in
	return in
}

// Start begins a mission along the body's current heading.
func (d *Driver) Start(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.Start(now)
}

// StartWithHeading begins a mission along h.
func (d *Driver) StartWithHeading(now time.Time, h world.Heading) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.StartWithHeading(now, h)
}

func (d *Driver) Stop(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.Stop(now)
}

// SetVitals overrides the body's health and hunger between ticks.
func (d *Driver) SetVitals(health float64, hunger int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.body.SetVitals(health, hunger)
}

// Ticks reports how many steps have run.
func (d *Driver) Ticks() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}

// Last returns the most recent intent.
func (d *Driver) Last() pilot.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Driver) anchor() {
	if a, ok := d.w.(Anchored); ok {
		a.SetAnchor(d.body.State().Position)
	}
}

// ToInput lowers an intent to body controls.
func ToInput(in pilot.Intent) player.Input {
	return player.Input{
		Heading:  in.Heading,
		Forward:  in.Forward,
		Jump:     in.Jump,
		Dig:      in.Dig,
		Consume:  in.Consume,
		Craft:    in.Craft,
		Teleport: in.Teleport,
		Place:    in.Place,
	}
}
