package sim

import (
	"testing"
	"time"

	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/pilot"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/testutil/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Unix(1_700_000_000, 0)

const tick = 50 * time.Millisecond

type anchoredGrid struct {
	*world.Grid
	anchors []world.Coord
}

func (g *anchoredGrid) SetAnchor(c world.Coord) { g.anchors = append(g.anchors, c) }

type eventLog struct{ events []pilot.Event }

func (l *eventLog) Record(e pilot.Event) { l.events = append(l.events, e) }

func (l *eventLog) count(typ string) int {
	n := 0
	for _, e := range l.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func supplies() item.Inventory {
	return item.NewInventory(map[item.Item]int{item.Bread: 10, item.WoodenPickaxe: 1})
}

func newDriver(t *testing.T, w player.World, inv item.Inventory) (*Driver, *player.Body, *eventLog) {
	t.Helper()
	body := player.NewBody(w, world.C(0, 64, 0), inv, player.DefaultBodyConfig())
	opts := pilot.DefaultOptions()
	opts.Navigator.ScoringEnabled = false
	e := pilot.Assemble(w, body, nil, opts, zap.NewNop(), nil)
	log := &eventLog{}
	e.SetSink(log)
	return NewDriver(w, body, e), body, log
}

func run(d *Driver, from time.Time, n int) time.Time {
	now := from
	for i := 0; i < n; i++ {
		now = now.Add(tick)
		d.Step(now)
	}
	return now
}

func TestDriver_TravelsAcrossFlatGround(t *testing.T) {
	d, body, log := newDriver(t, voxel.FlatWorld(300, 63), supplies())

	d.StartWithHeading(t0, world.NewHeading(1, 0))
	run(d, t0, 400)

	pos := body.State().Position
	assert.Greater(t, pos.X, 40)
	assert.Equal(t, 64, pos.Y)
	assert.Equal(t, uint64(400), d.Ticks())
	assert.Equal(t, pilot.ModeTravel, d.Last().Mode)
	assert.Equal(t, 1, log.count(pilot.EventMissionStarted))
	assert.Zero(t, log.count(pilot.EventRecoveryStarted))
	assert.InDelta(t, float64(pos.X), d.Engine().Status().Distance, 2)
}

func TestDriver_DigsOutOfPocket(t *testing.T) {
	g := voxel.FlatWorld(200, 63)
	for _, l := range world.Lateral4 {
		c := world.C(l.X, 64, l.Z)
		g.Set(c, world.MaterialStone)
		g.Set(c.Up(), world.MaterialStone)
	}
	d, body, log := newDriver(t, g, supplies())

	d.StartWithHeading(t0, world.NewHeading(1, 0))
	run(d, t0, 300)

	assert.GreaterOrEqual(t, log.count(pilot.EventRecoveryStarted), 1)
	assert.GreaterOrEqual(t, log.count(pilot.EventRecoveryEnded), 1)
	assert.Equal(t, world.MaterialAir, g.MaterialAt(world.C(1, 64, 0)))
	assert.Equal(t, world.MaterialAir, g.MaterialAt(world.C(1, 65, 0)))
	assert.Greater(t, body.State().Position.X, 10)
	assert.Equal(t, 2, body.Inventory().Count(item.Cobblestone))
}

func TestDriver_ClimbsStairs(t *testing.T) {
	g := voxel.FlatWorld(200, 63)
	g.Fill(world.NewBox(world.C(5, 64, -60), world.C(200, 64, 60)), world.MaterialStone)
	g.Fill(world.NewBox(world.C(12, 65, -60), world.C(200, 65, 60)), world.MaterialStone)
	d, body, _ := newDriver(t, g, supplies())

	d.StartWithHeading(t0, world.NewHeading(1, 0))
	run(d, t0, 400)

	pos := body.State().Position
	assert.Greater(t, pos.X, 20)
	assert.Equal(t, 66, pos.Y)
}

func TestDriver_HealsThroughCrisis(t *testing.T) {
	inv := supplies()
	inv.Add(item.GoldenApple, 1)
	d, body, log := newDriver(t, voxel.FlatWorld(100, 63), inv)

	d.StartWithHeading(t0, world.NewHeading(1, 0))
	d.SetVitals(4, player.MaxHunger)

	now := t0.Add(tick)
	in := d.Step(now)
	require.Equal(t, pilot.ModeCrisis, in.Mode)
	assert.Equal(t, item.GoldenApple, in.Consume)
	assert.InDelta(t, 12, body.State().Health, 1e-9)
	assert.Zero(t, body.Inventory().Count(item.GoldenApple))

	in = d.Step(now.Add(tick))
	assert.Equal(t, pilot.ModeTravel, in.Mode)
	assert.Equal(t, 1, log.count(pilot.EventCrisisStarted))
	assert.Equal(t, 1, log.count(pilot.EventCrisisEnded))
}

func TestDriver_MovesAnchor(t *testing.T) {
	w := &anchoredGrid{Grid: voxel.FlatWorld(100, 63)}
	d, body, _ := newDriver(t, w, supplies())
	require.Len(t, w.anchors, 1)
	assert.Equal(t, world.C(0, 64, 0), w.anchors[0])

	d.StartWithHeading(t0, world.NewHeading(1, 0))
	run(d, t0, 20)
	require.Len(t, w.anchors, 21)
	assert.Equal(t, body.State().Position, w.anchors[20])
}

func TestToInput(t *testing.T) {
	dest := world.C(3, 70, 3)
	in := pilot.Intent{
		Mode:     pilot.ModeRecovery,
		Heading:  world.NewHeading(0, 1),
		Forward:  true,
		Jump:     true,
		Dig:      []world.Coord{world.C(0, 65, 0)},
		Consume:  item.Bread,
		Teleport: &dest,
	}
	got := ToInput(in)
	assert.Equal(t, in.Heading, got.Heading)
	assert.True(t, got.Forward)
	assert.True(t, got.Jump)
	assert.Equal(t, in.Dig, got.Dig)
	assert.Equal(t, item.Bread, got.Consume)
	assert.Equal(t, &dest, got.Teleport)
	assert.Nil(t, got.Craft)
}

// ledge is a one-cell pillar at the spawn, 23 cells above a stone floor.
func ledge() *world.Grid {
	g := world.NewGrid(world.MaterialAir)
	g.Floor(world.NewBox(world.C(-20, 0, -20), world.C(20, 0, 20)), 40, world.MaterialStone)
	g.Set(world.C(0, 63, 0), world.MaterialStone)
	return g
}

func stepOff(body *player.Body) {
	for i := 0; i < 20 && body.State().Position.X < 1; i++ {
		body.Apply(player.Input{Heading: world.NewHeading(1, 0), Forward: true})
	}
}

func TestDriver_WaterBucketBreaksLongFall(t *testing.T) {
	g := ledge()
	inv := supplies()
	inv.Add(item.WaterBucket, 1)
	d, body, log := newDriver(t, g, inv)

	stepOff(body)
	require.Equal(t, 63, body.State().Position.Y)
	in := d.Step(t0.Add(tick))
	require.Equal(t, pilot.ModeFall, in.Mode)
	run(d, t0.Add(2*tick), 40)

	s := body.State()
	assert.Equal(t, world.C(1, 41, 0), s.Position)
	assert.Equal(t, world.MaterialWater, g.MaterialAt(world.C(1, 41, 0)))
	assert.Equal(t, player.MaxHealth, s.Health)
	assert.Equal(t, 1, s.Inventory.Count(item.Bucket))
	assert.Equal(t, 1, log.count(pilot.EventFallProtection))
}

func TestDriver_UnprotectedFallHurts(t *testing.T) {
	d, body, log := newDriver(t, ledge(), supplies())

	stepOff(body)
	run(d, t0.Add(tick), 40)

	s := body.State()
	assert.Equal(t, 41, s.Position.Y)
	assert.Less(t, s.Health, 1.0)
	assert.Zero(t, log.count(pilot.EventFallProtection))
}
