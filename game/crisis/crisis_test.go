package crisis

import (
	"testing"
	"time"

	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/testutil/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Unix(1_700_000_000, 0)

var spawn = world.C(0, 64, 0)

func agent(health float64, hunger int, inv map[item.Item]int) player.State {
	return player.State{Position: spawn, Health: health, Hunger: hunger, Inventory: item.NewInventory(inv)}
}

func stocked() map[item.Item]int {
	return map[item.Item]int{item.Bread: 10, item.WoodenPickaxe: 1}
}

func step(m *Machine, q world.Query, s player.State, now time.Time) Result {
	return m.Step(ai.NewContext(q, s, now, 0))
}

// shelterWorld has an overhang at (5,64,0): a roof two cells up and walls on two sides.
func shelterWorld() *world.Grid {
	g := voxel.FlatWorld(30, 63)
	g.Set(world.C(5, 66, 0), world.MaterialStone)
	g.Set(world.C(6, 64, 0), world.MaterialStone)
	g.Set(world.C(5, 64, 1), world.MaterialStone)
	return g
}

func TestDetect(t *testing.T) {
	m := New(voxel.FlatWorld(10, 63), DefaultConfig(), zap.NewNop(), nil)
	cases := []struct {
		name  string
		state player.State
		want  Kind
	}{
		{"calm", agent(20, 20, stocked()), KindNone},
		{"compound", agent(8, 8, map[item.Item]int{item.Bread: 1, item.WoodenPickaxe: 1}), KindMultiple},
		{"low health", agent(5, 20, stocked()), KindLowHealth},
		{"low hunger", agent(20, 6, stocked()), KindLowHunger},
		{"no food", agent(20, 19, map[item.Item]int{item.WoodenPickaxe: 1}), KindNoFood},
		{"no food but full", agent(20, 20, map[item.Item]int{item.WoodenPickaxe: 1}), KindNone},
		{"no tools", agent(20, 20, map[item.Item]int{item.Bread: 10}), KindNoTools},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Detect(t0, tc.state))
		})
	}
}

func TestLowHealth_Hysteresis(t *testing.T) {
	q := voxel.FlatWorld(30, 63)
	m := New(q, DefaultConfig(), zap.NewNop(), nil)

	var exits []Exit
	now := t0
	for _, h := range []float64{20, 5, 5, 6, 8, 10, 5, 10, 11, 11, 12} {
		s := agent(h, 20, stocked())
		if !m.Active() {
			if k := m.Detect(now, s); k != KindNone {
				require.True(t, m.Activate(now, k, s.Position))
			}
			now = now.Add(time.Second)
			continue
		}
		if res := step(m, q, s, now); res.Exit != ExitNone {
			exits = append(exits, res.Exit)
		}
		now = now.Add(time.Second)
	}

	assert.Equal(t, []Exit{ExitResolved}, exits)
	st := m.Status(now)
	assert.Equal(t, 1, st.Activations)
	assert.Equal(t, 1, st.Resolutions)
	assert.False(t, st.Active)
}

func TestLowHealth_ThresholdDoesNotResolve(t *testing.T) {
	q := voxel.FlatWorld(30, 63)
	m := New(q, DefaultConfig(), zap.NewNop(), nil)
	require.True(t, m.Activate(t0, KindLowHealth, spawn))

	for _, h := range []float64{5, 10} {
		res := step(m, q, agent(h, 20, stocked()), t0)
		assert.Equal(t, ExitNone, res.Exit, "health %v", h)
		assert.True(t, m.Active())
	}
	rec, ok := m.Record()
	require.True(t, ok)
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, KindLowHealth, rec.Kind)
	assert.False(t, m.Activate(t0, KindNoTools, spawn), "one crisis at a time")
}

func TestLowHealth_HandlerOrder(t *testing.T) {
	q := shelterWorld()

	t.Run("heal first", func(t *testing.T) {
		m := New(q, DefaultConfig(), zap.NewNop(), nil)
		m.Activate(t0, KindLowHealth, spawn)
		res := step(m, q, agent(4, 15, map[item.Item]int{item.GoldenApple: 1, item.Bread: 3}), t0)
		assert.Equal(t, ActionUseHealingItem, res.Action.Kind)
		assert.Equal(t, item.GoldenApple, res.Action.Consume)
	})

	t.Run("then eat", func(t *testing.T) {
		m := New(q, DefaultConfig(), zap.NewNop(), nil)
		m.Activate(t0, KindLowHealth, spawn)
		res := step(m, q, agent(4, 15, map[item.Item]int{item.Bread: 3}), t0)
		assert.Equal(t, ActionEatFood, res.Action.Kind)
		assert.Equal(t, item.Bread, res.Action.Consume)
	})

	t.Run("then retreat", func(t *testing.T) {
		m := New(q, DefaultConfig(), zap.NewNop(), nil)
		m.Activate(t0, KindLowHealth, spawn)
		rec, _ := m.Record()
		require.NotNil(t, rec.Shelter)
		assert.Equal(t, world.C(5, 64, 0), rec.Shelter.Pos)

		res := step(m, q, agent(4, 20, nil), t0)
		assert.Equal(t, ActionRetreatToShelter, res.Action.Kind)
		assert.True(t, res.Action.Forward)
		assert.InDelta(t, 1, res.Action.Heading.X, 1e-9)

		at := agent(4, 20, nil)
		at.Position = world.C(5, 64, 0)
		res = step(m, q, at, t0)
		assert.Equal(t, ActionHideAndWait, res.Action.Kind)
		assert.True(t, res.Action.HasTarget)
	})

	t.Run("craft shield without shelter", func(t *testing.T) {
		open := voxel.FlatWorld(30, 63)
		m := New(open, DefaultConfig(), zap.NewNop(), nil)
		m.Activate(t0, KindLowHealth, spawn)
		res := step(m, open, agent(4, 20, map[item.Item]int{item.IronIngot: 1, item.Planks: 6}), t0)
		require.Equal(t, ActionCraftShield, res.Action.Kind)
		assert.Equal(t, item.Shield, res.Action.Craft.Output)

		res = step(m, open, agent(4, 20, nil), t0)
		assert.Equal(t, ActionHideAndWait, res.Action.Kind)
	})
}

func TestFindShelter(t *testing.T) {
	cfg := DefaultScanConfig()

	s, ok := FindShelter(shelterWorld(), spawn, cfg)
	require.True(t, ok)
	assert.True(t, s.Natural)
	assert.Equal(t, world.C(5, 64, 0), s.Pos)

	g := voxel.FlatWorld(30, 63)
	g.Set(world.C(3, 64, 2), world.MaterialDirt)
	s, ok = FindShelter(g, spawn, cfg)
	require.True(t, ok)
	assert.False(t, s.Natural)
	assert.Equal(t, world.C(3, 64, 2), s.Pos)

	_, ok = FindShelter(voxel.FlatWorld(30, 63), spawn, cfg)
	assert.False(t, ok)
}

func TestHunger_HandlerOrder(t *testing.T) {
	open := voxel.FlatWorld(30, 63)

	run := func(q world.Query, s player.State) Action {
		m := New(q, DefaultConfig(), zap.NewNop(), nil)
		m.Activate(t0, KindLowHunger, s.Position)
		return step(m, q, s, t0).Action
	}

	a := run(open, agent(20, 5, map[item.Item]int{item.Apple: 1}))
	assert.Equal(t, ActionEatFood, a.Kind)
	assert.Equal(t, item.Apple, a.Consume)

	hunting := agent(20, 5, nil)
	hunting.NearbyFauna = 2
	assert.Equal(t, ActionHuntAnimal, run(open, hunting).Kind)

	farm := voxel.FlatWorld(30, 63)
	farm.Set(world.C(4, 64, 0), world.MaterialWheat)
	a = run(farm, agent(20, 5, nil))
	assert.Equal(t, ActionGatherFood, a.Kind)
	assert.Equal(t, world.C(4, 64, 0), a.Target)
	assert.True(t, a.Forward)
	assert.Empty(t, a.Dig)

	near := agent(20, 5, nil)
	near.Position = world.C(3, 64, 0)
	a = run(farm, near)
	assert.Equal(t, []world.Coord{world.C(4, 64, 0)}, a.Dig)

	a = run(open, agent(20, 5, map[item.Item]int{item.Wheat: 3}))
	require.Equal(t, ActionCraftFood, a.Kind)
	assert.Equal(t, item.Bread, a.Craft.Output)

	a = run(open, agent(20, 5, nil))
	assert.Equal(t, ActionSearchForFood, a.Kind)
	assert.True(t, a.Forward)
	assert.False(t, a.Heading.IsZero())
}

func TestNoFood_KeepsReserve(t *testing.T) {
	q := voxel.FlatWorld(30, 63)
	m := New(q, DefaultConfig(), zap.NewNop(), nil)
	m.Activate(t0, KindNoFood, spawn)

	res := step(m, q, agent(20, 15, map[item.Item]int{item.Apple: 2}), t0)
	assert.Equal(t, ActionSearchForFood, res.Action.Kind)

	res = step(m, q, agent(20, 6, map[item.Item]int{item.Apple: 2}), t0)
	assert.Equal(t, ActionEatFood, res.Action.Kind)

	res = step(m, q, agent(20, 15, map[item.Item]int{item.Apple: 6}), t0)
	assert.Equal(t, ExitResolved, res.Exit)
}

func TestNoTools_Crafting(t *testing.T) {
	q := voxel.FlatWorld(30, 63)
	run := func(inv map[item.Item]int) Action {
		m := New(q, DefaultConfig(), zap.NewNop(), nil)
		m.Activate(t0, KindNoTools, spawn)
		return step(m, q, agent(20, 20, inv), t0).Action
	}

	cases := []struct {
		name string
		inv  map[item.Item]int
		want item.Item
	}{
		{"pickaxe", map[item.Item]int{item.Planks: 3, item.Stick: 2}, item.WoodenPickaxe},
		{"stone pickaxe preferred", map[item.Item]int{item.Planks: 3, item.Stick: 2, item.Cobblestone: 3}, item.StonePickaxe},
		{"sticks", map[item.Item]int{item.Planks: 8}, item.Stick},
		{"planks", map[item.Item]int{item.Log: 1}, item.Planks},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := run(tc.inv)
			require.Equal(t, ActionCraftTools, a.Kind)
			assert.Equal(t, tc.want, a.Craft.Output)
		})
	}
}

func TestNoTools_Gathering(t *testing.T) {
	wood := voxel.FlatWorld(30, 63)
	wood.Set(world.C(6, 64, 6), world.MaterialLog)
	m := New(wood, DefaultConfig(), zap.NewNop(), nil)
	m.Activate(t0, KindNoTools, spawn)
	res := step(m, wood, agent(20, 20, nil), t0)
	assert.Equal(t, ActionGatherWood, res.Action.Kind)
	assert.Equal(t, world.C(6, 64, 6), res.Action.Target)

	stone := voxel.FlatWorld(30, 63)
	m = New(stone, DefaultConfig(), zap.NewNop(), nil)
	m.Activate(t0, KindNoTools, spawn)
	res = step(m, stone, agent(20, 20, nil), t0)
	assert.Equal(t, ActionGatherStone, res.Action.Kind)
	assert.NotEmpty(t, res.Action.Dig)

	void := world.NewGrid(world.MaterialAir)
	m = New(void, DefaultConfig(), zap.NewNop(), nil)
	m.Activate(t0, KindNoTools, spawn)
	res = step(m, void, agent(20, 20, nil), t0)
	assert.Equal(t, ActionSearchForMaterials, res.Action.Kind)

	res = step(m, void, agent(20, 20, map[item.Item]int{item.StoneAxe: 1}), t0)
	assert.Equal(t, ExitResolved, res.Exit)
}

func TestGiveUp_Rearms(t *testing.T) {
	void := world.NewGrid(world.MaterialAir)
	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.RearmAfter = time.Minute
	m := New(void, cfg, zap.NewNop(), nil)
	s := agent(20, 20, map[item.Item]int{item.Bread: 10})

	require.Equal(t, KindNoTools, m.Detect(t0, s))
	m.Activate(t0, KindNoTools, spawn)
	var res Result
	for i := 0; i < 4; i++ {
		res = step(m, void, s, t0)
	}
	assert.Equal(t, ExitGaveUp, res.Exit)
	assert.Equal(t, ActionGiveUp, res.Action.Kind)
	assert.False(t, m.Active())

	assert.Equal(t, KindNone, m.Detect(t0.Add(30*time.Second), s))
	assert.Equal(t, KindNoTools, m.Detect(t0.Add(2*time.Minute), s))
	assert.Equal(t, 1, m.Status(t0).GiveUps)
}

func TestMultiple(t *testing.T) {
	q := voxel.FlatWorld(30, 63)

	m := New(q, DefaultConfig(), zap.NewNop(), nil)
	m.Activate(t0, KindMultiple, spawn)
	res := step(m, q, agent(8, 8, map[item.Item]int{item.GoldenApple: 1}), t0)
	assert.Equal(t, ActionHideAndWait, res.Action.Kind, "nothing acute yet")

	res = step(m, q, agent(2, 8, map[item.Item]int{item.GoldenApple: 1}), t0)
	assert.Equal(t, ActionUseHealingItem, res.Action.Kind)

	res = step(m, q, agent(8, 2, map[item.Item]int{item.Apple: 1}), t0)
	assert.Equal(t, ActionEatFood, res.Action.Kind)

	res = step(m, q, agent(12, 12, map[item.Item]int{item.Apple: 4}), t0)
	assert.Equal(t, ExitResolved, res.Exit)
}

func TestDeactivate(t *testing.T) {
	m := New(voxel.FlatWorld(10, 63), DefaultConfig(), zap.NewNop(), nil)
	m.Activate(t0, KindLowHunger, spawn)
	m.Deactivate(t0.Add(time.Second))
	assert.False(t, m.Active())
	_, ok := m.Record()
	assert.False(t, ok)
}
