package fall

import (
	"testing"

	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/testutil/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func falling(y int, inv map[item.Item]int) player.State {
	return player.State{
		Position:  world.C(0, y, 0),
		Velocity:  player.Velocity{Y: -20},
		Health:    player.MaxHealth,
		Inventory: item.NewInventory(inv),
	}
}

func TestDangerous(t *testing.T) {
	g := New(voxel.FlatWorld(30, 63), DefaultConfig(), nil, nil)

	drop, ok := g.Dangerous(falling(90, nil))
	assert.True(t, ok)
	assert.Equal(t, 26, drop)

	_, ok = g.Dangerous(falling(70, nil))
	assert.False(t, ok, "short drop")

	slow := falling(90, nil)
	slow.Velocity.Y = -5
	_, ok = g.Dangerous(slow)
	assert.False(t, ok, "slow descent")

	pool := voxel.FlatWorld(30, 63)
	pool.Set(world.C(0, 64, 0), world.MaterialWater)
	_, ok = New(pool, DefaultConfig(), nil, nil).Dangerous(falling(90, nil))
	assert.False(t, ok, "lands in water")

	off := DefaultConfig()
	off.Enabled = false
	_, ok = New(voxel.FlatWorld(30, 63), off, nil, nil).Dangerous(falling(90, nil))
	assert.False(t, ok)
}

func TestCheck_PrefersWaterBucket(t *testing.T) {
	g := New(voxel.FlatWorld(30, 63), DefaultConfig(), nil, nil)

	a, ok := g.Check(falling(90, map[item.Item]int{item.WaterBucket: 1, item.Dirt: 4}))
	require.True(t, ok)
	assert.Equal(t, KindWaterBucket, a.Kind)
	assert.Equal(t, player.Placement{At: world.C(0, 64, 0), Item: item.WaterBucket}, a.Place)
	assert.Equal(t, 26, a.Drop)
	assert.Equal(t, 1, g.Saves())
}

func TestCheck_PlatformOncePerFall(t *testing.T) {
	g := New(voxel.FlatWorld(30, 63), DefaultConfig(), nil, nil)
	inv := map[item.Item]int{item.Cobblestone: 3}

	a, ok := g.Check(falling(90, inv))
	require.True(t, ok)
	assert.Equal(t, KindPlatform, a.Kind)
	assert.Equal(t, player.Placement{At: world.C(0, 89, 0), Item: item.Cobblestone}, a.Place)

	_, ok = g.Check(falling(89, inv))
	assert.False(t, ok, "same fall")

	landed := falling(89, inv)
	landed.Velocity.Y, landed.OnGround = 0, true
	_, ok = g.Check(landed)
	assert.False(t, ok)

	_, ok = g.Check(falling(88, inv))
	assert.True(t, ok, "rearmed after landing")
	assert.Equal(t, 2, g.Saves())
}

func TestCheck_WarnsWhenUnprotected(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := New(voxel.FlatWorld(30, 63), DefaultConfig(), zap.New(core), nil)

	_, ok := g.Check(falling(90, map[item.Item]int{item.Bread: 2}))
	assert.False(t, ok)
	require.Equal(t, 1, logs.FilterMessage("falling with nothing to place").Len())
	assert.Zero(t, g.Saves())
}

func TestCheck_NoGroundInRangeUsesBlock(t *testing.T) {
	g := New(world.NewGrid(world.MaterialAir), DefaultConfig(), nil, nil)

	a, ok := g.Check(falling(64, map[item.Item]int{item.WaterBucket: 1, item.Planks: 1}))
	require.True(t, ok)
	assert.Equal(t, KindPlatform, a.Kind)
	assert.Equal(t, item.Planks, a.Place.Item)
	assert.Equal(t, 31, a.Drop)
}
