package terrain

import (
	"testing"

	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/testutil/voxel"
	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleStart = 10
	cfg.SampleStep = 20
	return cfg
}

func TestSampleAt_FlatGround(t *testing.T) {
	s := NewScorer(voxel.FlatWorld(60, 63), testConfig())
	smp := s.SampleAt(world.C(20, 64, 0))
	assert.True(t, smp.Loaded)
	assert.Equal(t, 63, smp.Ground)
	assert.Zero(t, smp.Roughness)
	assert.InDelta(t, 0.5, smp.Score, 1e-9)
}

func TestSampleAt_Elevation(t *testing.T) {
	high := NewScorer(voxel.FlatWorld(20, 90), testConfig())
	assert.InDelta(t, 0.6, high.SampleAt(world.C(0, 91, 0)).Score, 1e-9)

	low := NewScorer(voxel.FlatWorld(20, 30), testConfig())
	assert.InDelta(t, 0.4, low.SampleAt(world.C(0, 31, 0)).Score, 1e-9)
}

func TestSampleAt_Penalties(t *testing.T) {
	g := voxel.FlatWorld(60, 63)
	g.Floor(world.NewBox(world.C(18, 0, -3), world.C(22, 0, 3)), 64, world.MaterialWater)
	g.Set(world.C(-20, 63, 0), world.MaterialLava)

	s := NewScorer(g, testConfig())
	wet := s.SampleAt(world.C(20, 64, 0))
	assert.True(t, wet.Water)
	assert.InDelta(t, 0.2, wet.Score, 1e-9)

	hot := s.SampleAt(world.C(-20, 64, 0))
	assert.True(t, hot.Lava)
	assert.Equal(t, 0.0, hot.Score)
}

func TestSampleAt_Obstacle(t *testing.T) {
	g := voxel.FlatWorld(60, 63)
	g.Fill(world.NewBox(world.C(19, 70, -1), world.C(21, 72, 1)), world.MaterialStone)
	s := NewScorer(g, testConfig())
	smp := s.SampleAt(world.C(20, 64, 0))
	assert.True(t, smp.Obstacle)
	assert.InDelta(t, 0.3, smp.Score, 1e-9)
}

func TestSampleAt_UnloadedAndVoid(t *testing.T) {
	s := NewScorer(voxel.FlatWorld(10, 63), testConfig())
	assert.InDelta(t, 0.3, s.SampleAt(world.C(50, 64, 0)).Score, 1e-9)

	void := world.NewGrid(world.MaterialAir)
	assert.InDelta(t, 0.1, NewScorer(void, testConfig()).SampleAt(world.C(0, 64, 0)).Score, 1e-9)
}

func TestScore_AveragesAndClamps(t *testing.T) {
	s := NewScorer(voxel.FlatWorld(60, 63), testConfig())
	sc := s.Score(world.C(0, 64, 0), world.NewHeading(1, 0), 50)
	assert.InDelta(t, 0.5, sc, 1e-9)

	// No sample fits inside the distance.
	assert.InDelta(t, 0.5, s.Score(world.C(0, 64, 0), world.NewHeading(1, 0), 5), 1e-9)

	// Falling off the loaded area mixes in the unloaded score.
	sc = s.Score(world.C(0, 64, 0), world.NewHeading(1, 0), 90)
	assert.InDelta(t, (0.5*3+0.3*2)/5, sc, 1e-9)
}

func TestBest_AvoidsLava(t *testing.T) {
	g := voxel.FlatWorld(60, 63)
	g.Fill(world.NewBox(world.C(-55, 63, -3), world.C(-5, 63, 3)), world.MaterialLava)
	s := NewScorer(g, testConfig())

	east, west := world.NewHeading(1, 0), world.NewHeading(-1, 0)
	best, score := s.Best(world.C(0, 64, 0), []world.Heading{west, east}, 50)
	assert.Equal(t, east, best)
	assert.InDelta(t, 0.5, score, 1e-9)

	h, _ := s.Best(world.C(0, 64, 0), nil, 50)
	assert.True(t, h.IsZero())
}
