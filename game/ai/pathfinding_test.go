package ai

import (
	"math"
	"testing"
	"time"

	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/testutil/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozen() time.Time { return time.Unix(0, 0) }

func steppingClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestSearch_FlatCorridor(t *testing.T) {
	for _, strat := range []Strategy{StrategyFull, StrategyLightweight} {
		t.Run(strat.String(), func(t *testing.T) {
			g := voxel.Corridor(0, 100, 63, 2)
			s := NewSearcher(g, DefaultSearchConfig(strat)).WithClock(frozen)

			start, goal := world.C(0, 64, 0), world.C(100, 64, 0)
			res := s.Search(start, goal)
			require.True(t, res.OK(), "termination=%s", res.Termination)
			require.NotEmpty(t, res.Path)

			assert.Equal(t, start, res.Path[0])
			assert.LessOrEqual(t, res.Path[len(res.Path)-1].DistSq(goal), 10)
			for i := 1; i < len(res.Path); i++ {
				assert.GreaterOrEqual(t, res.Path[i].X, res.Path[i-1].X, "x decreased at %d", i)
				assert.False(t, math.IsInf(s.EdgeCost(res.Path[i-1], res.Path[i]), 1), "illegal step %d", i)
			}
			assert.False(t, math.IsInf(s.PathCost(res.Path), 1))
		})
	}
}

func TestSearch_LightweightUsesCardinalSteps(t *testing.T) {
	g := voxel.FlatWorld(30, 63)
	s := NewSearcher(g, DefaultSearchConfig(StrategyLightweight)).WithClock(frozen)
	res := s.Search(world.C(0, 64, 0), world.C(12, 64, 12))
	require.True(t, res.OK())
	for i := 1; i < len(res.Path); i++ {
		d := res.Path[i].Sub(res.Path[i-1])
		assert.Equal(t, 1, abs(d.X)+abs(d.Z), "step %d is %v", i, d)
	}
}

func TestSearch_SealedGoalFails(t *testing.T) {
	g := voxel.FlatWorld(30, 63)
	goal := world.C(20, 64, 0)
	voxel.Seal(g, goal, 3)

	cfg := DefaultSearchConfig(StrategyFull)
	res := NewSearcher(g, cfg).WithClock(frozen).Search(world.C(0, 64, 0), goal)
	assert.False(t, res.OK())
	assert.Empty(t, res.Path)
	assert.LessOrEqual(t, res.Expanded, cfg.Budget.MaxNodes)
	assert.Contains(t, []Termination{Exhausted, NodeBudget}, res.Termination)
}

func TestSearch_NodeBudget(t *testing.T) {
	g := voxel.FlatWorld(200, 63)
	cfg := DefaultSearchConfig(StrategyFull)
	cfg.Budget = Budget{MaxNodes: 50}
	res := NewSearcher(g, cfg).WithClock(frozen).Search(world.C(0, 64, 0), world.C(1000, 64, 0))
	assert.Equal(t, NodeBudget, res.Termination)
	assert.Equal(t, 50, res.Expanded)
	assert.Empty(t, res.Path)
}

func TestSearch_TimeBudget(t *testing.T) {
	g := voxel.FlatWorld(200, 63)
	cfg := DefaultSearchConfig(StrategyFull)
	cfg.Budget = Budget{MaxNodes: 100000, MaxDuration: 10 * time.Millisecond}
	res := NewSearcher(g, cfg).WithClock(steppingClock(time.Millisecond)).Search(world.C(0, 64, 0), world.C(1000, 64, 0))
	assert.Equal(t, TimeBudget, res.Termination)
	assert.Less(t, res.Expanded, 20)
	assert.GreaterOrEqual(t, res.Elapsed, 10*time.Millisecond)
	assert.Empty(t, res.Path)
}

func TestSearch_InvalidStart(t *testing.T) {
	g := voxel.FlatWorld(10, 63)
	res := NewSearcher(g, DefaultSearchConfig(StrategyFull)).WithClock(frozen).Search(world.C(0, 63, 0), world.C(5, 64, 0))
	assert.Equal(t, InvalidStart, res.Termination)
}

func TestEdgeCost(t *testing.T) {
	base := func() *world.Grid { return voxel.FlatWorld(10, 63) }
	inf := math.Inf(1)
	from := world.C(0, 64, 0)

	tests := []struct {
		name  string
		setup func(g *world.Grid)
		strat Strategy
		to    world.Coord
		want  float64
	}{
		{"flat", nil, StrategyFull, world.C(1, 64, 0), 1},
		{"diagonal", nil, StrategyFull, world.C(1, 64, 1), math.Sqrt2},
		{"diagonal lightweight", nil, StrategyLightweight, world.C(1, 64, 1), inf},
		{"not adjacent", nil, StrategyFull, world.C(2, 64, 0), inf},
		{"step up", func(g *world.Grid) { g.Set(world.C(1, 64, 0), world.MaterialStone) }, StrategyFull, world.C(1, 65, 0), 3},
		{"step up without headroom", func(g *world.Grid) {
			g.Set(world.C(1, 64, 0), world.MaterialStone)
			g.Set(world.C(0, 66, 0), world.MaterialStone)
		}, StrategyFull, world.C(1, 65, 0), inf},
		{"into wall", func(g *world.Grid) { g.Set(world.C(1, 64, 0), world.MaterialStone) }, StrategyFull, world.C(1, 64, 0), inf},
		{"low ceiling", func(g *world.Grid) { g.Set(world.C(1, 65, 0), world.MaterialStone) }, StrategyFull, world.C(1, 64, 0), inf},
		{"soft vegetation", func(g *world.Grid) { g.Set(world.C(1, 64, 0), world.MaterialTallGrass) }, StrategyFull, world.C(1, 64, 0), 1},
		{"lava", func(g *world.Grid) { g.Set(world.C(1, 64, 0), world.MaterialLava) }, StrategyFull, world.C(1, 64, 0), inf},
		{"magma floor", func(g *world.Grid) { g.Set(world.C(1, 63, 0), world.MaterialMagma) }, StrategyFull, world.C(1, 64, 0), inf},
		{"no support", func(g *world.Grid) { g.Set(world.C(1, 63, 0), world.MaterialAir) }, StrategyFull, world.C(1, 64, 0), inf},
		{"corner cut", func(g *world.Grid) { g.Set(world.C(1, 64, 0), world.MaterialStone) }, StrategyFull, world.C(1, 64, 1), inf},
		{"unloaded", nil, StrategyFull, world.C(11, 64, 0), inf},
		{"drop three", func(g *world.Grid) {
			g.Fill(world.NewBox(world.C(1, 61, 0), world.C(1, 63, 0)), world.MaterialAir)
		}, StrategyFull, world.C(1, 61, 0), 2.5},
		{"drop four", func(g *world.Grid) {
			g.Fill(world.NewBox(world.C(1, 60, 0), world.C(1, 63, 0)), world.MaterialAir)
		}, StrategyFull, world.C(1, 60, 0), inf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base()
			if tt.setup != nil {
				tt.setup(g)
			}
			s := NewSearcher(g, DefaultSearchConfig(tt.strat))
			got := s.EdgeCost(from, tt.to)
			if math.IsInf(tt.want, 1) {
				assert.True(t, math.IsInf(got, 1), "got %v", got)
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSearch_FallsIntoPit(t *testing.T) {
	g := voxel.FlatWorld(20, 63)
	// A 3-deep pit whose only exit is falling in.
	g.Fill(world.NewBox(world.C(5, 61, -1), world.C(7, 63, 1)), world.MaterialAir)
	s := NewSearcher(g, DefaultSearchConfig(StrategyFull)).WithClock(frozen)
	res := s.Search(world.C(0, 64, 0), world.C(6, 61, 0))
	require.True(t, res.OK(), "termination=%s", res.Termination)
	last := res.Path[len(res.Path)-1]
	assert.Equal(t, 61, last.Y, "ends on the pit floor")
	assert.LessOrEqual(t, last.DistSq(world.C(6, 61, 0)), 10)
}

func TestSearch_ClimbsOneCellAtATime(t *testing.T) {
	wall := func() *world.Grid {
		g := voxel.FlatWorld(30, 63)
		g.Fill(world.NewBox(world.C(3, 64, -30), world.C(30, 65, 30)), world.MaterialStone)
		return g
	}

	g := wall()
	s := NewSearcher(g, DefaultSearchConfig(StrategyFull)).WithClock(frozen)
	assert.True(t, math.IsInf(s.EdgeCost(world.C(2, 64, 0), world.C(3, 66, 0)), 1))
	assert.False(t, s.Search(world.C(0, 64, 0), world.C(10, 66, 0)).OK(), "two-cell wall has no legal climb")

	g = wall()
	g.Fill(world.NewBox(world.C(2, 64, -30), world.C(2, 64, 30)), world.MaterialStone)
	s = NewSearcher(g, DefaultSearchConfig(StrategyFull)).WithClock(frozen)
	res := s.Search(world.C(0, 64, 0), world.C(10, 66, 0))
	require.True(t, res.OK(), "termination=%s", res.Termination)
	for i := 1; i < len(res.Path); i++ {
		assert.LessOrEqual(t, res.Path[i].Y-res.Path[i-1].Y, 1, "step %d climbs %v -> %v", i, res.Path[i-1], res.Path[i])
	}
}

func TestSmooth_DropsCollinearPoints(t *testing.T) {
	p := []world.Coord{
		world.C(0, 64, 0), world.C(1, 64, 0), world.C(2, 64, 0), world.C(3, 64, 0),
		world.C(3, 64, 1), world.C(3, 64, 2),
	}
	got := Smooth(p)
	assert.Equal(t, []world.Coord{world.C(0, 64, 0), world.C(3, 64, 0), world.C(3, 64, 2)}, got)
	assert.Len(t, p, 6, "input untouched")
}

func TestSmooth_Idempotent(t *testing.T) {
	g := voxel.FlatWorld(40, 63)
	g.Fill(world.NewBox(world.C(10, 64, -20), world.C(11, 66, 15)), world.MaterialStone)
	res := NewSearcher(g, DefaultSearchConfig(StrategyFull)).WithClock(frozen).Search(world.C(0, 64, 0), world.C(25, 64, 0))
	require.True(t, res.OK())

	once := Smooth(res.Path)
	assert.Equal(t, once, Smooth(once))
	assert.Equal(t, res.Path[0], once[0])
	assert.Equal(t, res.Path[len(res.Path)-1], once[len(once)-1])

	for _, p := range [][]world.Coord{nil, {world.C(1, 2, 3)}, {world.C(0, 0, 0), world.C(1, 0, 0)}} {
		assert.Equal(t, Smooth(p), Smooth(Smooth(p)))
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
