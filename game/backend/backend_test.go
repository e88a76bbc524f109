package backend

import (
	"errors"
	"testing"
	"time"

	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/testutil/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var t0 = time.Unix(1_700_000_000, 0)

func newGrid(t *testing.T, q world.Query) *Grid {
	t.Helper()
	s := ai.NewSearcher(q, ai.DefaultSearchConfig(ai.StrategyFull)).WithClock(func() time.Time { return t0 })
	return NewGrid(q, s, DefaultConfig(), zap.NewNop())
}

func TestGrid_PlansTowardHorizon(t *testing.T) {
	g := newGrid(t, voxel.FlatWorld(100, 63))
	start := world.C(0, 64, 0)
	require.NoError(t, g.PlanTo(world.C(500, 64, 0)))
	assert.True(t, g.Status().Searching)

	g.Tick(t0, start)
	st := g.Status()
	require.False(t, st.Searching)
	assert.Greater(t, st.PathLength, 40)
	assert.Greater(t, st.ETASeconds, 0.0)
	assert.Zero(t, st.FailureCount)

	h, ok := g.NextStep(start)
	require.True(t, ok)
	assert.InDelta(t, 1.0, h.X, 1e-9)
	assert.False(t, g.ShouldAscend(start))

	// Walking along the path consumes it.
	before := g.Status().PathLength
	g.Tick(t0.Add(time.Second), world.C(3, 64, 0))
	assert.Less(t, g.Status().PathLength, before)
	assert.NotEmpty(t, g.Path())
}

func TestGrid_ArrivalClearsPath(t *testing.T) {
	g := newGrid(t, voxel.FlatWorld(30, 63))
	require.NoError(t, g.PlanTo(world.C(10, 64, 0)))
	g.Tick(t0, world.C(0, 64, 0))
	require.NotEmpty(t, g.Path())

	g.Tick(t0.Add(time.Second), world.C(9, 64, 1))
	assert.Empty(t, g.Path())
	_, ok := g.NextStep(world.C(9, 64, 1))
	assert.False(t, ok)
}

func TestGrid_FailuresRespectCooldown(t *testing.T) {
	q := voxel.FlatWorld(30, 63)
	goal := world.C(20, 64, 0)
	voxel.Seal(q, goal, 3)
	g := newGrid(t, q)
	require.NoError(t, g.PlanTo(goal))

	g.Tick(t0, world.C(0, 64, 0))
	assert.Equal(t, 1, g.Status().FailureCount)
	g.Tick(t0.Add(100*time.Millisecond), world.C(0, 64, 0))
	assert.Equal(t, 1, g.Status().FailureCount, "cooldown holds")
	g.Tick(t0.Add(1100*time.Millisecond), world.C(0, 64, 0))
	assert.Equal(t, 2, g.Status().FailureCount)
	assert.True(t, g.Status().Searching)

	g.Cancel()
	assert.Zero(t, g.Status().FailureCount)
	assert.False(t, g.Status().HasTarget)
}

type fakeEngine struct {
	available bool
	pathing   bool
	path      []world.Coord
	goals     []world.Coord
	stopped   int
	err       error
}

func (f *fakeEngine) Available() bool { return f.available }
func (f *fakeEngine) SetGoal(c world.Coord) error {
	f.goals = append(f.goals, c)
	if f.err != nil {
		return f.err
	}
	f.pathing = true
	return nil
}
func (f *fakeEngine) IsPathing() bool            { return f.pathing }
func (f *fakeEngine) CurrentPath() []world.Coord { return f.path }
func (f *fakeEngine) ETA() (time.Duration, bool) { return 12 * time.Second, f.pathing }
func (f *fakeEngine) Stop()                      { f.stopped++; f.pathing = false }

func TestExternal_RetriesAndArrival(t *testing.T) {
	eng := &fakeEngine{available: true}
	x := NewExternal("remote", eng, DefaultConfig(), nil)
	target := world.C(100, 64, 0)
	require.NoError(t, x.PlanTo(target))
	eng.path = []world.Coord{world.C(0, 64, 0), world.C(1, 64, 0), world.C(2, 65, 0)}

	x.Tick(t0, world.C(0, 64, 0))
	h, ok := x.NextStep(world.C(0, 64, 0))
	require.True(t, ok)
	assert.InDelta(t, 1.0, h.X, 1e-9)
	assert.Equal(t, 12.0, x.Status().ETASeconds)

	eng.pathing = false
	x.Tick(t0.Add(500*time.Millisecond), world.C(1, 64, 0))
	assert.Zero(t, x.Status().FailureCount)
	assert.True(t, x.ShouldAscend(world.C(1, 64, 0)))
	x.Tick(t0.Add(1500*time.Millisecond), world.C(1, 64, 0))
	assert.Equal(t, 1, x.Status().FailureCount)
	assert.Len(t, eng.goals, 2)

	x.Tick(t0.Add(2*time.Second), world.C(99, 64, 1))
	assert.Equal(t, 1, eng.stopped)
}

func TestExternal_Unavailable(t *testing.T) {
	x := NewExternal("remote", &fakeEngine{}, DefaultConfig(), nil)
	assert.ErrorIs(t, x.PlanTo(world.C(1, 2, 3)), ErrUnavailable)
	assert.False(t, NewExternal("none", nil, DefaultConfig(), nil).Available())
}

func TestSelector_PrefersExternal(t *testing.T) {
	eng := &fakeEngine{available: true}
	grid := newGrid(t, voxel.FlatWorld(60, 63))
	sel := NewSelector(3, nil, nil, NewExternal("remote", eng, DefaultConfig(), nil), grid)
	assert.Equal(t, "remote", sel.Name())

	eng.available = false
	sel.Select()
	assert.Equal(t, GridName, sel.Name())
}

func TestSelector_FailsOverAndReissuesTarget(t *testing.T) {
	eng := &fakeEngine{available: true}
	grid := newGrid(t, voxel.FlatWorld(60, 63))
	sel := NewSelector(3, zap.NewNop(), nil, NewExternal("remote", eng, DefaultConfig(), nil), grid)

	var got []Switch
	sel.SetOnSwitch(func(s Switch) { got = append(got, s) })

	target := world.C(40, 64, 0)
	require.NoError(t, sel.PlanTo(target))
	sel.Tick(t0, world.C(0, 64, 0))
	assert.Equal(t, "remote", sel.Name())

	eng.available = false
	sel.Tick(t0.Add(time.Second), world.C(0, 64, 0))
	require.Len(t, got, 1)
	assert.Equal(t, Switch{From: "remote", To: GridName, Reason: "unavailable"}, got[0])
	assert.Equal(t, GridName, sel.Name())
	assert.Equal(t, target, sel.Status().Target)
	assert.Greater(t, sel.Status().PathLength, 0, "grid planned in the same tick")
	assert.Equal(t, 1, sel.Switches())
}

func TestSelector_RepeatedFailures(t *testing.T) {
	eng := &fakeEngine{available: true, err: errors.New("no route")}
	q := voxel.FlatWorld(60, 63)
	grid := newGrid(t, q)
	x := NewExternal("remote", eng, DefaultConfig(), nil)
	sel := NewSelector(3, nil, nil, x, grid)

	require.NoError(t, sel.PlanTo(world.C(30, 64, 0)))
	assert.Equal(t, "remote", sel.Name(), "one rejection is below the limit")

	now := t0
	for i := 0; i < 4 && sel.Name() == "remote"; i++ {
		now = now.Add(2 * time.Second)
		sel.Tick(now, world.C(0, 64, 0))
	}
	assert.Equal(t, GridName, sel.Name())
}

func TestSelector_LogsRejectedPlanAfterSelect(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	eng := &fakeEngine{}
	sel := NewSelector(3, zap.New(core), nil, NewExternal("remote", eng, DefaultConfig(), nil))

	target := world.C(30, 64, 0)
	assert.ErrorIs(t, sel.PlanTo(target), ErrUnavailable)

	eng.available, eng.err = true, errors.New("no route")
	sel.Tick(t0, world.C(0, 64, 0))
	assert.Equal(t, "remote", sel.Name())
	assert.Equal(t, []world.Coord{target}, eng.goals)

	entries := logs.FilterMessage("re-plan on selected backend failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "remote", entries[0].ContextMap()["backend"])
}

func TestSelector_NoCandidates(t *testing.T) {
	sel := NewSelector(3, nil, nil)
	assert.False(t, sel.Available())
	assert.ErrorIs(t, sel.PlanTo(world.C(0, 0, 0)), ErrUnavailable)
	sel.Tick(t0, world.C(0, 0, 0))
	_, ok := sel.NextStep(world.C(0, 0, 0))
	assert.False(t, ok)
	assert.Equal(t, "none", sel.Status().Backend)
}
