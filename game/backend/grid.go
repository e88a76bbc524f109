package backend

import (
	"math"
	"time"

	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/world"
	"go.uber.org/zap"
)

// GridName identifies the built-in backend.
const GridName = "grid"

// walkSpeed is the agent's ground speed in cells per second, used for ETAs.
const walkSpeed = 4.3

// Grid plans with the in-process A*. Long targets are approached through a
// local goal at most Horizon cells ahead, re-planned as the agent advances.
type Grid struct {
	cfg      Config
	q        world.Query
	searcher *ai.Searcher
	logger   *zap.Logger

	target    world.Coord
	hasTarget bool
	path      []world.Coord
	idx       int
	local     world.Coord
	failures  int
	searching bool
	lastPlan  time.Time
	last      ai.Result
}

// NewGrid returns a grid backend searching through s. q should be the same
// guarded view the searcher reads.
func NewGrid(q world.Query, s *ai.Searcher, cfg Config, logger *zap.Logger) *Grid {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grid{cfg: cfg, q: q, searcher: s, logger: logger}
}

func (g *Grid) Name() string    { return GridName }
func (g *Grid) Available() bool { return g.searcher != nil }

func (g *Grid) PlanTo(target world.Coord) error {
	if !g.Available() {
		return ErrUnavailable
	}
	g.target, g.hasTarget = target, true
	g.path, g.idx = nil, 0
	g.failures = 0
	g.searching = true
	g.lastPlan = time.Time{}
	return nil
}

func (g *Grid) Tick(now time.Time, pos world.Coord) {
	if !g.hasTarget {
		return
	}
	if pos.DistSq(g.target) < g.cfg.ArrivalSq {
		g.path, g.idx, g.searching = nil, 0, false
		return
	}
	g.idx = follow(g.path, g.idx, pos)
	if g.idx < len(g.path) && !g.offPath(pos) {
		return
	}
	g.searching = true
	if !g.lastPlan.IsZero() && now.Sub(g.lastPlan) < g.cfg.ReplanInterval {
		return
	}
	g.plan(now, pos)
}

func (g *Grid) offPath(pos world.Coord) bool {
	return pos.DistSq(g.path[g.idx]) > g.cfg.OffPathSq
}

func (g *Grid) plan(now time.Time, pos world.Coord) {
	g.lastPlan = now
	g.local = g.localGoal(pos)
	res := g.searcher.Search(pos, g.local)
	g.last = res
	if !res.OK() || len(res.Path) < 2 {
		g.failures++
		g.path, g.idx = nil, 0
		g.logger.Debug("grid search failed",
			zap.Stringer("from", pos),
			zap.Stringer("goal", g.local),
			zap.Stringer("termination", res.Termination),
			zap.Int("expanded", res.Expanded),
			zap.Int("failures", g.failures),
		)
		return
	}
	g.failures = 0
	g.searching = false
	g.path, g.idx = res.Path, follow(res.Path, 0, pos)
}

// localGoal clips the target to the search horizon and snaps it to a
// standable cell in that column when one is loaded.
func (g *Grid) localGoal(pos world.Coord) world.Coord {
	goal := g.target
	if d := pos.HorizontalDist(g.target); d > float64(g.cfg.Horizon) {
		h := world.HeadingBetween(pos, g.target)
		goal = h.Step(pos, float64(g.cfg.Horizon))
		goal.Y = pos.Y
	}
	if s, ok := world.SurfaceNear(g.q, goal, g.cfg.SurfaceSpan); ok {
		return s
	}
	return goal
}

func (g *Grid) NextStep(pos world.Coord) (world.Heading, bool) {
	if g.idx >= len(g.path) {
		return world.Heading{}, false
	}
	for i := g.idx; i < len(g.path); i++ {
		if h, ok := stepToward(pos, g.path[i]); ok {
			return h, true
		}
	}
	return world.Heading{}, false
}

func (g *Grid) ShouldAscend(pos world.Coord) bool {
	if g.idx >= len(g.path) {
		return false
	}
	return g.path[g.idx].Y > pos.Y
}

func (g *Grid) Cancel() {
	g.hasTarget = false
	g.path, g.idx = nil, 0
	g.searching = false
	g.failures = 0
}

func (g *Grid) Status() Status {
	st := Status{
		Backend:      GridName,
		Available:    g.Available(),
		Searching:    g.searching,
		HasTarget:    g.hasTarget,
		Target:       g.target,
		PathLength:   len(g.path) - g.idx,
		FailureCount: g.failures,
		LastSearch:   g.last.Elapsed,
	}
	if st.PathLength < 0 {
		st.PathLength = 0
	}
	if st.PathLength > 0 {
		st.ETASeconds = math.Round(float64(st.PathLength)/walkSpeed*10) / 10
	}
	return st
}

// Path returns the remaining path, smoothed for display.
func (g *Grid) Path() []world.Coord {
	if g.idx >= len(g.path) {
		return nil
	}
	return ai.Smooth(g.path[g.idx:])
}

// LastResult exposes the most recent search outcome.
func (g *Grid) LastResult() ai.Result { return g.last }
