package ai

import (
	"container/heap"
	"math"
	"time"

	"github.com/kasuganosora/voxelpilot/game/world"
)

// Strategy selects the neighbour set and default budget of a search.
type Strategy int

const (
	// StrategyLightweight expands the four lateral directions only.
	StrategyLightweight Strategy = iota
	// StrategyFull expands all eight lateral directions.
	StrategyFull
)

func (s Strategy) String() string {
	if s == StrategyFull {
		return "full"
	}
	return "lightweight"
}

// ParseStrategy maps a config string onto a Strategy, defaulting to full.
func ParseStrategy(s string) Strategy {
	if s == "lightweight" || s == "4" {
		return StrategyLightweight
	}
	return StrategyFull
}

// Budget bounds one Search call. Zero fields are unlimited.
type Budget struct {
	MaxNodes    int           `mapstructure:"max_nodes"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

// SearchConfig holds the cost and termination constants of the grid search.
type SearchConfig struct {
	Strategy        Strategy
	Budget          Budget
	GoalToleranceSq int     // stop once this close (squared cells) to the goal
	MaxAscent       int     // highest step up per move; an agent jumps one cell
	MaxDescent      int     // lowest step down per move without falling
	SafeFall        int     // longest drop accepted as an edge
	FallScanDepth   int     // how far below a ledge to look for a landing
	AscentCost      float64 // per cell climbed
	DescentCost     float64 // per cell dropped
	LiquidCost      float64 // surcharge for entering liquid
	VerticalWeight  float64 // heuristic weight of remaining ascent
}

// DefaultSearchConfig returns the constants for strategy s.
func DefaultSearchConfig(s Strategy) SearchConfig {
	cfg := SearchConfig{
		Strategy:        s,
		Budget:          Budget{MaxNodes: 4000, MaxDuration: 50 * time.Millisecond},
		GoalToleranceSq: 10,
		MaxAscent:       1,
		MaxDescent:      1,
		SafeFall:        3,
		FallScanDepth:   10,
		AscentCost:      2,
		DescentCost:     0.5,
		LiquidCost:      1,
		VerticalWeight:  1.5,
	}
	if s == StrategyLightweight {
		cfg.Budget.MaxNodes = 1000
	}
	return cfg
}

// Termination says why a search stopped.
type Termination int

const (
	ReachedGoal Termination = iota
	WithinTolerance
	Exhausted
	NodeBudget
	TimeBudget
	InvalidStart
)

func (t Termination) String() string {
	switch t {
	case ReachedGoal:
		return "reached_goal"
	case WithinTolerance:
		return "within_tolerance"
	case Exhausted:
		return "exhausted"
	case NodeBudget:
		return "node_budget"
	case TimeBudget:
		return "time_budget"
	default:
		return "invalid_start"
	}
}

// Found reports whether the search produced a path.
func (t Termination) Found() bool { return t == ReachedGoal || t == WithinTolerance }

// Result is the outcome of one search. Path runs from start to the cell
// that satisfied the goal, inclusive, and is empty on failure.
type Result struct {
	Path        []world.Coord
	Expanded    int
	Elapsed     time.Duration
	Termination Termination
}

func (r Result) OK() bool { return r.Termination.Found() }

// Searcher runs bounded A* over a world.Query. A Searcher holds no state
// between calls and may be reused.
type Searcher struct {
	cfg   SearchConfig
	world world.Query
	now   func() time.Time
}

// NewSearcher returns a Searcher reading through q.
func NewSearcher(q world.Query, cfg SearchConfig) *Searcher {
	return &Searcher{cfg: cfg, world: q, now: time.Now}
}

// WithClock replaces the wall clock used for the time budget.
func (s *Searcher) WithClock(now func() time.Time) *Searcher {
	s.now = now
	return s
}

func (s *Searcher) Config() SearchConfig { return s.cfg }

// node is an arena slot. parent indexes into the same arena; -1 marks the start.
type node struct {
	pos    world.Coord
	g, f   float64
	parent int32
	closed bool
}

type openEntry struct {
	idx int32
	f   float64
	g   float64
}

type openSet []openEntry

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].g > o[j].g
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(openEntry)) }
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	e := old[n-1]
	*o = old[:n-1]
	return e
}

// Search finds a best-effort path from start toward goal within the budget.
// Budgets are checked on every iteration; exceeding one abandons the search.
func (s *Searcher) Search(start, goal world.Coord) Result {
	began := s.now()
	res := Result{Termination: Exhausted}
	finish := func(t Termination) Result {
		res.Termination = t
		res.Elapsed = s.now().Sub(began)
		return res
	}
	if !s.world.IsLoaded(start) || !world.Clear(s.world, start) {
		return finish(InvalidStart)
	}

	arena := make([]node, 0, 256)
	index := make(map[world.Coord]int32, 256)
	open := &openSet{}

	arena = append(arena, node{pos: start, f: s.heuristic(start, goal), parent: -1})
	index[start] = 0
	heap.Push(open, openEntry{idx: 0, f: arena[0].f})

	budget := s.cfg.Budget
	var scratch []world.Coord
	for open.Len() > 0 {
		if budget.MaxDuration > 0 && s.now().Sub(began) >= budget.MaxDuration {
			return finish(TimeBudget)
		}
		if budget.MaxNodes > 0 && res.Expanded >= budget.MaxNodes {
			return finish(NodeBudget)
		}

		e := heap.Pop(open).(openEntry)
		cur := &arena[e.idx]
		if cur.closed || e.g > cur.g {
			continue
		}
		cur.closed = true
		res.Expanded++

		if cur.pos == goal {
			res.Path = reconstruct(arena, e.idx)
			return finish(ReachedGoal)
		}
		if cur.pos.DistSq(goal) <= s.cfg.GoalToleranceSq {
			res.Path = reconstruct(arena, e.idx)
			return finish(WithinTolerance)
		}

		from, fromG := cur.pos, cur.g
		scratch = s.neighbours(from, scratch[:0])
		for _, to := range scratch {
			cost := s.EdgeCost(from, to)
			if math.IsInf(cost, 1) {
				continue
			}
			g := fromG + cost
			if i, ok := index[to]; ok {
				n := &arena[i]
				if n.closed || g >= n.g {
					continue
				}
				n.g, n.f, n.parent = g, g+s.heuristic(to, goal), e.idx
				heap.Push(open, openEntry{idx: i, f: n.f, g: g})
				continue
			}
			i := int32(len(arena))
			arena = append(arena, node{pos: to, g: g, f: g + s.heuristic(to, goal), parent: e.idx})
			index[to] = i
			heap.Push(open, openEntry{idx: i, f: arena[i].f, g: g})
		}
	}
	return finish(Exhausted)
}

func reconstruct(arena []node, idx int32) []world.Coord {
	var path []world.Coord
	for i := idx; i >= 0; i = arena[i].parent {
		path = append(path, arena[i].pos)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// heuristic is horizontal distance plus weighted remaining ascent. It never
// exceeds the true remaining cost, so found paths stay cost-optimal.
func (s *Searcher) heuristic(a, goal world.Coord) float64 {
	h := a.HorizontalDist(goal)
	if dy := goal.Y - a.Y; dy > 0 {
		h += float64(dy) * s.cfg.VerticalWeight
	} else {
		h += float64(-dy) * s.cfg.DescentCost
	}
	return h
}

// neighbours appends the candidate cells reachable from c in one move.
// Walking off a ledge yields the landing cell found below it.
func (s *Searcher) neighbours(c world.Coord, out []world.Coord) []world.Coord {
	dirs := world.Lateral8[:]
	if s.cfg.Strategy == StrategyLightweight {
		dirs = world.Lateral4[:]
	}
	for _, d := range dirs {
		for dy := s.cfg.MaxAscent; dy >= -s.cfg.MaxDescent; dy-- {
			out = append(out, c.Add(d.X, dy, d.Z))
		}
		edge := c.Add(d.X, 0, d.Z)
		if !world.Clear(s.world, edge) || world.Standable(s.world, edge) {
			continue
		}
		for depth := s.cfg.MaxDescent + 1; depth <= s.cfg.FallScanDepth; depth++ {
			p := edge.Add(0, -depth, 0)
			m := s.world.MaterialAt(p)
			if !m.Passable() {
				break
			}
			if world.Standable(s.world, p) || m == world.MaterialWater {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// EdgeCost is the cost of moving from one cell to an adjacent column, or
// +Inf when the move is not legal.
func (s *Searcher) EdgeCost(from, to world.Coord) float64 {
	inf := math.Inf(1)
	dx, dy, dz := to.X-from.X, to.Y-from.Y, to.Z-from.Z
	if dx < -1 || dx > 1 || dz < -1 || dz > 1 || (dx == 0 && dz == 0) {
		return inf
	}
	diagonal := dx != 0 && dz != 0
	if diagonal && s.cfg.Strategy == StrategyLightweight {
		return inf
	}
	if dy > s.cfg.MaxAscent || -dy > s.cfg.SafeFall {
		return inf
	}

	q := s.world
	if !q.IsLoaded(to) || !q.IsLoaded(to.Up()) {
		return inf
	}
	feet, head := q.MaterialAt(to), q.MaterialAt(to.Up())
	if !feet.Passable() || !head.Passable() {
		return inf
	}
	if feet.Hazard() || head.Hazard() {
		return inf
	}
	below := q.MaterialAt(to.Down())
	if below.Hazard() {
		return inf
	}
	if !below.Support() && feet != world.MaterialWater {
		return inf
	}

	// Headroom above the start column while climbing, and a clear shaft
	// above the landing while dropping.
	for y := from.Y + 2; y <= to.Y+1; y++ {
		if !q.MaterialAt(world.Coord{X: from.X, Y: y, Z: from.Z}).Passable() {
			return inf
		}
	}
	for y := to.Y + 2; y <= from.Y+1; y++ {
		m := q.MaterialAt(world.Coord{X: to.X, Y: y, Z: to.Z})
		if !m.Passable() || m.Hazard() {
			return inf
		}
	}
	if diagonal {
		top := max(from.Y, to.Y)
		if !world.Clear(q, world.Coord{X: from.X + dx, Y: top, Z: from.Z}) ||
			!world.Clear(q, world.Coord{X: from.X, Y: top, Z: from.Z + dz}) {
			return inf
		}
	}

	cost := math.Sqrt(float64(dx*dx + dz*dz))
	if dy > 0 {
		cost += float64(dy) * s.cfg.AscentCost
	} else {
		cost += float64(-dy) * s.cfg.DescentCost
	}
	if feet.Liquid() {
		cost += s.cfg.LiquidCost
	}
	return cost
}

// Smooth drops interior points whose incoming and outgoing directions are
// nearly collinear (dot >= 0.9). It repeats until nothing changes, so
// Smooth(Smooth(p)) equals Smooth(p).
func Smooth(path []world.Coord) []world.Coord {
	out := append([]world.Coord(nil), path...)
	for {
		next := smoothPass(out)
		if len(next) == len(out) {
			return next
		}
		out = next
	}
}

func smoothPass(path []world.Coord) []world.Coord {
	if len(path) < 3 {
		return path
	}
	out := make([]world.Coord, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path)-1; i++ {
		in := path[i].Sub(out[len(out)-1])
		next := path[i+1].Sub(path[i])
		if dir3(in, next) < 0.9 {
			out = append(out, path[i])
		}
	}
	return append(out, path[len(path)-1])
}

func dir3(a, b world.Coord) float64 {
	la := math.Sqrt(float64(a.X*a.X + a.Y*a.Y + a.Z*a.Z))
	lb := math.Sqrt(float64(b.X*b.X + b.Y*b.Y + b.Z*b.Z))
	if la == 0 || lb == 0 {
		return 1
	}
	return float64(a.X*b.X+a.Y*b.Y+a.Z*b.Z) / (la * lb)
}

// PathCost sums EdgeCost over consecutive pairs; +Inf if any step is illegal.
func (s *Searcher) PathCost(path []world.Coord) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += s.EdgeCost(path[i-1], path[i])
	}
	return total
}
