// Package navigator owns the long-range mission: it chooses a heading,
// projects a far target along it, and feeds intermediate waypoints to the
// path backend as the agent advances.
package navigator

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/voxelpilot/game/backend"
	"github.com/kasuganosora/voxelpilot/game/terrain"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
)

// State is the navigator lifecycle.
type State int

const (
	StateIdle State = iota
	StatePlanning
	StateTraveling
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StateTraveling:
		return "traveling"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// Config holds mission geometry and heading selection.
type Config struct {
	TargetDistance   float64 `mapstructure:"target_distance"`
	WaypointSpacing  float64 `mapstructure:"waypoint_spacing"`
	ReplanDistance   float64 `mapstructure:"replan_distance"`
	ScoringEnabled   bool    `mapstructure:"scoring_enabled"`
	RandomCandidates int     `mapstructure:"random_candidates"`
	SampleDistance   int     `mapstructure:"sample_distance"`
	AwayBlend        float64 `mapstructure:"away_blend"`
	Seed             int64   `mapstructure:"seed"`
	ProbeDistance    float64 `mapstructure:"probe_distance"`
}

func DefaultConfig() Config {
	return Config{
		TargetDistance:   30000,
		WaypointSpacing:  2000,
		ReplanDistance:   500,
		ScoringEnabled:   true,
		RandomCandidates: 4,
		SampleDistance:   1000,
		AwayBlend:        0.3,
		Seed:             1,
		ProbeDistance:    2,
	}
}

// Mission is one escape run. It is owned by the Navigator; callers receive copies.
type Mission struct {
	ID            uuid.UUID     `json:"id"`
	Origin        world.Coord   `json:"origin"`
	Heading       world.Heading `json:"heading"`
	FinalTarget   world.Coord   `json:"final_target"`
	Waypoint      world.Coord   `json:"waypoint"`
	WaypointIndex int           `json:"waypoint_index"`
	StartedAt     time.Time     `json:"started_at"`
	Active        bool          `json:"active"`

	replanAt float64 // distance from origin at the last re-plan
}

// Navigator is driven once per tick and never blocks.
type Navigator struct {
	cfg      Config
	q        world.Query
	scorer   *terrain.Scorer
	backend  backend.Backend
	rng      *rand.Rand
	logger   *zap.Logger
	throttle *throttle.Limiter

	state     State
	mission   *Mission
	suspended bool
	distance  float64
	replans   int
}

// New builds a Navigator. scorer may be nil, which disables scoring.
func New(q world.Query, scorer *terrain.Scorer, be backend.Backend, cfg Config, logger *zap.Logger, lim *throttle.Limiter) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WaypointSpacing <= 0 {
		cfg.WaypointSpacing = DefaultConfig().WaypointSpacing
	}
	return &Navigator{
		cfg:      cfg,
		q:        q,
		scorer:   scorer,
		backend:  be,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		logger:   logger,
		throttle: lim,
	}
}

// Start begins a mission from pos with a heading chosen by ChooseHeading.
func (n *Navigator) Start(now time.Time, pos world.Coord) Mission {
	return n.StartWithHeading(now, pos, n.ChooseHeading(pos))
}

// StartWithHeading begins a mission along h without heading selection or
// origin blending. Any running mission is replaced.
func (n *Navigator) StartWithHeading(now time.Time, pos world.Coord, h world.Heading) Mission {
	if n.mission != nil {
		n.backend.Cancel()
	}
	h = h.Normalize()
	if h.IsZero() {
		h = world.NewHeading(1, 1)
	}
	m := &Mission{
		ID:          uuid.New(),
		Origin:      pos,
		Heading:     h,
		FinalTarget: h.Step(pos, n.cfg.TargetDistance),
		StartedAt:   now,
		Active:      true,
	}
	m.FinalTarget.Y = pos.Y
	n.mission = m
	n.state = StatePlanning
	n.suspended = false
	n.distance = 0
	n.replans = 0
	if sw, ok := n.backend.(backend.Switcher); ok {
		sw.Select()
	}
	n.logger.Info("mission started",
		zap.String("mission", m.ID.String()),
		zap.Stringer("origin", m.Origin),
		zap.Float64("bearing", h.Degrees()),
		zap.Stringer("target", m.FinalTarget),
	)
	return *m
}

// Stop ends the mission and discards any in-flight path in the same call.
func (n *Navigator) Stop() {
	if n.mission == nil {
		return
	}
	n.backend.Cancel()
	n.logger.Info("mission stopped", zap.String("mission", n.mission.ID.String()), zap.Float64("distance", n.distance))
	n.mission = nil
	n.state = StateIdle
	n.suspended = false
}

// Suspend pauses travel for a higher-priority controller. The current path
// is discarded; the mission itself is kept for Resume.
func (n *Navigator) Suspend() {
	if n.mission == nil || n.suspended {
		return
	}
	n.suspended = true
	n.mission.Active = false
	n.backend.Cancel()
}

// Resume re-plans from the agent's current position after a Suspend.
func (n *Navigator) Resume() {
	if n.mission == nil || !n.suspended {
		return
	}
	n.suspended = false
	n.mission.Active = true
	if n.state == StateTraveling {
		n.state = StatePlanning
	}
}

func (n *Navigator) Suspended() bool { return n.suspended }

// Tick advances the mission for the agent at pos.
func (n *Navigator) Tick(now time.Time, pos world.Coord) {
	if n.mission == nil || n.suspended {
		return
	}
	m := n.mission
	n.distance = DistanceFrom(m.Origin, pos)

	switch n.state {
	case StatePlanning:
		n.advanceWaypoint(pos)
		n.replan(pos, "start")
		n.state = StateTraveling
	case StateTraveling:
		if n.distance >= n.cfg.TargetDistance {
			n.complete()
			return
		}
		switch {
		case pos.HorizontalDist(m.Waypoint) <= n.cfg.WaypointSpacing/4:
			n.advanceWaypoint(pos)
			n.replan(pos, "waypoint reached")
		case n.distance-m.replanAt > n.cfg.ReplanDistance:
			n.advanceWaypoint(pos)
			n.replan(pos, "distance")
		}
	default:
		return
	}
	n.backend.Tick(now, pos)
}

func (n *Navigator) complete() {
	m := n.mission
	n.backend.Cancel()
	m.Active = false
	n.state = StateCompleted
	n.logger.Info("mission completed",
		zap.String("mission", m.ID.String()),
		zap.Float64("distance", n.distance),
		zap.Int("waypoints", m.WaypointIndex),
	)
}

// advanceWaypoint places the next waypoint one spacing beyond the agent's
// current distance from origin, capped at the final target.
func (n *Navigator) advanceWaypoint(pos world.Coord) {
	m := n.mission
	d := math.Min(n.distance+n.cfg.WaypointSpacing, n.cfg.TargetDistance)
	wp := m.Heading.Step(m.Origin, d)
	wp.Y = pos.Y
	m.Waypoint = wp
	m.WaypointIndex++
	if n.throttle.Allow("navigator.waypoint") {
		n.logger.Debug("waypoint updated",
			zap.Int("index", m.WaypointIndex),
			zap.Stringer("waypoint", wp),
			zap.Float64("distance", n.distance),
		)
	}
}

func (n *Navigator) replan(pos world.Coord, reason string) {
	m := n.mission
	m.replanAt = n.distance
	n.replans++
	if err := n.backend.PlanTo(m.Waypoint); err != nil && n.throttle.Allow("navigator.plan_error") {
		n.logger.Warn("path backend rejected waypoint",
			zap.String("reason", reason),
			zap.Stringer("from", pos),
			zap.Error(err),
		)
	}
}

// NextMovementDirection is the steering heading for this tick. It follows
// the backend when it holds a path and otherwise points straight at the
// waypoint, so a running mission always yields a direction.
func (n *Navigator) NextMovementDirection(pos world.Coord) world.Heading {
	if n.mission == nil || n.suspended || n.state == StateCompleted {
		return world.Heading{}
	}
	if h, ok := n.backend.NextStep(pos); ok {
		return h
	}
	return n.probe(pos, n.FallbackDirection(pos))
}

// FallbackDirection is the normalized vector from pos to the waypoint, or
// the mission heading when the agent stands on it.
func (n *Navigator) FallbackDirection(pos world.Coord) world.Heading {
	m := n.mission
	if m == nil {
		return world.Heading{}
	}
	if h := world.HeadingBetween(pos, m.Waypoint); !h.IsZero() {
		return h
	}
	return m.Heading
}

// probe checks a couple of cells ahead and, when blocked, tries rotations
// of 15 and 30 degrees either side before giving up on the raw heading.
func (n *Navigator) probe(pos world.Coord, h world.Heading) world.Heading {
	if n.walkable(pos, h) {
		return h
	}
	for _, deg := range []float64{15, -15, 30, -30} {
		if r := h.Rotate(deg); n.walkable(pos, r) {
			return r
		}
	}
	return h
}

func (n *Navigator) walkable(pos world.Coord, h world.Heading) bool {
	ahead := h.Step(pos, n.cfg.ProbeDistance)
	if ahead == pos {
		return true
	}
	for dy := 1; dy >= -1; dy-- {
		if world.Standable(n.q, ahead.Add(0, dy, 0)) {
			return true
		}
	}
	return false
}

// ShouldJump reports whether the agent should jump this tick: the backend
// wants to climb, or a one-cell obstacle with free headroom stands ahead.
func (n *Navigator) ShouldJump(pos world.Coord) bool {
	if n.mission == nil || n.suspended {
		return false
	}
	if n.backend.ShouldAscend(pos) {
		return true
	}
	h := n.NextMovementDirection(pos)
	if h.IsZero() {
		return false
	}
	ahead := h.Step(pos, 1.5)
	if ahead.X == pos.X && ahead.Z == pos.Z {
		return false
	}
	return n.q.MaterialAt(ahead).Solid() && world.Clear(n.q, ahead.Up())
}

// ChooseHeading picks a mission heading from pos. With scoring enabled the
// best scoring candidate wins; otherwise one of the four diagonals is drawn
// from the seeded source. Starting away from the world origin blends the
// result toward the direction pointing further away from it.
func (n *Navigator) ChooseHeading(pos world.Coord) world.Heading {
	var h world.Heading
	if n.cfg.ScoringEnabled && n.scorer != nil {
		h, _ = n.scorer.Best(pos, n.Candidates(), n.cfg.SampleDistance)
	} else {
		h = diagonals[n.rng.Intn(len(diagonals))]
	}
	if pos.X != 0 || pos.Z != 0 {
		away := world.NewHeading(float64(pos.X), float64(pos.Z))
		h = h.Blend(away, n.cfg.AwayBlend)
	}
	return h
}

var diagonals = []world.Heading{
	world.NewHeading(1, 1), world.NewHeading(1, -1),
	world.NewHeading(-1, 1), world.NewHeading(-1, -1),
}

var cardinals = []world.Heading{
	world.NewHeading(1, 0), world.NewHeading(-1, 0),
	world.NewHeading(0, 1), world.NewHeading(0, -1),
}

// Candidates is the fixed diagonal and cardinal set followed by
// RandomCandidates bearings drawn from the seeded source.
func (n *Navigator) Candidates() []world.Heading {
	out := make([]world.Heading, 0, 8+n.cfg.RandomCandidates)
	out = append(out, diagonals...)
	out = append(out, cardinals...)
	for i := 0; i < n.cfg.RandomCandidates; i++ {
		out = append(out, world.HeadingFromDegrees(n.rng.Float64()*360))
	}
	return out
}

// DistanceFrom is the horizontal distance between origin and pos.
func DistanceFrom(origin, pos world.Coord) float64 { return origin.HorizontalDist(pos) }

func (n *Navigator) State() State { return n.state }

// Mission returns a copy of the current mission.
func (n *Navigator) Mission() (Mission, bool) {
	if n.mission == nil {
		return Mission{}, false
	}
	return *n.mission, true
}

func (n *Navigator) Active() bool {
	return n.mission != nil && n.state != StateCompleted
}

// Distance is the agent's horizontal distance from the mission origin as of the last tick.
func (n *Navigator) Distance() float64 { return n.distance }

// Progress is the share of the target distance covered, in [0, 100].
func (n *Navigator) Progress() float64 {
	if n.mission == nil || n.cfg.TargetDistance <= 0 {
		return 0
	}
	return math.Min(100, n.distance/n.cfg.TargetDistance*100)
}

// Replans counts backend re-plans issued for the current mission.
func (n *Navigator) Replans() int { return n.replans }

// Path is the backend's current path, for renderers.
func (n *Navigator) Path() []world.Coord {
	if n.mission == nil {
		return nil
	}
	return n.backend.Path()
}

func (n *Navigator) Backend() backend.Backend { return n.backend }
