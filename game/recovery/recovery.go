// Package recovery detects when the agent is stuck or buried and proposes
// the next escape action. It keeps a bounded trail of recent positions and
// a set of cells known to trap the agent.
package recovery

import (
	"math/rand"
	"time"

	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
)

// State is the recovery lifecycle.
type State int

const (
	StateNominal State = iota
	StateRecovering
)

func (s State) String() string {
	if s == StateRecovering {
		return "recovering"
	}
	return "nominal"
}

// Config tunes detection thresholds. Durations are converted to ticks at TickRate.
type Config struct {
	TickRate         int           `mapstructure:"tick_rate"`
	HistoryCapacity  int           `mapstructure:"history_capacity"`
	RetentionRadius  int           `mapstructure:"retention_radius"`
	SuffocationAfter time.Duration `mapstructure:"suffocation_after"`
	StuckAfter       time.Duration `mapstructure:"stuck_after"`
	MaxRecoveryTicks int           `mapstructure:"max_recovery_ticks"`
	BacktrackTicks   int           `mapstructure:"backtrack_ticks"`
	RandomWalkTicks  int           `mapstructure:"random_walk_ticks"`
	ArrivalSq        int           `mapstructure:"arrival_sq"`
	Seed             int64         `mapstructure:"seed"`
}

func DefaultConfig() Config {
	return Config{
		TickRate:         20,
		HistoryCapacity:  1000,
		RetentionRadius:  128,
		SuffocationAfter: 3 * time.Second,
		StuckAfter:       5 * time.Second,
		MaxRecoveryTicks: 600,
		BacktrackTicks:   100,
		RandomWalkTicks:  40,
		ArrivalSq:        4,
		Seed:             1,
	}
}

func (c Config) ticks(d time.Duration) int {
	n := int(d.Seconds() * float64(c.TickRate))
	if n < 1 {
		n = 1
	}
	return n
}

// Status is a read-only snapshot for telemetry.
type Status struct {
	State        string `json:"state"`
	Trigger      string `json:"trigger"`
	LastAction   string `json:"last_action"`
	EpisodeTicks int    `json:"episode_ticks"`
	History      int    `json:"history"`
	Stuck        int    `json:"stuck"`
	Episodes     int    `json:"episodes"`
	GiveUps      int    `json:"give_ups"`
}

// Result is the outcome of one Step.
type Result struct {
	Action  Action
	Exit    Exit
	Trigger Trigger
}

// Recovery is not safe for concurrent use; the tick driver owns it.
type Recovery struct {
	cfg      Config
	q        world.Query
	logger   *zap.Logger
	throttle *throttle.Limiter
	rng      *rand.Rand
	tree     *ai.BehaviorTree

	history *History
	stuck   map[world.Coord]struct{}

	last             world.Coord
	hasLast          bool
	stillTicks       int
	suffocationTicks int
	suffocateLimit   int
	stuckLimit       int

	// grace suppresses stuck-set and dead-end triggers until the agent leaves graceAt.
	grace   bool
	graceAt world.Coord

	state        State
	trigger      Trigger
	episodeStart time.Time
	episodeTicks int
	backtrack    *world.Coord
	backtrackFor int
	rejected     map[world.Coord]struct{}
	walk         world.Heading
	walkLeft     int
	action       Action

	episodes int
	giveUps  int
}

func New(q world.Query, cfg Config, logger *zap.Logger, lim *throttle.Limiter) *Recovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.ArrivalSq <= 0 {
		cfg.ArrivalSq = def.ArrivalSq
	}
	r := &Recovery{
		cfg:            cfg,
		q:              q,
		logger:         logger,
		throttle:       lim,
		rng:            rand.New(rand.NewSource(cfg.Seed)),
		history:        NewHistory(cfg.HistoryCapacity),
		stuck:          make(map[world.Coord]struct{}),
		rejected:       make(map[world.Coord]struct{}),
		suffocateLimit: cfg.ticks(cfg.SuffocationAfter),
		stuckLimit:     cfg.ticks(cfg.StuckAfter),
	}
	r.tree = &ai.BehaviorTree{Root: &ai.Selector{Children: []ai.Node{
		ai.Guarded(func(ctx *ai.AIContext) bool { return r.suffocating(ctx.Position()) },
			&ai.Selector{Children: []ai.Node{
				ai.Do(r.digUp),
				ai.Do(r.digLateral),
				ai.Do(r.teleport),
				ai.Do(r.panicDig),
			}}),
		ai.Do(r.backtrackStep),
		ai.Do(r.digOut),
		ai.Do(r.randomWalk),
	}}}
	return r
}

// RecordPosition updates the trail and the per-tick counters. Call it once per tick.
func (r *Recovery) RecordPosition(now time.Time, pos world.Coord) {
	if r.hasLast && pos == r.last {
		r.stillTicks++
	} else {
		r.stillTicks = 0
	}
	if r.suffocating(pos) {
		r.suffocationTicks++
	} else {
		r.suffocationTicks = 0
	}
	if r.grace && pos != r.graceAt {
		r.grace = false
	}
	r.last, r.hasLast = pos, true
	r.history.Push(Sample{Pos: pos, At: now, Safe: r.isSafe(pos)})
	if r.stillTicks > r.stuckLimit {
		if _, ok := r.stuck[pos]; !ok {
			r.stuck[pos] = struct{}{}
			r.logger.Debug("position marked stuck", zap.Stringer("pos", pos), zap.Int("still_ticks", r.stillTicks))
		}
	}
	r.prune(pos)
}

func (r *Recovery) prune(pos world.Coord) {
	if r.cfg.RetentionRadius <= 0 {
		return
	}
	limit := r.cfg.RetentionRadius * r.cfg.RetentionRadius
	for c := range r.stuck {
		if c.DistSq(pos) > limit {
			delete(r.stuck, c)
		}
	}
	r.history.DropOldestWhile(func(s Sample) bool { return s.Pos.DistSq(pos) > limit })
}

// Check reports which condition, if any, calls for recovery at pos.
func (r *Recovery) Check(pos world.Coord) Trigger {
	if r.suffocationTicks > r.suffocateLimit {
		return TriggerSuffocation
	}
	if r.stillTicks > r.stuckLimit {
		return TriggerStalled
	}
	if r.grace {
		return TriggerNone
	}
	if r.IsStuck(pos) {
		return TriggerKnownStuck
	}
	if !r.suffocating(pos) && r.lateralsLoaded(pos) && world.OpenLaterals(r.q, pos) <= 1 {
		return TriggerDeadEnd
	}
	return TriggerNone
}

// NeedsRecovery reports whether any trigger fires at pos.
func (r *Recovery) NeedsRecovery(pos world.Coord) bool { return r.Check(pos) != TriggerNone }

// Step advances the current episode, starting one if needed, and returns
// the action to perform this tick.
func (r *Recovery) Step(ctx *ai.AIContext) Result {
	pos := ctx.Position()
	if r.state == StateNominal {
		r.begin(ctx.Now, pos)
	}
	r.episodeTicks++

	if r.recovered(pos) {
		r.finish(pos, ExitRecovered)
		return Result{Exit: ExitRecovered, Trigger: r.trigger}
	}
	if r.cfg.MaxRecoveryTicks > 0 && r.episodeTicks > r.cfg.MaxRecoveryTicks {
		r.giveUps++
		r.finish(pos, ExitGaveUp)
		r.Reset()
		return Result{Exit: ExitGaveUp, Trigger: r.trigger}
	}

	r.action = Action{}
	if r.tree.Tick(ctx) != ai.StatusSuccess {
		r.action = Action{Kind: KindNone}
	}
	return Result{Action: r.action, Trigger: r.trigger}
}

func (r *Recovery) begin(now time.Time, pos world.Coord) {
	r.state = StateRecovering
	r.trigger = r.Check(pos)
	r.episodeStart = now
	r.episodeTicks = 0
	r.backtrack = nil
	r.backtrackFor = 0
	r.walkLeft = 0
	clear(r.rejected)
	r.episodes++
	if r.throttle.Allow("recovery.begin") {
		r.logger.Info("recovery started",
			zap.Stringer("pos", pos),
			zap.Stringer("trigger", r.trigger),
			zap.Int("episode", r.episodes),
		)
	}
}

func (r *Recovery) finish(pos world.Coord, exit Exit) {
	r.state = StateNominal
	r.stillTicks = 0
	r.suffocationTicks = 0
	r.backtrack = nil
	if r.throttle.Allow("recovery.finish") {
		r.logger.Info("recovery finished",
			zap.Stringer("pos", pos),
			zap.Stringer("exit", exit),
			zap.Int("ticks", r.episodeTicks),
		)
	}
}

func (r *Recovery) recovered(pos world.Coord) bool {
	if r.backtrack != nil && pos.DistSq(*r.backtrack) < r.cfg.ArrivalSq {
		return true
	}
	return !r.suffocating(pos) && !r.IsStuck(pos) && r.isSafe(pos)
}

// Reset zeroes the counters and abandons any episode. Stuck-set and
// dead-end triggers stay quiet until the agent moves.
func (r *Recovery) Reset() {
	r.stillTicks = 0
	r.suffocationTicks = 0
	r.grace = true
	r.graceAt = r.last
	r.state = StateNominal
	r.backtrack = nil
	r.episodeTicks = 0
}

// ClearStuckPositions forgets every known trap.
func (r *Recovery) ClearStuckPositions() { clear(r.stuck) }

func (r *Recovery) IsStuck(c world.Coord) bool {
	_, ok := r.stuck[c]
	return ok
}

func (r *Recovery) State() State       { return r.state }
func (r *Recovery) History() []Sample  { return r.history.Snapshot() }
func (r *Recovery) StuckCount() int    { return len(r.stuck) }
func (r *Recovery) LastAction() Action { return r.action }

func (r *Recovery) Status() Status {
	return Status{
		State:        r.state.String(),
		Trigger:      r.trigger.String(),
		LastAction:   r.action.Kind.String(),
		EpisodeTicks: r.episodeTicks,
		History:      r.history.Len(),
		Stuck:        len(r.stuck),
		Episodes:     r.episodes,
		GiveUps:      r.giveUps,
	}
}

// RecoveryPath walks greedily from one cell toward another, one cell per
// axis per step, and stops before the first impassable cell. The start is
// not included.
func (r *Recovery) RecoveryPath(from, to world.Coord) []world.Coord {
	const maxSteps = 100
	var path []world.Coord
	cur := from
	for i := 0; i < maxSteps && cur != to; i++ {
		d := to.Sub(cur)
		cur = cur.Add(sign(d.X), sign(d.Y), sign(d.Z))
		if !r.q.MaterialAt(cur).Passable() {
			break
		}
		path = append(path, cur)
	}
	return path
}

// suffocating reports whether the feet or head cell is a known non-passable block.
func (r *Recovery) suffocating(pos world.Coord) bool {
	for _, c := range []world.Coord{pos, pos.Up()} {
		m := r.q.MaterialAt(c)
		if m != world.MaterialUnknown && !m.Passable() {
			return true
		}
	}
	return false
}

// isSafe reports whether the agent could stand at pos and leave it two ways.
func (r *Recovery) isSafe(pos world.Coord) bool {
	return world.Standable(r.q, pos) && world.OpenLaterals(r.q, pos) >= 2
}

func (r *Recovery) lateralsLoaded(pos world.Coord) bool {
	for _, d := range world.Lateral4 {
		if !r.q.IsLoaded(pos.Add(d.X, 0, d.Z)) {
			return false
		}
	}
	return true
}

// diggable reports whether c may be broken: a breakable block with no lava
// above or beside it.
func (r *Recovery) diggable(c world.Coord) bool {
	if !r.q.MaterialAt(c).Breakable() {
		return false
	}
	if r.q.MaterialAt(c.Up()) == world.MaterialLava {
		return false
	}
	for _, d := range world.Lateral4 {
		if r.q.MaterialAt(c.Add(d.X, 0, d.Z)) == world.MaterialLava {
			return false
		}
	}
	return true
}

// openColumn lists the blocks to break so the agent fits at c. ok is false
// when one of them may not be broken.
func (r *Recovery) openColumn(c world.Coord) (digs []world.Coord, ok bool) {
	for _, cell := range []world.Coord{c, c.Up()} {
		if r.q.MaterialAt(cell).Passable() {
			continue
		}
		if !r.diggable(cell) {
			return nil, false
		}
		digs = append(digs, cell)
	}
	return digs, true
}

func (r *Recovery) digUp(ctx *ai.AIContext) bool {
	pos := ctx.Position()
	head := pos.Up()
	if r.q.MaterialAt(head).Passable() {
		if !r.diggable(pos) {
			return false
		}
		r.action = Action{Kind: KindDigUp, Target: pos, Dig: []world.Coord{pos}, Jump: true}
		return true
	}
	digs, ok := r.openColumn(pos)
	if !ok || len(digs) == 0 {
		return false
	}
	r.action = Action{Kind: KindDigUp, Target: head, Dig: digs, Jump: true}
	return true
}

func (r *Recovery) digLateral(ctx *ai.AIContext) bool {
	pos := ctx.Position()
	for _, d := range world.Lateral8 {
		nb := pos.Add(d.X, 0, d.Z)
		if !r.diggable(nb) {
			continue
		}
		digs, ok := r.openColumn(nb)
		if !ok {
			continue
		}
		r.action = Action{
			Kind:    KindDigLateral,
			Target:  nb,
			Dig:     digs,
			Heading: world.HeadingBetween(pos, nb),
			Forward: true,
		}
		return true
	}
	return false
}

func (r *Recovery) teleport(ctx *ai.AIContext) bool {
	if !ctx.Agent.Inventory.Has(item.EnderPearl) {
		return false
	}
	pos := ctx.Position()
	dest, ok := r.findSafe(pos)
	if !ok {
		dest, ok = r.surfaceAbove(pos)
	}
	if !ok {
		return false
	}
	r.action = Action{Kind: KindEmergencyTeleport, Target: dest, Use: item.EnderPearl}
	return true
}

func (r *Recovery) surfaceAbove(pos world.Coord) (world.Coord, bool) {
	const reach = 32
	for dy := 1; dy <= reach; dy++ {
		if c := pos.Add(0, dy, 0); world.Standable(r.q, c) {
			return c, true
		}
	}
	return world.Coord{}, false
}

// panicDig always succeeds; it breaks whatever it safely can around the agent.
func (r *Recovery) panicDig(ctx *ai.AIContext) bool {
	pos := ctx.Position()
	var digs []world.Coord
	for _, c := range []world.Coord{pos, pos.Up()} {
		if r.diggable(c) {
			digs = append(digs, c)
		}
		for _, d := range world.Lateral4 {
			if nb := c.Add(d.X, 0, d.Z); r.diggable(nb) {
				digs = append(digs, nb)
			}
		}
	}
	r.action = Action{
		Kind:    KindPanicDig,
		Target:  pos,
		Dig:     digs,
		Heading: world.HeadingFromDegrees(r.rng.Float64() * 360),
		Jump:    true,
	}
	return true
}

func (r *Recovery) backtrackStep(ctx *ai.AIContext) bool {
	pos := ctx.Position()
	if r.backtrack != nil {
		t := *r.backtrack
		r.backtrackFor++
		if r.IsStuck(t) || !r.isSafe(t) || r.backtrackFor > r.cfg.BacktrackTicks {
			r.rejected[t] = struct{}{}
			r.backtrack = nil
		}
	}
	if r.backtrack == nil {
		t, ok := r.findSafe(pos)
		if !ok {
			return false
		}
		r.backtrack = &t
		r.backtrackFor = 0
	}
	t := *r.backtrack
	r.action = Action{
		Kind:    KindBacktrack,
		Target:  t,
		Heading: world.HeadingBetween(pos, t),
		Forward: true,
		Jump:    t.Y > pos.Y,
	}
	return true
}

// findSafe returns the newest position recorded safe before the episode
// began that is still safe and not a known trap.
func (r *Recovery) findSafe(pos world.Coord) (world.Coord, bool) {
	var found world.Coord
	ok := false
	r.history.Reverse(func(s Sample) bool {
		if !s.Safe || s.Pos == pos || !s.At.Before(r.episodeStart) {
			return true
		}
		if _, bad := r.rejected[s.Pos]; bad || r.IsStuck(s.Pos) || !r.isSafe(s.Pos) {
			return true
		}
		found, ok = s.Pos, true
		return false
	})
	return found, ok
}

// digOut opens, or walks into, a lateral column that leads to open space.
func (r *Recovery) digOut(ctx *ai.AIContext) bool {
	pos := ctx.Position()
	for _, d := range world.Lateral4 {
		col := pos.Add(d.X, 0, d.Z)
		digs, ok := r.openColumn(col)
		if !ok || !r.wouldEscape(pos, col) {
			continue
		}
		r.action = Action{
			Kind:    KindDigOut,
			Target:  col,
			Dig:     digs,
			Heading: world.HeadingBetween(pos, col),
			Forward: true,
		}
		return true
	}
	return false
}

// wouldEscape reports whether opening col connects to open space beyond it.
func (r *Recovery) wouldEscape(pos, col world.Coord) bool {
	reach := col.DistSq(pos)
	for dx := -2; dx <= 2; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -2; dz <= 2; dz++ {
				c := col.Add(dx, dy, dz)
				if c.DistSq(pos) <= reach || r.IsStuck(c) {
					continue
				}
				if world.Clear(r.q, c) {
					return true
				}
			}
		}
	}
	return false
}

func (r *Recovery) randomWalk(ctx *ai.AIContext) bool {
	if r.walkLeft <= 0 || r.walk.IsZero() {
		r.walk = world.HeadingFromDegrees(r.rng.Float64() * 360)
		r.walkLeft = r.cfg.RandomWalkTicks
	}
	r.walkLeft--
	r.action = Action{
		Kind:    KindRandomWalk,
		Target:  r.walk.Step(ctx.Position(), 4),
		Heading: r.walk,
		Forward: true,
		Jump:    true,
	}
	return true
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
