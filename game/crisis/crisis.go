// Package crisis watches the agent's vitals and supplies, and takes over
// from travel with survival actions when one of them becomes critical.
package crisis

import (
	"time"

	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
)

// Config holds trigger thresholds and the hysteresis margins that must be
// crossed before a crisis counts as resolved.
type Config struct {
	CriticalHealth float64 `mapstructure:"critical_health"`
	CriticalHunger int     `mapstructure:"critical_hunger"`
	CriticalFood   int     `mapstructure:"critical_food"`
	HealthMargin   float64 `mapstructure:"health_margin"`
	HungerMargin   int     `mapstructure:"hunger_margin"`
	FoodResolve    int     `mapstructure:"food_resolve"`
	NoFoodHunger   int     `mapstructure:"no_food_hunger"`

	CompoundHealth      float64 `mapstructure:"compound_health"`
	CompoundHunger      int     `mapstructure:"compound_hunger"`
	CompoundFood        int     `mapstructure:"compound_food"`
	CompoundResolveFood int     `mapstructure:"compound_resolve_food"`
	AcuteHealth         float64 `mapstructure:"acute_health"`
	AcuteHunger         int     `mapstructure:"acute_hunger"`

	MaxAttempts     int           `mapstructure:"max_attempts"`
	RearmAfter      time.Duration `mapstructure:"rearm_after"`
	ReachSq         int           `mapstructure:"reach_sq"`
	SearchTurnTicks int           `mapstructure:"search_turn_ticks"`
	Scan            ScanConfig    `mapstructure:"scan"`
}

func DefaultConfig() Config {
	return Config{
		CriticalHealth: 5,
		CriticalHunger: 6,
		CriticalFood:   0,
		HealthMargin:   5,
		HungerMargin:   4,
		FoodResolve:    5,
		NoFoodHunger:   player.MaxHunger,

		CompoundHealth:      10,
		CompoundHunger:      10,
		CompoundFood:        2,
		CompoundResolveFood: 3,
		AcuteHealth:         2,
		AcuteHunger:         2,

		MaxAttempts:     200,
		RearmAfter:      30 * time.Second,
		ReachSq:         9,
		SearchTurnTicks: 60,
		Scan:            DefaultScanConfig(),
	}
}

// Record describes the crisis in progress.
type Record struct {
	Kind      Kind         `json:"kind"`
	StartedAt time.Time    `json:"started_at"`
	Attempts  int          `json:"attempts"`
	Shelter   *Shelter     `json:"shelter,omitempty"`
	Target    *world.Coord `json:"target,omitempty"`

	searched   bool
	targetKind ActionKind
}

func (r Record) Duration(now time.Time) time.Duration { return now.Sub(r.StartedAt) }

// Result is the outcome of one Step.
type Result struct {
	Action Action
	Exit   Exit
	Kind   Kind
}

// Status is a read-only snapshot for telemetry.
type Status struct {
	Active      bool     `json:"active"`
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	Attempts    int      `json:"attempts"`
	Duration    float64  `json:"duration_seconds"`
	Shelter     *Shelter `json:"shelter,omitempty"`
	LastAction  string   `json:"last_action"`
	Activations int      `json:"activations"`
	Resolutions int      `json:"resolutions"`
	GiveUps     int      `json:"give_ups"`
}

// Machine is the Calm/Crisis state machine. It is owned by the tick driver.
type Machine struct {
	cfg      Config
	q        world.Query
	logger   *zap.Logger
	throttle *throttle.Limiter

	trees map[Kind]*ai.BehaviorTree
	rec   *Record
	rearm map[Kind]time.Time

	action     Action
	search     world.Heading
	searchLeft int

	activations int
	resolutions int
	giveUps     int
}

func New(q world.Query, cfg Config, logger *zap.Logger, lim *throttle.Limiter) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	m := &Machine{
		cfg:      cfg,
		q:        q,
		logger:   logger,
		throttle: lim,
		rearm:    make(map[Kind]time.Time),
	}
	m.trees = m.buildTrees()
	return m
}

func (m *Machine) buildTrees() map[Kind]*ai.BehaviorTree {
	health := &ai.Selector{Children: []ai.Node{
		ai.Do(m.useHealing),
		ai.Do(m.eat),
		ai.Do(m.retreat),
		ai.Do(m.craftShield),
		ai.Do(m.hide),
	}}
	hunger := &ai.Selector{Children: []ai.Node{
		ai.Do(m.eat),
		ai.Do(m.hunt),
		ai.Do(m.gatherFood),
		ai.Do(m.craftBread),
		ai.Do(m.searchFood),
	}}
	// Eating spends the reserve this crisis is trying to build, so only
	// eat when hunger itself is critical.
	noFood := &ai.Selector{Children: []ai.Node{
		ai.Guarded(func(ctx *ai.AIContext) bool { return ctx.Agent.Hunger <= m.cfg.CriticalHunger }, ai.Do(m.eat)),
		ai.Do(m.hunt),
		ai.Do(m.gatherFood),
		ai.Do(m.craftBread),
		ai.Do(m.searchFood),
	}}
	tools := &ai.Selector{Children: []ai.Node{
		ai.Do(m.craftTools),
		ai.Do(m.gatherWood),
		ai.Do(m.gatherStone),
		ai.Do(m.searchMaterials),
	}}
	multiple := &ai.Selector{Children: []ai.Node{
		ai.Guarded(func(ctx *ai.AIContext) bool { return ctx.Agent.Health <= m.cfg.AcuteHealth }, health),
		ai.Guarded(func(ctx *ai.AIContext) bool { return ctx.Agent.Hunger <= m.cfg.AcuteHunger }, hunger),
		ai.Do(m.retreat),
		ai.Do(m.hide),
	}}
	return map[Kind]*ai.BehaviorTree{
		KindLowHealth: {Root: health},
		KindLowHunger: {Root: hunger},
		KindNoFood:    {Root: noFood},
		KindNoTools:   {Root: tools},
		KindMultiple:  {Root: multiple},
	}
}

// Detect returns the first crisis whose trigger holds for s. A kind that
// was recently given up on is skipped until its re-arm delay passes.
func (m *Machine) Detect(now time.Time, s player.State) Kind {
	food := s.Inventory.FoodCount()
	checks := []struct {
		kind Kind
		hit  bool
	}{
		{KindMultiple, s.Health <= m.cfg.CompoundHealth && s.Hunger <= m.cfg.CompoundHunger && food <= m.cfg.CompoundFood},
		{KindLowHealth, s.Health <= m.cfg.CriticalHealth},
		{KindLowHunger, s.Hunger <= m.cfg.CriticalHunger},
		{KindNoFood, food <= m.cfg.CriticalFood && s.Hunger < m.cfg.NoFoodHunger},
		{KindNoTools, !s.Inventory.HasAnyTool()},
	}
	for _, c := range checks {
		if c.hit && !m.cooling(c.kind, now) {
			return c.kind
		}
	}
	return KindNone
}

func (m *Machine) cooling(k Kind, now time.Time) bool {
	until, ok := m.rearm[k]
	return ok && now.Before(until)
}

// Activate enters crisis k. It reports false when a crisis is already active.
func (m *Machine) Activate(now time.Time, k Kind, pos world.Coord) bool {
	if m.rec != nil || k == KindNone {
		return false
	}
	m.rec = &Record{Kind: k, StartedAt: now}
	m.findShelter(pos)
	m.searchLeft = 0
	m.activations++
	if m.throttle.Allow("crisis.activate") {
		fields := []zap.Field{
			zap.Stringer("kind", k),
			zap.String("description", k.Description()),
			zap.Stringer("pos", pos),
		}
		if m.rec.Shelter != nil {
			fields = append(fields, zap.Stringer("shelter", m.rec.Shelter.Pos), zap.Bool("natural", m.rec.Shelter.Natural))
		}
		m.logger.Warn("crisis activated", fields...)
	}
	return true
}

// Step runs one tick of the active crisis.
func (m *Machine) Step(ctx *ai.AIContext) Result {
	if m.rec == nil {
		return Result{Action: Action{Kind: ActionNone}}
	}
	k := m.rec.Kind
	m.rec.Attempts++

	if m.resolved(k, ctx.Agent) {
		m.resolutions++
		m.end(ctx.Now, ExitResolved)
		m.action = Action{Kind: ActionResolved}
		return Result{Action: m.action, Exit: ExitResolved, Kind: k}
	}
	if m.rec.Attempts > m.cfg.MaxAttempts {
		m.giveUps++
		m.rearm[k] = ctx.Now.Add(m.cfg.RearmAfter)
		m.end(ctx.Now, ExitGaveUp)
		m.action = Action{Kind: ActionGiveUp}
		return Result{Action: m.action, Exit: ExitGaveUp, Kind: k}
	}

	m.action = Action{Kind: ActionHideAndWait}
	m.trees[k].Tick(ctx)
	return Result{Action: m.action, Kind: k}
}

// Deactivate abandons the active crisis without resolving it.
func (m *Machine) Deactivate(now time.Time) {
	if m.rec != nil {
		m.end(now, ExitCancelled)
	}
}

func (m *Machine) end(now time.Time, exit Exit) {
	rec := m.rec
	m.rec = nil
	if m.throttle.Allow("crisis.end") {
		m.logger.Info("crisis ended",
			zap.Stringer("kind", rec.Kind),
			zap.Stringer("exit", exit),
			zap.Int("attempts", rec.Attempts),
			zap.Duration("duration", rec.Duration(now)),
		)
	}
}

func (m *Machine) resolved(k Kind, s player.State) bool {
	food := s.Inventory.FoodCount()
	switch k {
	case KindLowHealth:
		return s.Health > m.cfg.CriticalHealth+m.cfg.HealthMargin
	case KindLowHunger:
		return s.Hunger > m.cfg.CriticalHunger+m.cfg.HungerMargin
	case KindNoFood:
		return food > m.cfg.FoodResolve
	case KindNoTools:
		return s.Inventory.HasAnyTool()
	case KindMultiple:
		return s.Health > m.cfg.CompoundHealth && s.Hunger > m.cfg.CompoundHunger && food > m.cfg.CompoundResolveFood
	}
	return true
}

func (m *Machine) Active() bool { return m.rec != nil }

// Record returns a copy of the active crisis.
func (m *Machine) Record() (Record, bool) {
	if m.rec == nil {
		return Record{}, false
	}
	return *m.rec, true
}

func (m *Machine) LastAction() Action { return m.action }

func (m *Machine) Status(now time.Time) Status {
	st := Status{
		Kind:        KindNone.String(),
		Description: KindNone.Description(),
		LastAction:  m.action.Kind.String(),
		Activations: m.activations,
		Resolutions: m.resolutions,
		GiveUps:     m.giveUps,
	}
	if m.rec != nil {
		st.Active = true
		st.Kind = m.rec.Kind.String()
		st.Description = m.rec.Kind.Description()
		st.Attempts = m.rec.Attempts
		st.Duration = m.rec.Duration(now).Seconds()
		st.Shelter = m.rec.Shelter
	}
	return st
}

func (m *Machine) findShelter(pos world.Coord) {
	m.rec.searched = true
	if s, ok := FindShelter(m.q, pos, m.cfg.Scan); ok {
		m.rec.Shelter = &s
	}
}

// ---- handlers ----

func (m *Machine) useHealing(ctx *ai.AIContext) bool {
	it, ok := ctx.Agent.Inventory.BestHealing()
	if !ok {
		return false
	}
	m.action = Action{Kind: ActionUseHealingItem, Consume: it}
	return true
}

func (m *Machine) eat(ctx *ai.AIContext) bool {
	if ctx.Agent.Hunger >= player.MaxHunger {
		return false
	}
	it, ok := ctx.Agent.Inventory.BestFood()
	if !ok {
		return false
	}
	m.action = Action{Kind: ActionEatFood, Consume: it}
	return true
}

func (m *Machine) retreat(ctx *ai.AIContext) bool {
	pos := ctx.Position()
	if !m.rec.searched {
		m.findShelter(pos)
	}
	if m.rec.Shelter == nil {
		return false
	}
	s := *m.rec.Shelter
	if pos == s.Pos {
		m.action = Action{Kind: ActionHideAndWait, Target: s.Pos, HasTarget: true}
		return true
	}
	a := Action{
		Kind:      ActionRetreatToShelter,
		Target:    s.Pos,
		HasTarget: true,
		Heading:   world.HeadingBetween(pos, s.Pos),
		Forward:   true,
		Jump:      s.Pos.Y > pos.Y,
	}
	if !s.Natural && pos.DistSq(s.Pos) <= m.cfg.ReachSq {
		for _, c := range []world.Coord{s.Pos, s.Pos.Up()} {
			if m.q.MaterialAt(c).Breakable() {
				a.Dig = append(a.Dig, c)
			}
		}
	}
	m.action = a
	return true
}

func (m *Machine) craftShield(ctx *ai.AIContext) bool {
	inv := ctx.Agent.Inventory
	if inv.Has(item.Shield) || !inv.CanCraft(item.RecipeShield) {
		return false
	}
	r := item.RecipeShield
	m.action = Action{Kind: ActionCraftShield, Craft: &r}
	return true
}

func (m *Machine) hide(ctx *ai.AIContext) bool {
	m.action = Action{Kind: ActionHideAndWait}
	return true
}

func (m *Machine) hunt(ctx *ai.AIContext) bool {
	if ctx.Agent.NearbyFauna <= 0 {
		return false
	}
	m.action = Action{Kind: ActionHuntAnimal, Heading: ctx.Agent.Heading, Forward: true}
	return true
}

func (m *Machine) gatherFood(ctx *ai.AIContext) bool {
	return m.gather(ctx, ActionGatherFood, m.cfg.Scan.FoodRadius, world.Material.FoodSource)
}

func (m *Machine) craftBread(ctx *ai.AIContext) bool {
	if !ctx.Agent.Inventory.CanCraft(item.RecipeBread) {
		return false
	}
	r := item.RecipeBread
	m.action = Action{Kind: ActionCraftFood, Craft: &r}
	return true
}

func (m *Machine) searchFood(ctx *ai.AIContext) bool {
	return m.wander(ctx, ActionSearchForFood)
}

// craftTools crafts a tool when possible, working up from logs through
// planks and sticks.
func (m *Machine) craftTools(ctx *ai.AIContext) bool {
	inv := ctx.Agent.Inventory
	var next *item.Recipe
	for _, r := range item.ToolRecipes {
		if inv.CanCraft(r) {
			next = &r
			break
		}
	}
	if next == nil {
		spare := item.RecipeWoodenPickaxe.Inputs[item.Planks] + item.RecipeSticks.Inputs[item.Planks]
		switch {
		case inv.Count(item.Stick) < 2 && inv.Count(item.Planks) >= spare:
			r := item.RecipeSticks
			next = &r
		case inv.Has(item.Log):
			r := item.RecipePlanks
			next = &r
		}
	}
	if next == nil {
		return false
	}
	m.action = Action{Kind: ActionCraftTools, Craft: next}
	return true
}

func (m *Machine) gatherWood(ctx *ai.AIContext) bool {
	return m.gather(ctx, ActionGatherWood, m.cfg.Scan.WoodRadius, world.Material.Wood)
}

func (m *Machine) gatherStone(ctx *ai.AIContext) bool {
	return m.gather(ctx, ActionGatherStone, m.cfg.Scan.StoneRadius, world.Material.Rock)
}

func (m *Machine) searchMaterials(ctx *ai.AIContext) bool {
	return m.wander(ctx, ActionSearchForMaterials)
}

// gather walks to the nearest block matching pred and breaks it once in reach.
func (m *Machine) gather(ctx *ai.AIContext, kind ActionKind, radius int, pred func(world.Material) bool) bool {
	pos := ctx.Position()
	rec := m.rec
	if rec.Target == nil || rec.targetKind != kind || !pred(m.q.MaterialAt(*rec.Target)) {
		rec.Target = nil
		c, ok := Nearest(m.q, pos, radius, m.cfg.Scan.VerticalSpan, pred)
		if !ok {
			return false
		}
		rec.Target, rec.targetKind = &c, kind
	}
	t := *rec.Target
	a := Action{Kind: kind, Target: t, HasTarget: true, Heading: world.HeadingBetween(pos, t)}
	if pos.DistSq(t) <= m.cfg.ReachSq {
		a.Dig = []world.Coord{t}
	} else {
		a.Forward = true
		a.Jump = t.Y > pos.Y
	}
	m.action = a
	return true
}

// wander sweeps the search heading round in 45 degree turns.
func (m *Machine) wander(ctx *ai.AIContext, kind ActionKind) bool {
	if m.searchLeft <= 0 || m.search.IsZero() {
		switch {
		case m.search.IsZero() && !ctx.Agent.Heading.IsZero():
			m.search = ctx.Agent.Heading
		case m.search.IsZero():
			m.search = world.NewHeading(1, 0)
		default:
			m.search = m.search.Rotate(45)
		}
		m.searchLeft = m.cfg.SearchTurnTicks
	}
	m.searchLeft--
	m.action = Action{Kind: kind, Heading: m.search, Forward: true, Jump: true}
	return true
}
