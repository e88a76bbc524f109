// Package pilot is the tick driver. Each Tick reads the agent, lets the
// fall guard break a dangerous drop, then gives the crisis machine first
// claim on the agent, then recovery, then travel, and returns one steering
// Intent.
package pilot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/backend"
	"github.com/kasuganosora/voxelpilot/game/crisis"
	"github.com/kasuganosora/voxelpilot/game/fall"
	"github.com/kasuganosora/voxelpilot/game/navigator"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/recovery"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
)

// Config holds the per-component cadence, in ticks.
type Config struct {
	TickRate           int `mapstructure:"tick_rate"`
	NavigationInterval int `mapstructure:"navigation_interval"`
}

func DefaultConfig() Config {
	return Config{TickRate: 20, NavigationInterval: 5}
}

// Engine owns the navigator, recovery and crisis components. Tick, Start
// and Stop serialize on one mutex so a command surface may call them from
// another goroutine; Status and Render never block.
type Engine struct {
	cfg      Config
	q        world.Query
	src      player.Source
	nav      *navigator.Navigator
	rec      *recovery.Recovery
	crisis   *crisis.Machine
	fall     *fall.Guard
	sink     EventSink
	logger   *zap.Logger
	throttle *throttle.Limiter

	mu        sync.Mutex
	tick      uint64
	mode      Mode
	completed bool
	lastNav   uint64
	lastNow   time.Time
	lastPos   world.Coord

	status atomic.Pointer[Status]
	render atomic.Pointer[RenderSnapshot]
}

func New(q world.Query, src player.Source, nav *navigator.Navigator, rec *recovery.Recovery, cm *crisis.Machine, cfg Config, logger *zap.Logger, lim *throttle.Limiter) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationInterval <= 0 {
		cfg.NavigationInterval = 1
	}
	e := &Engine{
		cfg:      cfg,
		q:        world.NewGuard(q, logger, lim),
		src:      src,
		nav:      nav,
		rec:      rec,
		crisis:   cm,
		logger:   logger,
		throttle: lim,
	}
	if sw, ok := nav.Backend().(backend.Switcher); ok {
		sw.SetOnSwitch(e.onSwitch)
	}
	e.status.Store(&Status{Mode: ModeIdle.String(), Navigator: navigator.StateIdle.String()})
	e.render.Store(&RenderSnapshot{})
	return e
}

// SetSink installs the event receiver. Call before the first Tick.
func (e *Engine) SetSink(s EventSink) { e.sink = s }

// SetFallGuard enables fall protection. Call before the first Tick.
func (e *Engine) SetFallGuard(g *fall.Guard) { e.fall = g }

func (e *Engine) Navigator() *navigator.Navigator { return e.nav }
func (e *Engine) Recovery() *recovery.Recovery    { return e.rec }
func (e *Engine) Crisis() *crisis.Machine         { return e.crisis }

// Start begins a mission from the agent's current position.
func (e *Engine) Start(now time.Time) navigator.Mission {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.src.State()
	return e.begin(now, s, e.nav.Start(now, s.Position))
}

// StartWithHeading begins a mission along h.
func (e *Engine) StartWithHeading(now time.Time, h world.Heading) navigator.Mission {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.src.State()
	return e.begin(now, s, e.nav.StartWithHeading(now, s.Position, h))
}

func (e *Engine) begin(now time.Time, s player.State, m navigator.Mission) navigator.Mission {
	e.completed = false
	e.lastNav = 0
	e.rec.Reset()
	e.rec.ClearStuckPositions()
	if e.crisis.Active() {
		e.nav.Suspend()
	}
	e.emit(now, s.Position, EventMissionStarted, map[string]any{
		"heading":      m.Heading.Degrees(),
		"final_target": m.FinalTarget.String(),
		"backend":      e.nav.Backend().Name(),
	})
	e.snapshot(now, s)
	return m
}

// Stop ends the mission in the same call, dropping any in-flight path.
func (e *Engine) Stop(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.nav.Mission(); !ok {
		return
	}
	s := e.src.State()
	e.emit(now, s.Position, EventMissionStopped, map[string]any{"progress": e.nav.Progress()})
	e.nav.Stop()
	e.rec.Reset()
	e.mode = ModeIdle
	e.snapshot(now, s)
}

// Tick runs one simulation step and returns the steering intent.
func (e *Engine) Tick(now time.Time) Intent {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick++
	s := e.src.State()
	e.lastNow, e.lastPos = now, s.Position
	e.rec.RecordPosition(now, s.Position)

	in := e.decide(ai.NewContext(e.q, s, now, e.tick))
	if s.TouchingLiquid && in.Mode != ModeIdle && in.Mode != ModeCompleted {
		in.Jump = true
	}
	e.mode = in.Mode
	e.snapshot(now, s)
	return in
}

func (e *Engine) decide(ctx *ai.AIContext) Intent {
	now, s, pos := ctx.Now, ctx.Agent, ctx.Position()

	if e.fall != nil {
		if a, ok := e.fall.Check(s); ok {
			e.emit(now, pos, EventFallProtection, map[string]any{
				"kind": a.Kind.String(),
				"item": string(a.Place.Item),
				"at":   a.Place.At.String(),
				"drop": a.Drop,
			})
			p := a.Place
			return Intent{Mode: ModeFall, Heading: s.Heading, Place: &p}
		}
	}

	if !e.crisis.Active() {
		if k := e.crisis.Detect(now, s); k != crisis.KindNone && e.crisis.Activate(now, k, pos) {
			e.nav.Suspend()
			e.rec.Reset()
			rec, _ := e.crisis.Record()
			detail := map[string]any{"kind": k.String(), "description": k.Description(), "health": s.Health, "hunger": s.Hunger}
			if rec.Shelter != nil {
				detail["shelter"] = rec.Shelter.Pos.String()
			}
			e.emit(now, pos, EventCrisisStarted, detail)
		}
	}
	if e.crisis.Active() {
		res := e.crisis.Step(ctx)
		if res.Exit == crisis.ExitNone {
			return fromCrisis(res.Action)
		}
		e.emit(now, pos, EventCrisisEnded, map[string]any{"kind": res.Kind.String(), "exit": res.Exit.String()})
		e.nav.Resume()
		e.rec.Reset()
	}

	if e.nav.Active() {
		nominal := e.rec.State() == recovery.StateNominal
		if !nominal || e.rec.NeedsRecovery(pos) {
			res := e.rec.Step(ctx)
			if nominal {
				e.emit(now, pos, EventRecoveryStarted, map[string]any{"trigger": res.Trigger.String()})
			}
			if res.Exit == recovery.ExitNone {
				return fromRecovery(res.Action)
			}
			e.emit(now, pos, EventRecoveryEnded, map[string]any{"trigger": res.Trigger.String(), "exit": res.Exit.String()})
		}
	}

	return e.travel(ctx)
}

func (e *Engine) travel(ctx *ai.AIContext) Intent {
	pos := ctx.Position()
	if _, ok := e.nav.Mission(); !ok {
		return Intent{Mode: ModeIdle}
	}
	if e.nav.Active() && (e.lastNav == 0 || e.tick-e.lastNav >= uint64(e.cfg.NavigationInterval)) {
		e.lastNav = e.tick
		e.nav.Tick(ctx.Now, pos)
	}
	if e.nav.State() == navigator.StateCompleted {
		if !e.completed {
			e.completed = true
			e.emit(ctx.Now, pos, EventMissionCompleted, map[string]any{"progress": e.nav.Progress()})
		}
		return Intent{Mode: ModeCompleted}
	}
	if !e.nav.Active() {
		return Intent{Mode: ModeIdle}
	}
	h := e.nav.NextMovementDirection(pos)
	return Intent{
		Mode:    ModeTravel,
		Heading: h,
		Forward: !h.IsZero(),
		Jump:    e.nav.ShouldJump(pos),
	}
}

func (e *Engine) onSwitch(sw backend.Switch) {
	e.emit(e.lastNow, e.lastPos, EventBackendSwitch, map[string]any{
		"from":   sw.From,
		"to":     sw.To,
		"reason": sw.Reason,
	})
}

func (e *Engine) emit(now time.Time, pos world.Coord, typ string, detail map[string]any) {
	ev := Event{
		Type:     typ,
		At:       now,
		Tick:     e.tick,
		Position: pos,
		Distance: e.nav.Distance(),
		Detail:   detail,
	}
	if m, ok := e.nav.Mission(); ok {
		ev.MissionID = m.ID
	}
	if e.throttle.Allow("pilot." + typ) {
		e.logger.Info("engine event",
			zap.String("type", typ),
			zap.Stringer("pos", pos),
			zap.Float64("distance", ev.Distance),
			zap.Any("detail", detail),
		)
	}
	if e.sink != nil {
		e.sink.Record(ev)
	}
}

func (e *Engine) snapshot(now time.Time, s player.State) {
	st := &Status{
		Tick:      e.tick,
		At:        now,
		Mode:      e.mode.String(),
		Running:   e.nav.Active(),
		Position:  s.Position,
		Health:    s.Health,
		Hunger:    s.Hunger,
		Food:      s.Inventory.FoodCount(),
		Navigator: e.nav.State().String(),
		Distance:  e.nav.Distance(),
		Progress:  e.nav.Progress(),
		Replans:   e.nav.Replans(),
		Backend:   e.nav.Backend().Status(),
		Recovery:  e.rec.Status(),
		Crisis:    e.crisis.Status(now),
	}
	if sw, ok := e.nav.Backend().(backend.Switcher); ok {
		st.BackendSwitches = sw.Switches()
	}
	if e.fall != nil {
		st.FallSaves = e.fall.Saves()
	}
	r := &RenderSnapshot{
		Tick:     e.tick,
		Position: s.Position,
		Path:     e.nav.Path(),
		Progress: st.Progress,
	}
	if m, ok := e.nav.Mission(); ok {
		st.Mission = &m
		wp, ft := m.Waypoint, m.FinalTarget
		r.Waypoint, r.FinalTarget = &wp, &ft
	}
	if a := e.rec.LastAction(); e.rec.State() == recovery.StateRecovering && a.Kind == recovery.KindBacktrack {
		r.RecoveryPath = e.rec.RecoveryPath(s.Position, a.Target)
	}
	if rec, ok := e.crisis.Record(); ok && rec.Shelter != nil {
		sp := rec.Shelter.Pos
		r.Shelter = &sp
	}
	e.status.Store(st)
	e.render.Store(r)
}

// Status returns the latest snapshot.
func (e *Engine) Status() Status { return *e.status.Load() }

// Render returns the latest render snapshot.
func (e *Engine) Render() RenderSnapshot { return *e.render.Load() }

// MissionID is the running mission, or uuid.Nil.
func (e *Engine) MissionID() uuid.UUID {
	if st := e.status.Load(); st.Mission != nil {
		return st.Mission.ID
	}
	return uuid.Nil
}
