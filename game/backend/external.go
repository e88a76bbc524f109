package backend

import (
	"time"

	"github.com/kasuganosora/voxelpilot/game/world"
	"go.uber.org/zap"
)

// Engine is the surface of an external navigation engine. Implementations
// must return promptly; any long-running work belongs to the engine itself.
type Engine interface {
	Available() bool
	SetGoal(target world.Coord) error
	IsPathing() bool
	CurrentPath() []world.Coord
	ETA() (time.Duration, bool)
	Stop()
}

// External adapts an Engine to Backend. A goal the engine stops pursuing
// before arrival is retried after ReplanInterval and counted as a failure.
type External struct {
	name   string
	cfg    Config
	engine Engine
	logger *zap.Logger

	target     world.Coord
	hasTarget  bool
	failures   int
	lastIssued time.Time
	arrived    bool
}

func NewExternal(name string, e Engine, cfg Config, logger *zap.Logger) *External {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &External{name: name, cfg: cfg, engine: e, logger: logger}
}

func (x *External) Name() string { return x.name }

func (x *External) Available() bool {
	return x.engine != nil && x.engine.Available()
}

func (x *External) PlanTo(target world.Coord) error {
	if !x.Available() {
		return ErrUnavailable
	}
	x.target, x.hasTarget = target, true
	x.failures = 0
	x.arrived = false
	x.lastIssued = time.Time{}
	if err := x.engine.SetGoal(target); err != nil {
		x.failures++
		return err
	}
	return nil
}

func (x *External) Tick(now time.Time, pos world.Coord) {
	if !x.hasTarget || x.arrived {
		return
	}
	if x.lastIssued.IsZero() {
		x.lastIssued = now
	}
	if pos.DistSq(x.target) < x.cfg.ArrivalSq {
		x.arrived = true
		x.engine.Stop()
		return
	}
	if x.engine.IsPathing() || now.Sub(x.lastIssued) < x.cfg.ReplanInterval {
		return
	}
	if !x.Available() {
		return
	}
	x.failures++
	x.lastIssued = now
	x.logger.Debug("external engine idle before arrival, retrying",
		zap.String("backend", x.name),
		zap.Stringer("target", x.target),
		zap.Int("failures", x.failures),
	)
	if err := x.engine.SetGoal(x.target); err != nil {
		x.logger.Debug("external engine rejected goal", zap.String("backend", x.name), zap.Error(err))
	}
}

// NextStep walks toward the first upcoming node of the engine's path that is
// not the agent's own column.
func (x *External) NextStep(pos world.Coord) (world.Heading, bool) {
	path := x.remaining(pos)
	for _, n := range path {
		if h, ok := stepToward(pos, n); ok {
			return h, true
		}
	}
	return world.Heading{}, false
}

func (x *External) ShouldAscend(pos world.Coord) bool {
	path := x.remaining(pos)
	return len(path) > 0 && path[0].Y > pos.Y
}

// remaining trims the engine path to the part after the node nearest pos.
func (x *External) remaining(pos world.Coord) []world.Coord {
	if x.engine == nil || !x.hasTarget {
		return nil
	}
	path := x.engine.CurrentPath()
	if len(path) == 0 {
		return nil
	}
	best, bestD := 0, path[0].DistSq(pos)
	for i, n := range path {
		if d := n.DistSq(pos); d < bestD {
			best, bestD = i, d
		}
	}
	if bestD == 0 || (path[best].X == pos.X && path[best].Z == pos.Z) {
		best++
	}
	return path[best:]
}

func (x *External) Cancel() {
	if x.engine != nil && x.hasTarget {
		x.engine.Stop()
	}
	x.hasTarget = false
	x.arrived = false
	x.failures = 0
}

func (x *External) Status() Status {
	st := Status{
		Backend:      x.name,
		Available:    x.Available(),
		HasTarget:    x.hasTarget,
		Target:       x.target,
		FailureCount: x.failures,
	}
	if x.engine == nil || !x.hasTarget {
		return st
	}
	st.Searching = x.engine.IsPathing() && len(x.engine.CurrentPath()) == 0
	st.PathLength = len(x.engine.CurrentPath())
	if eta, ok := x.engine.ETA(); ok {
		st.ETASeconds = eta.Seconds()
	}
	return st
}

func (x *External) Path() []world.Coord {
	if x.engine == nil || !x.hasTarget {
		return nil
	}
	return x.engine.CurrentPath()
}
