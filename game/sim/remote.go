package sim

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/backend"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
	"go.uber.org/zap"
)

// Remote stands in for an out-of-process navigation engine. It keeps its
// own planner and pursues one goal at a time on behalf of the agent read
// from src. It can be switched off to exercise backend failover.
type Remote struct {
	src     player.Source
	planner *backend.Grid
	speed   float64
	now     func() time.Time

	available atomic.Bool
	goal      world.Coord
	active    bool
	arrivalSq int
}

// NewRemote plans through its own searcher over q. speed is the agent's ground
// speed in cells per second, used for ETA estimates.
func NewRemote(q world.Query, src player.Source, search ai.SearchConfig, cfg backend.Config, speed float64, logger *zap.Logger) *Remote {
	if speed <= 0 {
		speed = player.DefaultBodyConfig().WalkSpeed
	}
	r := &Remote{
		src:       src,
		planner:   backend.NewGrid(q, ai.NewSearcher(q, search), cfg, logger),
		speed:     speed,
		now:       time.Now,
		arrivalSq: cfg.ArrivalSq,
	}
	r.available.Store(true)
	return r
}

// SetAvailable connects or disconnects the engine. Safe for concurrent use.
func (r *Remote) SetAvailable(ok bool) { r.available.Store(ok) }

func (r *Remote) Available() bool { return r.available.Load() }

func (r *Remote) SetGoal(target world.Coord) error {
	if !r.Available() {
		return backend.ErrUnavailable
	}
	r.goal, r.active = target, true
	if err := r.planner.PlanTo(target); err != nil {
		return err
	}
	r.planner.Tick(r.now(), r.src.State().Position)
	return nil
}

// IsPathing advances the planner and reports whether the goal is still
// being pursued. A goal whose searches keep failing is abandoned.
func (r *Remote) IsPathing() bool {
	if !r.active || !r.Available() {
		return false
	}
	pos := r.src.State().Position
	if pos.DistSq(r.goal) < r.arrivalSq {
		r.Stop()
		return false
	}
	r.planner.Tick(r.now(), pos)
	if st := r.planner.Status(); st.PathLength == 0 && st.FailureCount > 0 {
		r.Stop()
		return false
	}
	return true
}

func (r *Remote) CurrentPath() []world.Coord {
	if !r.active {
		return nil
	}
	return r.planner.Path()
}

func (r *Remote) ETA() (time.Duration, bool) {
	n := r.planner.Status().PathLength
	if !r.active || n == 0 {
		return 0, false
	}
	secs := float64(n) / r.speed
	return time.Duration(math.Round(secs * float64(time.Second))), true
}

func (r *Remote) Stop() {
	r.active = false
	r.planner.Cancel()
}

var _ backend.Engine = (*Remote)(nil)
