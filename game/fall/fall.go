// Package fall watches for long drops and asks for something to land on:
// water at the landing cell when a bucket is carried, otherwise a block
// directly under the agent.
package fall

import (
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
)

// Config sets when a fall counts as dangerous.
type Config struct {
	Enabled   bool    `mapstructure:"enabled"`
	MinDrop   int     `mapstructure:"min_drop"`   // cells to the ground below
	ScanDepth int     `mapstructure:"scan_depth"` // cells scanned for ground
	MinSpeed  float64 `mapstructure:"min_speed"`  // downward cells per second
}

func DefaultConfig() Config {
	return Config{Enabled: true, MinDrop: 8, ScanDepth: 30, MinSpeed: 10}
}

// Kind is the protective measure taken.
type Kind int

const (
	KindNone Kind = iota
	KindWaterBucket
	KindPlatform
)

func (k Kind) String() string {
	switch k {
	case KindWaterBucket:
		return "water_bucket"
	case KindPlatform:
		return "platform"
	default:
		return "none"
	}
}

// Action is one placement that breaks a fall.
type Action struct {
	Kind  Kind
	Place player.Placement
	// Drop is the distance to the ground, ScanDepth+1 when none was found.
	Drop int
}

// Guard fires at most once per fall, rearming when the agent lands or the
// danger passes.
type Guard struct {
	cfg      Config
	q        world.Query
	logger   *zap.Logger
	throttle *throttle.Limiter

	armed bool
	saves int
}

func New(q world.Query, cfg Config, logger *zap.Logger, lim *throttle.Limiter) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ScanDepth <= 0 {
		cfg.ScanDepth = DefaultConfig().ScanDepth
	}
	return &Guard{cfg: cfg, q: q, logger: logger, throttle: lim, armed: true}
}

// Ground finds the first cell below pos that will stop a fall. A liquid
// stops it safely and reports safe true.
func (g *Guard) Ground(pos world.Coord) (c world.Coord, drop int, safe bool) {
	for i := 1; i <= g.cfg.ScanDepth; i++ {
		c = pos.Add(0, -i, 0)
		m := g.q.MaterialAt(c)
		if m == world.MaterialWater {
			return c, i - 1, true
		}
		if !m.Passable() {
			return c, i - 1, false
		}
	}
	return world.Coord{}, g.cfg.ScanDepth + 1, false
}

// Dangerous reports whether s is falling fast toward ground more than
// MinDrop cells below.
func (g *Guard) Dangerous(s player.State) (drop int, ok bool) {
	if !g.cfg.Enabled || s.OnGround || s.TouchingLiquid || -s.Velocity.Y < g.cfg.MinSpeed {
		return 0, false
	}
	_, drop, safe := g.Ground(s.Position)
	return drop, !safe && drop > g.cfg.MinDrop
}

// Check returns the placement to make this tick. It reports false when
// the agent is safe, when this fall was already handled, or when nothing
// suitable is carried.
func (g *Guard) Check(s player.State) (Action, bool) {
	drop, danger := g.Dangerous(s)
	if !danger {
		g.armed = true
		return Action{}, false
	}
	if !g.armed {
		return Action{}, false
	}
	g.armed = false

	a := Action{Drop: drop}
	ground, _, _ := g.Ground(s.Position)
	switch {
	case s.Inventory.Has(item.WaterBucket) && drop <= g.cfg.ScanDepth:
		a.Kind = KindWaterBucket
		a.Place = player.Placement{At: ground.Up(), Item: item.WaterBucket}
	default:
		b, ok := s.Inventory.BestBlock()
		if !ok {
			if g.throttle.Allow("fall.unprotected") {
				g.logger.Warn("falling with nothing to place", zap.Stringer("pos", s.Position), zap.Int("drop", drop))
			}
			return Action{}, false
		}
		a.Kind = KindPlatform
		a.Place = player.Placement{At: s.Position.Down(), Item: b}
	}
	g.saves++
	g.logger.Info("breaking fall",
		zap.String("kind", a.Kind.String()),
		zap.Stringer("at", a.Place.At),
		zap.Int("drop", drop),
	)
	return a, true
}

// Saves counts placements requested so far.
func (g *Guard) Saves() int { return g.saves }
