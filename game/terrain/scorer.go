// Package terrain rates candidate travel directions by sampling the ground
// along them. Scores are heuristics used to rank a handful of headings.
package terrain

import (
	"math"

	"github.com/kasuganosora/voxelpilot/game/world"
)

// Config holds the sampling geometry and score weights.
// The ground scan starts ScanAbove cells over the origin, capped at ScanCeiling.
type Config struct {
	SampleStart int `mapstructure:"sample_start"`
	SampleStep  int `mapstructure:"sample_step"`
	ScanAbove   int `mapstructure:"scan_above"`
	ScanCeiling int `mapstructure:"scan_ceiling"`
	ScanFloor   int `mapstructure:"scan_floor"`
	HighGround  int `mapstructure:"high_ground"`
	LowGround   int `mapstructure:"low_ground"`
}

func DefaultConfig() Config {
	return Config{
		SampleStart: 100,
		SampleStep:  200,
		ScanAbove:   50,
		ScanCeiling: 250,
		ScanFloor:   -60,
		HighGround:  80,
		LowGround:   40,
	}
}

const (
	baseScore      = 0.5
	unloadedScore  = 0.3
	voidScore      = 0.1
	waterPenalty   = 0.3
	lavaPenalty    = 0.5
	roughPenalty   = 0.2
	obstacleWeight = 0.2
	elevationBonus = 0.1
	waterCoverage  = 0.6
	obstacleSolids = 6 // more than this many of 9 columns
)

// Sample is the breakdown of one scored point.
type Sample struct {
	Pos       world.Coord
	Loaded    bool
	Ground    int
	HasGround bool
	Water     bool
	Lava      bool
	Obstacle  bool
	Roughness float64
	Score     float64
}

// Scorer is a pure function of its world view.
type Scorer struct {
	q   world.Query
	cfg Config
}

func NewScorer(q world.Query, cfg Config) *Scorer {
	if cfg.SampleStep <= 0 {
		cfg.SampleStep = DefaultConfig().SampleStep
	}
	return &Scorer{q: q, cfg: cfg}
}

// Score averages the samples taken along dir from origin out to
// sampleDistance. The result is in [0, 1]; 0.5 when no sample fits.
func (s *Scorer) Score(origin world.Coord, dir world.Heading, sampleDistance int) float64 {
	total, n := 0.0, 0
	for d := s.cfg.SampleStart; d <= sampleDistance; d += s.cfg.SampleStep {
		p := world.Coord{
			X: origin.X + int(dir.X*float64(d)),
			Y: origin.Y,
			Z: origin.Z + int(dir.Z*float64(d)),
		}
		total += s.SampleAt(p).Score
		n++
	}
	if n == 0 {
		return baseScore
	}
	return total / float64(n)
}

// Best returns the highest scoring candidate; ties keep the earlier one.
func (s *Scorer) Best(origin world.Coord, candidates []world.Heading, sampleDistance int) (world.Heading, float64) {
	if len(candidates) == 0 {
		return world.Heading{}, 0
	}
	best, bestScore := candidates[0], 0.0
	for _, c := range candidates {
		if sc := s.Score(origin, c, sampleDistance); sc > bestScore {
			best, bestScore = c, sc
		}
	}
	return best, bestScore
}

// SampleAt scores a single point.
func (s *Scorer) SampleAt(p world.Coord) Sample {
	out := Sample{Pos: p}
	if !s.q.IsLoaded(p) {
		out.Score = unloadedScore
		return out
	}
	out.Loaded = true

	ground, ok := s.groundLevel(p)
	if !ok {
		out.Score = voidScore
		return out
	}
	out.Ground, out.HasGround = ground, true

	score := baseScore
	if out.Water = s.waterArea(p, ground); out.Water {
		score -= waterPenalty
	}
	if out.Lava = s.lavaArea(p, ground); out.Lava {
		score -= lavaPenalty
	}
	out.Roughness = s.roughness(p, ground)
	score -= out.Roughness * roughPenalty
	if out.Obstacle = s.obstructed(p); out.Obstacle {
		score -= obstacleWeight
	}
	switch {
	case ground > s.cfg.HighGround:
		score += elevationBonus
	case ground < s.cfg.LowGround:
		score -= elevationBonus
	}
	out.Score = math.Max(0, math.Min(1, score))
	return out
}

// groundLevel scans down for the first solid cell. Liquids, hazards and
// vegetation are skipped.
func (s *Scorer) groundLevel(p world.Coord) (int, bool) {
	top := min(p.Y+s.cfg.ScanAbove, s.cfg.ScanCeiling)
	for y := top; y >= s.cfg.ScanFloor; y-- {
		if s.q.MaterialAt(world.Coord{X: p.X, Y: y, Z: p.Z}).Solid() {
			return y, true
		}
	}
	return 0, false
}

func (s *Scorer) waterArea(c world.Coord, ground int) bool {
	water, total := 0, 0
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			if s.q.MaterialAt(world.Coord{X: c.X + x, Y: ground + 1, Z: c.Z + z}) == world.MaterialWater {
				water++
			}
			total++
		}
	}
	return float64(water)/float64(total) > waterCoverage
}

func (s *Scorer) lavaArea(c world.Coord, ground int) bool {
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			for y := -2; y <= 2; y++ {
				if s.q.MaterialAt(world.Coord{X: c.X + x, Y: ground + y, Z: c.Z + z}).Hazard() {
					return true
				}
			}
		}
	}
	return false
}

// roughness is the mean ground-height difference to the eight neighbouring
// columns, scaled so a 10-cell average maps to 1.
func (s *Scorer) roughness(c world.Coord, ground int) float64 {
	sum, n := 0, 0
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			if x == 0 && z == 0 {
				continue
			}
			g, ok := s.groundLevel(world.Coord{X: c.X + x, Y: c.Y, Z: c.Z + z})
			if !ok {
				continue
			}
			sum += abs(g - ground)
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return math.Min(1, float64(sum)/float64(n)/10)
}

// obstructed reports a large solid mass at travel height: somewhere in the
// 20 cells above the sample the column is solid along with most of its
// neighbours.
func (s *Scorer) obstructed(c world.Coord) bool {
	for y := c.Y + 1; y <= c.Y+20; y++ {
		at := world.Coord{X: c.X, Y: y, Z: c.Z}
		if !s.q.MaterialAt(at).Solid() {
			continue
		}
		solid := 0
		for x := -1; x <= 1; x++ {
			for z := -1; z <= 1; z++ {
				if s.q.MaterialAt(at.Add(x, 0, z)).Solid() {
					solid++
				}
			}
		}
		if solid > obstacleSolids {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
