// Package backend puts path planning behind one capability so callers never
// know whether the built-in grid search or an external navigation engine is
// doing the work.
package backend

import (
	"errors"
	"time"

	"github.com/kasuganosora/voxelpilot/game/world"
)

var (
	ErrUnavailable = errors.New("backend: unavailable")
	ErrNoTarget    = errors.New("backend: no target")
)

// Status is a read-only snapshot of backend progress.
type Status struct {
	Backend      string        `json:"backend"`
	Available    bool          `json:"available"`
	Searching    bool          `json:"searching"`
	HasTarget    bool          `json:"has_target"`
	Target       world.Coord   `json:"target"`
	PathLength   int           `json:"path_length"`
	FailureCount int           `json:"failure_count"`
	ETASeconds   float64       `json:"eta_seconds"`
	LastSearch   time.Duration `json:"last_search_ns"`
}

// Backend is the path-search capability. Implementations are driven from the
// tick loop and must never block beyond their own search budget.
type Backend interface {
	Name() string
	Available() bool
	// PlanTo replaces the current target and discards any existing path.
	PlanTo(target world.Coord) error
	// Tick advances planning and path following for the agent at pos.
	Tick(now time.Time, pos world.Coord)
	// NextStep is the steering direction from pos, false when no path is held.
	NextStep(pos world.Coord) (world.Heading, bool)
	ShouldAscend(pos world.Coord) bool
	Cancel()
	Status() Status
	Path() []world.Coord
}

// Switcher is a Backend that chooses among several implementations at
// runtime. Callers re-select once per mission and may observe swaps.
type Switcher interface {
	Backend
	Select() Backend
	Switches() int
	SetOnSwitch(fn func(Switch))
}

// Config holds the knobs shared by the backends.
type Config struct {
	MaxFailures    int           `mapstructure:"max_failures"`
	ReplanInterval time.Duration `mapstructure:"replan_interval"`
	Horizon        int           `mapstructure:"horizon"`
	ArrivalSq      int           `mapstructure:"arrival_sq"`
	OffPathSq      int           `mapstructure:"off_path_sq"`
	SurfaceSpan    int           `mapstructure:"surface_span"`
}

func DefaultConfig() Config {
	return Config{
		MaxFailures:    3,
		ReplanInterval: time.Second,
		Horizon:        48,
		ArrivalSq:      9,
		OffPathSq:      16,
		SurfaceSpan:    24,
	}
}

// follow returns the index of the first path node the agent at pos still
// has to reach. A node is reached once the agent stands in its column; a few
// nodes of lookahead let the agent skip corners it has already cut.
func follow(path []world.Coord, idx int, pos world.Coord) int {
	const lookahead = 3
	for i := idx; i < len(path) && i < idx+lookahead; i++ {
		if path[i].X == pos.X && path[i].Z == pos.Z {
			return follow(path, i+1, pos)
		}
	}
	return idx
}

func stepToward(pos, n world.Coord) (world.Heading, bool) {
	h := world.HeadingBetween(pos, n)
	return h, !h.IsZero()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
