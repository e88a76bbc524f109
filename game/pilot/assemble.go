package pilot

import (
	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/backend"
	"github.com/kasuganosora/voxelpilot/game/crisis"
	"github.com/kasuganosora/voxelpilot/game/fall"
	"github.com/kasuganosora/voxelpilot/game/navigator"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/recovery"
	"github.com/kasuganosora/voxelpilot/game/terrain"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
)

// Options gathers every component's configuration.
type Options struct {
	Engine    Config
	Search    ai.SearchConfig
	Terrain   terrain.Config
	Backend   backend.Config
	Navigator navigator.Config
	Recovery  recovery.Config
	Crisis    crisis.Config
	Fall      fall.Config
}

func DefaultOptions() Options {
	return Options{
		Engine:    DefaultConfig(),
		Search:    ai.DefaultSearchConfig(ai.StrategyFull),
		Terrain:   terrain.DefaultConfig(),
		Backend:   backend.DefaultConfig(),
		Navigator: navigator.DefaultConfig(),
		Recovery:  recovery.DefaultConfig(),
		Crisis:    crisis.DefaultConfig(),
		Fall:      fall.DefaultConfig(),
	}
}

// Assemble wires a complete engine over q. ext is an optional external
// navigation engine, preferred over the built-in grid search while it is
// available.
func Assemble(q world.Query, src player.Source, ext backend.Engine, opts Options, logger *zap.Logger, lim *throttle.Limiter) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := world.NewGuard(q, logger.Named("world"), lim)

	var candidates []backend.Backend
	if ext != nil {
		candidates = append(candidates, backend.NewExternal("external", ext, opts.Backend, logger.Named("backend")))
	}
	searcher := ai.NewSearcher(g, opts.Search)
	candidates = append(candidates, backend.NewGrid(g, searcher, opts.Backend, logger.Named("backend")))
	sel := backend.NewSelector(opts.Backend.MaxFailures, logger.Named("backend"), lim, candidates...)

	var scorer *terrain.Scorer
	if opts.Navigator.ScoringEnabled {
		scorer = terrain.NewScorer(g, opts.Terrain)
	}
	nav := navigator.New(g, scorer, sel, opts.Navigator, logger.Named("navigator"), lim)
	rec := recovery.New(g, opts.Recovery, logger.Named("recovery"), lim)
	cm := crisis.New(g, opts.Crisis, logger.Named("crisis"), lim)
	e := New(g, src, nav, rec, cm, opts.Engine, logger.Named("pilot"), lim)
	if opts.Fall.Enabled {
		e.SetFallGuard(fall.New(g, opts.Fall, logger.Named("fall"), lim))
	}
	return e
}
