package world

import (
	"fmt"

	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
)

// Query is the read-only view of the world the engine consumes.
type Query interface {
	MaterialAt(c Coord) Material
	IsLoaded(c Coord) bool
}

// Guard wraps a Query so that unloaded cells and panicking lookups
// read as MaterialUnknown. Every engine component reads through a Guard.
type Guard struct {
	inner    Query
	logger   *zap.Logger
	throttle *throttle.Limiter
}

// NewGuard wraps q. A nil logger disables fault logging; a nil limiter logs every fault.
func NewGuard(q Query, logger *zap.Logger, lim *throttle.Limiter) *Guard {
	if g, ok := q.(*Guard); ok {
		return g
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{inner: q, logger: logger, throttle: lim}
}

// MaterialAt never panics. Cells outside the loaded region are MaterialUnknown.
func (g *Guard) MaterialAt(c Coord) (m Material) {
	if g == nil || g.inner == nil {
		return MaterialUnknown
	}
	defer func() {
		if r := recover(); r != nil {
			g.fault("world.material_at", c, r)
			m = MaterialUnknown
		}
	}()
	if !g.inner.IsLoaded(c) {
		return MaterialUnknown
	}
	return g.inner.MaterialAt(c)
}

// IsLoaded reports false on a panicking lookup.
func (g *Guard) IsLoaded(c Coord) (ok bool) {
	if g == nil || g.inner == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			g.fault("world.is_loaded", c, r)
			ok = false
		}
	}()
	return g.inner.IsLoaded(c)
}

func (g *Guard) fault(key string, c Coord, r any) {
	if !g.throttle.Allow(key) {
		return
	}
	g.logger.Warn("world query failed",
		zap.String("op", key),
		zap.Stringer("cell", c),
		zap.String("panic", fmt.Sprint(r)),
	)
}

// Clear reports whether an agent fits at c: the cell and the one above are passable.
func Clear(q Query, c Coord) bool {
	return q.MaterialAt(c).Passable() && q.MaterialAt(c.Up()).Passable()
}

// Standable reports whether an agent can stand at c without falling or taking damage.
func Standable(q Query, c Coord) bool {
	feet := q.MaterialAt(c)
	if feet.Hazard() || !Clear(q, c) {
		return false
	}
	return q.MaterialAt(c.Down()).Support()
}

// OpenLaterals counts the cardinal neighbours of c an agent could step into.
func OpenLaterals(q Query, c Coord) int {
	n := 0
	for _, d := range Lateral4 {
		nb := c.Add(d.X, 0, d.Z)
		if Clear(q, nb) && !q.MaterialAt(nb).Hazard() {
			n++
		}
	}
	return n
}

// SurfaceBelow scans down from c for the first standable cell within depth.
func SurfaceBelow(q Query, c Coord, depth int) (Coord, bool) {
	for i := 0; i <= depth; i++ {
		p := c.Add(0, -i, 0)
		if Standable(q, p) {
			return p, true
		}
	}
	return Coord{}, false
}

// SurfaceNear finds a standable cell in the column of c, searching up and
// down by at most span cells, nearest first.
func SurfaceNear(q Query, c Coord, span int) (Coord, bool) {
	for i := 0; i <= span; i++ {
		if p := c.Add(0, i, 0); Standable(q, p) {
			return p, true
		}
		if i == 0 {
			continue
		}
		if p := c.Add(0, -i, 0); Standable(q, p) {
			return p, true
		}
	}
	return Coord{}, false
}
