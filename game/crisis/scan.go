package crisis

import (
	"math"

	"github.com/kasuganosora/voxelpilot/game/world"
)

// Shelter is a place to hide. Natural shelters have cover already; dug
// shelters are a diggable block the agent should tunnel into.
type Shelter struct {
	Pos     world.Coord `json:"pos"`
	Natural bool        `json:"natural"`
}

// ScanConfig bounds the survival scans.
type ScanConfig struct {
	ShelterRadii []int `mapstructure:"shelter_radii"`
	ShelterAngle int   `mapstructure:"shelter_angle"`
	RoofScan     int   `mapstructure:"roof_scan"`
	DigRadius    int   `mapstructure:"dig_radius"`
	FoodRadius   int   `mapstructure:"food_radius"`
	WoodRadius   int   `mapstructure:"wood_radius"`
	StoneRadius  int   `mapstructure:"stone_radius"`
	VerticalSpan int   `mapstructure:"vertical_span"`
	SurfaceSnap  int   `mapstructure:"surface_snap"`
}

func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		ShelterRadii: []int{5, 10, 15, 20},
		ShelterAngle: 45,
		RoofScan:     5,
		DigRadius:    10,
		FoodRadius:   30,
		WoodRadius:   20,
		StoneRadius:  15,
		VerticalSpan: 5,
		SurfaceSnap:  3,
	}
}

// FindShelter searches rings around pos for natural cover, then falls back to
// the nearest diggable block within DigRadius.
func FindShelter(q world.Query, pos world.Coord, cfg ScanConfig) (Shelter, bool) {
	step := cfg.ShelterAngle
	if step <= 0 {
		step = 45
	}
	for _, r := range cfg.ShelterRadii {
		for deg := 0; deg < 360; deg += step {
			rad := float64(deg) * math.Pi / 180
			c := pos.Add(int(math.Round(float64(r)*math.Cos(rad))), 0, int(math.Round(float64(r)*math.Sin(rad))))
			if s, ok := world.SurfaceNear(q, c, cfg.SurfaceSnap); ok && IsShelter(q, s, cfg.RoofScan) {
				return Shelter{Pos: s, Natural: true}, true
			}
		}
	}
	if c, ok := nearestDiggable(q, pos, cfg.DigRadius); ok {
		return Shelter{Pos: c}, true
	}
	return Shelter{}, false
}

// IsShelter reports whether an agent at c has a roof within roofScan cells
// above its head and solid blocks on at least two sides.
func IsShelter(q world.Query, c world.Coord, roofScan int) bool {
	if !world.Standable(q, c) {
		return false
	}
	roof := false
	for dy := 2; dy <= roofScan+1; dy++ {
		if q.MaterialAt(c.Add(0, dy, 0)).Solid() {
			roof = true
			break
		}
	}
	if !roof {
		return false
	}
	walls := 0
	for _, d := range world.Lateral4 {
		if q.MaterialAt(c.Add(d.X, 0, d.Z)).Solid() {
			walls++
		}
	}
	return walls >= 2
}

func nearestDiggable(q world.Query, pos world.Coord, radius int) (world.Coord, bool) {
	var best world.Coord
	bestD := math.MaxInt
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			c := pos.Add(dx, 0, dz)
			if !q.MaterialAt(c).Diggable() {
				continue
			}
			if d := c.DistSq(pos); d < bestD {
				best, bestD = c, d
			}
		}
	}
	return best, bestD != math.MaxInt
}

// Nearest finds the closest block matching pred, scanning square shells
// outward to radius and span cells up and down.
func Nearest(q world.Query, pos world.Coord, radius, span int, pred func(world.Material) bool) (world.Coord, bool) {
	for r := 0; r <= radius; r++ {
		var best world.Coord
		bestD := math.MaxInt
		shell(r, func(dx, dz int) {
			for dy := -span; dy <= span; dy++ {
				c := pos.Add(dx, dy, dz)
				if !pred(q.MaterialAt(c)) {
					continue
				}
				if d := c.DistSq(pos); d < bestD {
					best, bestD = c, d
				}
			}
		})
		if bestD != math.MaxInt {
			return best, true
		}
	}
	return world.Coord{}, false
}

// shell visits the offsets whose Chebyshev distance from the origin is r.
func shell(r int, fn func(dx, dz int)) {
	if r == 0 {
		fn(0, 0)
		return
	}
	for d := -r; d <= r; d++ {
		fn(d, -r)
		fn(d, r)
	}
	for d := -r + 1; d <= r-1; d++ {
		fn(-r, d)
		fn(r, d)
	}
}
