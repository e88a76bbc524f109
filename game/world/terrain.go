package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// TerrainConfig parameterizes procedural generation.
type TerrainConfig struct {
	Seed       int64   `mapstructure:"seed"`
	SeaLevel   int     `mapstructure:"sea_level"`
	BaseHeight int     `mapstructure:"base_height"`
	Amplitude  float64 `mapstructure:"amplitude"`
	Frequency  float64 `mapstructure:"frequency"`
	Octaves    int     `mapstructure:"octaves"`
	LavaChance float64 `mapstructure:"lava_chance"`
	TreeChance float64 `mapstructure:"tree_chance"`
	ViewRadius int     `mapstructure:"view_radius"`
	MinY       int     `mapstructure:"min_y"`
	MaxY       int     `mapstructure:"max_y"`
}

// DefaultTerrainConfig returns rolling hills around y=64 with a small view radius.
func DefaultTerrainConfig() TerrainConfig {
	return TerrainConfig{
		Seed:       1,
		SeaLevel:   62,
		BaseHeight: 66,
		Amplitude:  14,
		Frequency:  0.008,
		Octaves:    4,
		LavaChance: 0.015,
		TreeChance: 0.02,
		ViewRadius: 160,
		MinY:       -64,
		MaxY:       320,
	}
}

// Terrain is an infinite procedurally generated world with a mutable overlay
// for cells changed by digging. Only a square around the anchor is loaded,
// and the only animals are those a host adds. Terrain is not safe for
// concurrent mutation.
type Terrain struct {
	Herd
	cfg     TerrainConfig
	elev    opensimplex.Noise
	feature opensimplex.Noise
	anchor  Coord
	overlay map[Coord]Material
}

func NewTerrain(cfg TerrainConfig) *Terrain {
	if cfg.Octaves <= 0 {
		cfg.Octaves = 1
	}
	return &Terrain{
		cfg:     cfg,
		elev:    opensimplex.NewNormalized(cfg.Seed),
		feature: opensimplex.NewNormalized(cfg.Seed + 1),
		overlay: make(map[Coord]Material),
	}
}

// SetAnchor moves the centre of the loaded region, typically to the agent.
func (t *Terrain) SetAnchor(c Coord) { t.anchor = c }

// Set overrides one cell, e.g. Air after a dig.
func (t *Terrain) Set(c Coord, m Material) { t.overlay[c] = m }

func (t *Terrain) IsLoaded(c Coord) bool {
	if c.Y < t.cfg.MinY || c.Y > t.cfg.MaxY {
		return false
	}
	r := t.cfg.ViewRadius
	return abs(c.X-t.anchor.X) <= r && abs(c.Z-t.anchor.Z) <= r
}

// HeightAt is the y of the top solid cell of the column.
func (t *Terrain) HeightAt(x, z int) int {
	n := octaveNoise(t.elev, float64(x), float64(z), t.cfg.Octaves, t.cfg.Frequency, 0.5)
	return t.cfg.BaseHeight + int(math.Round((n-0.5)*2*t.cfg.Amplitude))
}

func (t *Terrain) MaterialAt(c Coord) Material {
	if m, ok := t.overlay[c]; ok {
		return m
	}
	if c.Y <= t.cfg.MinY {
		return MaterialBedrock
	}
	h := t.HeightAt(c.X, c.Z)
	f := t.feature.Eval2(float64(c.X)*0.37, float64(c.Z)*0.37)
	switch {
	case c.Y > h:
		if c.Y <= t.cfg.SeaLevel {
			return MaterialWater
		}
		if h >= t.cfg.SeaLevel+2 && f > 1-t.cfg.TreeChance && c.Y <= h+4 {
			return MaterialLog
		}
		if c.Y == h+1 && f < 0.25 && h > t.cfg.SeaLevel {
			return MaterialTallGrass
		}
		return MaterialAir
	case c.Y == h:
		if f < t.cfg.LavaChance && h > t.cfg.SeaLevel {
			return MaterialLava
		}
		if h <= t.cfg.SeaLevel+1 {
			return MaterialSand
		}
		return MaterialGrass
	case c.Y > h-4:
		return MaterialDirt
	default:
		if f > 0.9 && c.Y < h-8 {
			return MaterialCoalOre
		}
		return MaterialStone
	}
}

// SpawnPoint returns a standable cell at the surface of column (x, z),
// searching outward if that column is water or lava.
func (t *Terrain) SpawnPoint(x, z int) Coord {
	for r := 0; r < 64; r++ {
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				if abs(dx) != r && abs(dz) != r {
					continue
				}
				h := t.HeightAt(x+dx, z+dz)
				c := Coord{x + dx, h + 1, z + dz}
				if t.MaterialAt(c.Down()).Support() && t.MaterialAt(c).Passable() && t.MaterialAt(c.Up()).Passable() {
					return c
				}
			}
		}
	}
	return Coord{x, t.HeightAt(x, z) + 1, z}
}

// octaveNoise layers several frequencies of noise into a [0,1] value.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
