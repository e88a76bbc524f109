package world

import (
	"fmt"
	"math"
)

// Coord is an integer cell position in the voxel grid. Y is vertical.
type Coord struct {
	X, Y, Z int
}

// C is shorthand for building a Coord.
func C(x, y, z int) Coord { return Coord{X: x, Y: y, Z: z} }

func (c Coord) Add(dx, dy, dz int) Coord { return Coord{c.X + dx, c.Y + dy, c.Z + dz} }
func (c Coord) Up() Coord                { return Coord{c.X, c.Y + 1, c.Z} }
func (c Coord) Down() Coord              { return Coord{c.X, c.Y - 1, c.Z} }
func (c Coord) Sub(o Coord) Coord        { return Coord{c.X - o.X, c.Y - o.Y, c.Z - o.Z} }

// DistSq is the squared 3D distance between two cells.
func (c Coord) DistSq(o Coord) int {
	dx, dy, dz := c.X-o.X, c.Y-o.Y, c.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// HorizontalDist is the Euclidean distance in the x/z plane.
func (c Coord) HorizontalDist(o Coord) float64 {
	dx, dz := float64(c.X-o.X), float64(c.Z-o.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z) }

// Lateral4 are the cardinal offsets in the x/z plane.
var Lateral4 = [4]Coord{{1, 0, 0}, {-1, 0, 0}, {0, 0, 1}, {0, 0, -1}}

// Lateral8 adds the four diagonals to Lateral4.
var Lateral8 = [8]Coord{
	{1, 0, 0}, {-1, 0, 0}, {0, 0, 1}, {0, 0, -1},
	{1, 0, 1}, {1, 0, -1}, {-1, 0, 1}, {-1, 0, -1},
}

// Box is an inclusive axis-aligned cell region.
type Box struct {
	Min, Max Coord
}

// NewBox orders the corners so Min <= Max on every axis.
func NewBox(a, b Coord) Box {
	return Box{
		Min: Coord{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)},
		Max: Coord{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)},
	}
}

func (b Box) Contains(c Coord) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// Each calls fn for every cell in the box.
func (b Box) Each(fn func(Coord)) {
	for x := b.Min.X; x <= b.Max.X; x++ {
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			for z := b.Min.Z; z <= b.Max.Z; z++ {
				fn(Coord{x, y, z})
			}
		}
	}
}
