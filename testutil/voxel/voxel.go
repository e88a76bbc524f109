// Package voxel builds small in-memory worlds for tests.
package voxel

import "github.com/kasuganosora/voxelpilot/game/world"

// FlatWorld is an open plane of stone at floorY spanning [-r, r] on x and z.
// Everything outside the span is unloaded.
func FlatWorld(r, floorY int) *world.Grid { return world.NewFlat(r, floorY) }

// Corridor is a walled strip along +x at floor height floorY: open cells
// for z in [-halfWidth, halfWidth], stone walls just outside.
func Corridor(fromX, toX, floorY, halfWidth int) *world.Grid {
	g := world.NewGrid(world.MaterialAir)
	g.SetBounds(world.NewBox(world.C(fromX-2, floorY-2, -halfWidth-2), world.C(toX+2, floorY+6, halfWidth+2)))
	g.Floor(world.NewBox(world.C(fromX-2, 0, -halfWidth-2), world.C(toX+2, 0, halfWidth+2)), floorY, world.MaterialStone)
	for _, z := range []int{-halfWidth - 1, halfWidth + 1} {
		g.Fill(world.NewBox(world.C(fromX-2, floorY+1, z), world.C(toX+2, floorY+4, z)), world.MaterialStone)
	}
	return g
}

// Seal encases the two-cell-tall space at c in a bedrock block of the given
// thickness so nothing can enter or leave it. A thickness of 3 also keeps
// every cell within the default goal tolerance out of reach.
func Seal(g *world.Grid, c world.Coord, thickness int) {
	t := thickness
	g.Fill(world.NewBox(c.Add(-t, -t, -t), c.Add(t, t+1, t)), world.MaterialBedrock)
	g.Set(c, world.MaterialAir)
	g.Set(c.Up(), world.MaterialAir)
}

// Bury fills the agent's feet and head cells at c with m.
func Bury(g *world.Grid, c world.Coord, m world.Material) {
	g.Set(c, m)
	g.Set(c.Up(), m)
}
