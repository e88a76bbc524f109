package world

// Grid is a sparse in-memory world. Cells never set read as the fill
// material; cells outside the loaded bounds read as unloaded.
type Grid struct {
	Herd
	cells  map[Coord]Material
	fill   Material
	bounds *Box
	ground *layer
}

// layer reads every unset cell at or below y as m.
type layer struct {
	y int
	m Material
}

// NewGrid returns a grid whose untouched cells are fill, loaded everywhere.
func NewGrid(fill Material) *Grid {
	return &Grid{cells: make(map[Coord]Material), fill: fill}
}

// NewFlat returns an open plane of stone at floorY spanning [-r, r] on x
// and z, loaded from eight cells below the floor to 32 above it.
func NewFlat(r, floorY int) *Grid {
	g := NewGrid(MaterialAir)
	g.SetBounds(NewBox(C(-r, floorY-8, -r), C(r, floorY+32, r)))
	g.ground = &layer{y: floorY, m: MaterialStone}
	return g
}

// SetBounds limits the loaded region to b.
func (g *Grid) SetBounds(b Box) { g.bounds = &b }

func (g *Grid) IsLoaded(c Coord) bool {
	return g.bounds == nil || g.bounds.Contains(c)
}

func (g *Grid) MaterialAt(c Coord) Material {
	if m, ok := g.cells[c]; ok {
		return m
	}
	if g.ground != nil && c.Y <= g.ground.y {
		return g.ground.m
	}
	return g.fill
}

// Set overwrites one cell.
func (g *Grid) Set(c Coord, m Material) { g.cells[c] = m }

// Fill overwrites every cell in b.
func (g *Grid) Fill(b Box, m Material) {
	b.Each(func(c Coord) { g.cells[c] = m })
}

// Floor lays a one-cell-thick slab of m at height y across b's x/z extent.
func (g *Grid) Floor(b Box, y int, m Material) {
	for x := b.Min.X; x <= b.Max.X; x++ {
		for z := b.Min.Z; z <= b.Max.Z; z++ {
			g.cells[Coord{x, y, z}] = m
		}
	}
}
