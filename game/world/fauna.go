package world

// Fauna is implemented by worlds that track huntable animals.
type Fauna interface {
	// FaunaNear counts animals within r cells of c horizontally and vertically.
	FaunaNear(c Coord, r int) int
	// Catch removes one animal standing at c.
	Catch(c Coord) bool
}

// Herd places animals on cells. The zero value is empty and ready to use;
// Grid and Terrain embed one to implement Fauna.
type Herd struct {
	at map[Coord]int
}

// AddFauna puts n animals at c.
func (h *Herd) AddFauna(c Coord, n int) {
	if n <= 0 {
		return
	}
	if h.at == nil {
		h.at = make(map[Coord]int)
	}
	h.at[c] += n
}

func (h *Herd) FaunaNear(c Coord, r int) int {
	n := 0
	for p, k := range h.at {
		if abs(p.X-c.X) <= r && abs(p.Y-c.Y) <= r && abs(p.Z-c.Z) <= r {
			n += k
		}
	}
	return n
}

func (h *Herd) Catch(c Coord) bool {
	if h.at[c] == 0 {
		return false
	}
	if h.at[c]--; h.at[c] == 0 {
		delete(h.at, c)
	}
	return true
}
