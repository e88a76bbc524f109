// Package resource loads scenario files: small hand-built worlds that
// reproduce a navigation or survival situation on demand.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/world"
)

// ErrInvalid wraps every scenario validation failure.
var ErrInvalid = errors.New("resource: invalid scenario")

// Cell is a coordinate written as [x, y, z].
type Cell [3]int

func (c Cell) Coord() world.Coord { return world.C(c[0], c[1], c[2]) }

// Structure edits the base plane.
//
//	fill   every cell in the box from..to
//	floor  a one-cell slab at y across from..to
//	set    the single cell at
type Structure struct {
	Op       string         `json:"op"`
	From     Cell           `json:"from"`
	To       Cell           `json:"to"`
	At       Cell           `json:"at"`
	Y        int            `json:"y"`
	Material world.Material `json:"material"`
}

// Scenario is a flat plane plus structures, with the agent's starting
// state.
type Scenario struct {
	Name       string         `json:"name"`
	Radius     int            `json:"radius"`
	FloorY     int            `json:"floor_y"`
	Spawn      Cell           `json:"spawn"`
	Heading    *float64       `json:"heading,omitempty"`
	Health     *float64       `json:"health,omitempty"`
	Hunger     *int           `json:"hunger,omitempty"`
	Inventory  map[string]int `json:"inventory"`
	Structures []Structure    `json:"structures"`

	// Animals holds one huntable animal per entry.
	Animals []Cell `json:"animals,omitempty"`
}

// Load reads and validates one scenario file. A scenario without a name
// takes the file's base name.
func Load(path string) (*Scenario, error) {
	var sc Scenario
	if err := loadJSONObject(path, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("resource: %s: %w", path, err)
	}
	return &sc, nil
}

// LoadDir loads every *.json scenario in dir, keyed by name.
func LoadDir(dir string) (map[string]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make(map[string]*Scenario, len(paths))
	for _, p := range paths {
		sc, err := Load(p)
		if err != nil {
			return nil, err
		}
		if _, dup := out[sc.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q in %s", ErrInvalid, sc.Name, p)
		}
		out[sc.Name] = sc
	}
	return out, nil
}

func loadJSONObject[T any](path string, out *T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("resource: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return nil
}

// Validate reports every problem at once.
func (sc *Scenario) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	if sc.Radius <= 0 {
		bad("radius must be positive")
	}
	if s := sc.Spawn; abs(s[0]) > sc.Radius || abs(s[2]) > sc.Radius {
		bad("spawn %v outside radius %d", s, sc.Radius)
	}
	for name, n := range sc.Inventory {
		if _, ok := item.Parse(name); !ok {
			bad("unknown item %q", name)
		} else if n < 0 {
			bad("negative count for %q", name)
		}
	}
	for i, st := range sc.Structures {
		switch st.Op {
		case "fill", "floor", "set":
		default:
			bad("structure %d: unknown op %q", i, st.Op)
		}
		if st.Material == world.MaterialUnknown {
			bad("structure %d: material is required", i)
		}
	}
	for i, a := range sc.Animals {
		if abs(a[0]) > sc.Radius || abs(a[2]) > sc.Radius {
			bad("animal %d at %v outside radius %d", i, a, sc.Radius)
		}
	}
	return errors.Join(errs...)
}

// Build materializes the world.
func (sc *Scenario) Build() *world.Grid {
	g := world.NewFlat(sc.Radius, sc.FloorY)
	for _, st := range sc.Structures {
		switch st.Op {
		case "fill":
			g.Fill(world.NewBox(st.From.Coord(), st.To.Coord()), st.Material)
		case "floor":
			g.Floor(world.NewBox(st.From.Coord(), st.To.Coord()), st.Y, st.Material)
		case "set":
			g.Set(st.At.Coord(), st.Material)
		}
	}
	for _, a := range sc.Animals {
		g.AddFauna(a.Coord(), 1)
	}
	return g
}

// Items converts the inventory to item counts.
func (sc *Scenario) Items() map[item.Item]int {
	out := make(map[item.Item]int, len(sc.Inventory))
	for name, n := range sc.Inventory {
		if i, ok := item.Parse(name); ok {
			out[i] = n
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
