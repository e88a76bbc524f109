package world

import "math"

// Heading is a travel bearing in the x/z plane. Values built through
// NewHeading are unit length or zero.
type Heading struct {
	X, Z float64
}

// NewHeading normalizes (x, z). A near-zero input yields the zero heading.
func NewHeading(x, z float64) Heading {
	l := math.Hypot(x, z)
	if l < 1e-9 {
		return Heading{}
	}
	return Heading{X: x / l, Z: z / l}
}

// HeadingBetween points from a toward b, ignoring Y.
func HeadingBetween(a, b Coord) Heading {
	return NewHeading(float64(b.X-a.X), float64(b.Z-a.Z))
}

// HeadingFromDegrees builds a heading from a bearing measured from +X toward +Z.
func HeadingFromDegrees(deg float64) Heading {
	r := deg * math.Pi / 180
	return NewHeading(math.Cos(r), math.Sin(r))
}

func (h Heading) IsZero() bool       { return h.X == 0 && h.Z == 0 }
func (h Heading) Len() float64       { return math.Hypot(h.X, h.Z) }
func (h Heading) Normalize() Heading { return NewHeading(h.X, h.Z) }

// Dot is the scalar product; for unit headings it is the cosine of the angle between them.
func (h Heading) Dot(o Heading) float64 { return h.X*o.X + h.Z*o.Z }

// Rotate turns the heading by deg degrees.
func (h Heading) Rotate(deg float64) Heading {
	r := deg * math.Pi / 180
	s, c := math.Sin(r), math.Cos(r)
	return NewHeading(h.X*c-h.Z*s, h.X*s+h.Z*c)
}

// Blend mixes w of o into h and renormalizes. If the mix cancels out, h is kept.
func (h Heading) Blend(o Heading, w float64) Heading {
	out := NewHeading(h.X*(1-w)+o.X*w, h.Z*(1-w)+o.Z*w)
	if out.IsZero() {
		return h
	}
	return out
}

// Degrees returns the bearing in [0, 360).
func (h Heading) Degrees() float64 {
	d := math.Atan2(h.Z, h.X) * 180 / math.Pi
	if d < 0 {
		d += 360
	}
	return d
}

// Step returns the cell reached by moving dist cells along h from c.
func (h Heading) Step(c Coord, dist float64) Coord {
	return Coord{
		X: c.X + int(math.Round(h.X*dist)),
		Y: c.Y,
		Z: c.Z + int(math.Round(h.Z*dist)),
	}
}
