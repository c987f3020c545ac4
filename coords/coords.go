package coords

// Matrix is a PDF affine transform [a b c d e f].
type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Multiply returns m followed by o, the order the cm operator composes in.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }

// Box is a page rectangle in native PDF units, lower-left origin.
type Box struct {
	LLX, LLY, URX, URY float64
}

func (b Box) Width() float64  { return b.URX - b.LLX }
func (b Box) Height() float64 { return b.URY - b.LLY }

// TopLeft maps coordinates measured from the box's top-left corner, y
// growing downwards, to native coordinates.
func (b Box) TopLeft() Matrix { return Matrix{1, 0, 0, -1, b.LLX, b.URY} }

// FromTopLeft maps one top-left point to native coordinates.
func (b Box) FromTopLeft(x, y float64) Point {
	return b.TopLeft().Transform(Point{X: x, Y: y})
}

// Placement returns the cm matrix that maps the unit square onto a w x h
// rectangle whose top-left corner sits at (x, y) in top-left coordinates.
func (b Box) Placement(x, y, w, h float64) Matrix {
	origin := b.FromTopLeft(x, y+h)
	return Scale(w, h).Multiply(Translate(origin.X, origin.Y))
}
