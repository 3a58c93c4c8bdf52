package model

import "math"

// Point2D represents a 2D coordinate in mm.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p + q.
func (p Point2D) Add(q Point2D) Point2D {
	return Point2D{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point2D) Sub(q Point2D) Point2D {
	return Point2D{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the euclidean distance between p and q.
func (p Point2D) Distance(q Point2D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Outline represents a closed polygon as a sequence of 2D points.
// The outline is implicitly closed: the last point connects back to the first.
type Outline []Point2D

// BoundingBox returns the min and max corners of the outline.
func (o Outline) BoundingBox() (min, max Point2D) {
	if len(o) == 0 {
		return Point2D{}, Point2D{}
	}
	min = Point2D{X: o[0].X, Y: o[0].Y}
	max = Point2D{X: o[0].X, Y: o[0].Y}
	for _, p := range o[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max
}

// Bounds returns the axis-aligned bounding rectangle of the outline.
func (o Outline) Bounds() Rect {
	min, max := o.BoundingBox()
	return Rect{MinX: min.X, MinY: min.Y, MaxX: max.X, MaxY: max.Y}
}

// Translate shifts all points by dx, dy.
func (o Outline) Translate(dx, dy float64) Outline {
	result := make(Outline, len(o))
	for i, p := range o {
		result[i] = Point2D{X: p.X + dx, Y: p.Y + dy}
	}
	return result
}

// Rotate rotates all points around the origin by angle radians.
func (o Outline) Rotate(angle float64) Outline {
	sin, cos := math.Sincos(angle)
	result := make(Outline, len(o))
	for i, p := range o {
		result[i] = Point2D{
			X: p.X*cos - p.Y*sin,
			Y: p.X*sin + p.Y*cos,
		}
	}
	return result
}

// SignedArea returns the shoelace area; positive for counter-clockwise
// winding in a Y-up frame.
func (o Outline) SignedArea() float64 {
	n := len(o)
	if n < 3 {
		return 0
	}
	var area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += o[i].X*o[j].Y - o[j].X*o[i].Y
	}
	return area / 2
}

// Area returns the absolute polygon area.
func (o Outline) Area() float64 {
	return math.Abs(o.SignedArea())
}

// Reverse returns the outline with the opposite winding.
func (o Outline) Reverse() Outline {
	result := make(Outline, len(o))
	for i, p := range o {
		result[len(o)-1-i] = p
	}
	return result
}

// CCW returns the outline with counter-clockwise winding (positive signed area).
func (o Outline) CCW() Outline {
	if o.SignedArea() < 0 {
		return o.Reverse()
	}
	return o.Clone()
}

// Clone returns a copy of the outline.
func (o Outline) Clone() Outline {
	if o == nil {
		return nil
	}
	result := make(Outline, len(o))
	copy(result, o)
	return result
}

// Rect is an axis-aligned rectangle given by its min and max corners.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

// Translate shifts the rectangle by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{MinX: r.MinX + dx, MinY: r.MinY + dy, MaxX: r.MaxX + dx, MaxY: r.MaxY + dy}
}

// Union returns the smallest rectangle containing both r and s.
func (r Rect) Union(s Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, s.MinX),
		MinY: math.Min(r.MinY, s.MinY),
		MaxX: math.Max(r.MaxX, s.MaxX),
		MaxY: math.Max(r.MaxY, s.MaxY),
	}
}

// Corners returns the four corners in counter-clockwise order (Y-up).
func (r Rect) Corners() Outline {
	return Outline{
		{X: r.MinX, Y: r.MinY},
		{X: r.MaxX, Y: r.MinY},
		{X: r.MaxX, Y: r.MaxY},
		{X: r.MinX, Y: r.MaxY},
	}
}
