package geometry

import (
	"math"

	"github.com/piwi3910/SlabNest/internal/model"
	"gonum.org/v1/gonum/spatial/r2"
)

// Shape is a positioned region (outer minus holes) with cached bounds and
// oriented box for the cheap collision tiers.
type Shape struct {
	Outer  model.Outline
	Holes  []model.Outline
	Bounds model.Rect
	MABB   OBB
}

// NewShape builds a Shape, deriving the bounds and using the axis-aligned
// box as MABB when none is given.
func NewShape(outer model.Outline, holes []model.Outline, mabb *OBB) Shape {
	s := Shape{Outer: outer, Holes: holes, Bounds: outer.Bounds()}
	if mabb != nil {
		s.MABB = *mabb
	} else {
		s.MABB = RectOBB(s.Bounds)
	}
	return s
}

// Translate returns the shape shifted by dx, dy.
func (s Shape) Translate(dx, dy float64) Shape {
	out := Shape{
		Outer:  s.Outer.Translate(dx, dy),
		Bounds: s.Bounds.Translate(dx, dy),
		MABB:   s.MABB.Transform(Translation(dx, dy)),
	}
	if len(s.Holes) > 0 {
		out.Holes = make([]model.Outline, len(s.Holes))
		for i, h := range s.Holes {
			out.Holes[i] = h.Translate(dx, dy)
		}
	}
	return out
}

// AABBOverlap reports whether two rectangles overlap by more than Epsilon.
func AABBOverlap(a, b model.Rect) bool {
	return a.MinX < b.MaxX-Epsilon && b.MinX < a.MaxX-Epsilon &&
		a.MinY < b.MaxY-Epsilon && b.MinY < a.MaxY-Epsilon
}

// OBBOverlap runs the separating-axis test on the edge normals of both
// boxes, eight axes in total. Boxes that only touch are separated.
func OBBOverlap(a, b OBB) bool {
	for _, box := range [2]OBB{a, b} {
		for i := 0; i < 4; i++ {
			e := r2.Sub(vec(box[(i+1)%4]), vec(box[i]))
			if r2.Norm(e) < Epsilon {
				continue
			}
			axis := r2.Unit(r2.Vec{X: -e.Y, Y: e.X})
			minA, maxA := project(a[:], axis)
			minB, maxB := project(b[:], axis)
			if maxA <= minB+Epsilon || maxB <= minA+Epsilon {
				return false
			}
		}
	}
	return true
}

func project(pts []model.Point2D, axis r2.Vec) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		d := r2.Dot(vec(p), axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// SegmentsCross reports whether segments p1-p2 and q1-q2 properly cross.
// Intersections within Epsilon of an endpoint and collinear overlaps count
// as touching, not crossing.
func SegmentsCross(p1, p2, q1, q2 model.Point2D) bool {
	_, _, ok := crossAt(p1, p2, q1, q2)
	return ok
}

// crossAt is SegmentsCross that also returns the crossing parameters along
// p1-p2 and q1-q2.
func crossAt(p1, p2, q1, q2 model.Point2D) (t, u float64, ok bool) {
	r := r2.Sub(vec(p2), vec(p1))
	s := r2.Sub(vec(q2), vec(q1))
	den := r2.Cross(r, s)
	lr, ls := r2.Norm(r), r2.Norm(s)
	if lr < Epsilon || ls < Epsilon || math.Abs(den) <= parallelTol*lr*ls {
		return 0, 0, false
	}
	qp := r2.Sub(vec(q1), vec(p1))
	t = r2.Cross(qp, s) / den
	u = r2.Cross(qp, r) / den
	te, ue := Epsilon/lr, Epsilon/ls
	return t, u, t > te && t < 1-te && u > ue && u < 1-ue
}

// onSegment reports whether p lies within Epsilon of segment a-b.
func onSegment(p, a, b model.Point2D) bool {
	ab := r2.Sub(vec(b), vec(a))
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return p.Distance(a) <= Epsilon
	}
	t := r2.Dot(r2.Sub(vec(p), vec(a)), ab) / l2
	t = math.Max(0, math.Min(1, t))
	closest := r2.Add(vec(a), r2.Scale(t, ab))
	return r2.Norm(r2.Sub(vec(p), closest)) <= Epsilon
}

// PointInPolygon reports whether p lies strictly inside poly (ray casting).
// Points on the boundary are outside.
func PointInPolygon(p model.Point2D, poly model.Outline) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if onSegment(p, a, b) {
			return false
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// PointInRegion reports whether p is strictly inside outer and not inside or
// on any hole.
func PointInRegion(p model.Point2D, outer model.Outline, holes []model.Outline) bool {
	if !PointInPolygon(p, outer) {
		return false
	}
	for _, h := range holes {
		if PointInPolygon(p, h) || onBoundary(p, h) {
			return false
		}
	}
	return true
}

func onBoundary(p model.Point2D, poly model.Outline) bool {
	n := len(poly)
	for i := 0; i < n; i++ {
		if onSegment(p, poly[i], poly[(i+1)%n]) {
			return true
		}
	}
	return false
}

// InteriorPoint returns a point strictly inside the polygon, found by
// nudging an edge midpoint towards the interior.
func InteriorPoint(poly model.Outline) (model.Point2D, bool) {
	o := poly.CCW()
	n := len(o)
	if n < 3 {
		return model.Point2D{}, false
	}
	b := o.Bounds()
	size := math.Max(b.Width(), b.Height())
	for _, frac := range []float64{1e-3, 1e-5} {
		h := size * frac
		for i := 0; i < n; i++ {
			a, c := o[i], o[(i+1)%n]
			e := r2.Sub(vec(c), vec(a))
			if r2.Norm(e) < Epsilon {
				continue
			}
			u := r2.Unit(e)
			mid := r2.Scale(0.5, r2.Add(vec(a), vec(c)))
			// interior lies to the left of a CCW edge
			cand := point(r2.Add(mid, r2.Scale(h, r2.Vec{X: -u.Y, Y: u.X})))
			if PointInPolygon(cand, o) {
				return cand, true
			}
		}
	}
	return model.Point2D{}, false
}

func rings(s Shape) []model.Outline {
	return append([]model.Outline{s.Outer}, s.Holes...)
}

// PolygonsOverlap is the exact test: any proper edge crossing, or any vertex
// (or interior sample) of one region strictly inside the other.
func PolygonsOverlap(a, b Shape) bool {
	for _, ra := range rings(a) {
		for _, rb := range rings(b) {
			if ringsCross(ra, rb) {
				return true
			}
		}
	}
	return containsAny(a, b) || containsAny(b, a)
}

func ringsCross(a, b model.Outline) bool {
	na, nb := len(a), len(b)
	for i := 0; i < na; i++ {
		p1, p2 := a[i], a[(i+1)%na]
		for j := 0; j < nb; j++ {
			if SegmentsCross(p1, p2, b[j], b[(j+1)%nb]) {
				return true
			}
		}
	}
	return false
}

// containsAny reports whether some vertex or the interior sample of inner
// lies strictly inside region outer.
func containsAny(inner, outer Shape) bool {
	for _, p := range inner.Outer {
		if PointInRegion(p, outer.Outer, outer.Holes) {
			return true
		}
	}
	if p, ok := InteriorPoint(inner.Outer); ok {
		inHole := false
		for _, h := range inner.Holes {
			if PointInPolygon(p, h) {
				inHole = true
				break
			}
		}
		if !inHole && PointInRegion(p, outer.Outer, outer.Holes) {
			return true
		}
	}
	return false
}

// Collide runs the tiered test: AABB, then OBB separating axes, then the
// exact polygon test.
func Collide(a, b Shape) bool {
	if !AABBOverlap(a.Bounds, b.Bounds) {
		return false
	}
	if !OBBOverlap(a.MABB, b.MABB) {
		return false
	}
	return PolygonsOverlap(a, b)
}

// WithinSheet reports whether every vertex of poly lies inside
// [margin, dim-margin] on both axes, within Epsilon.
func WithinSheet(poly model.Outline, width, height, margin float64) bool {
	for _, p := range poly {
		if p.X < margin-Epsilon || p.X > width-margin+Epsilon ||
			p.Y < margin-Epsilon || p.Y > height-margin+Epsilon {
			return false
		}
	}
	return true
}

// RectWithinSheet is WithinSheet for an axis-aligned rectangle.
func RectWithinSheet(r model.Rect, width, height, margin float64) bool {
	return r.MinX >= margin-Epsilon && r.MaxX <= width-margin+Epsilon &&
		r.MinY >= margin-Epsilon && r.MaxY <= height-margin+Epsilon
}

// CrossesLine reports whether any edge of poly crosses the line through
// line.A and line.B. The line is extended past the sheet diagonal so a short
// definition still spans the whole sheet.
func CrossesLine(poly model.Outline, line model.CropLine, width, height float64) bool {
	d := r2.Sub(vec(line.B), vec(line.A))
	if r2.Norm(d) < Epsilon {
		return false
	}
	u := r2.Unit(d)
	reach := 2 * math.Hypot(width, height)
	a := point(r2.Sub(vec(line.A), r2.Scale(reach, u)))
	b := point(r2.Add(vec(line.B), r2.Scale(reach, u)))
	n := len(poly)
	for i := 0; i < n; i++ {
		if SegmentsCross(poly[i], poly[(i+1)%n], a, b) {
			return true
		}
	}
	return false
}

// IsSimple reports whether no two non-adjacent edges of poly cross.
func IsSimple(poly model.Outline) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if SegmentsCross(poly[i], poly[(i+1)%n], poly[j], poly[(j+1)%n]) {
				return false
			}
		}
	}
	return true
}
