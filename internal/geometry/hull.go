package geometry

import (
	"math"
	"sort"

	"github.com/piwi3910/SlabNest/internal/model"
	"gonum.org/v1/gonum/spatial/r2"
)

// ConvexHull returns the convex hull of the points in counter-clockwise
// order using Andrew's monotone chain. Collinear points are dropped.
func ConvexHull(points []model.Point2D) model.Outline {
	pts := make([]model.Point2D, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	pts = dedupe(pts, 0)
	if len(pts) < 3 {
		return model.Outline(pts)
	}

	hull := make(model.Outline, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// IsConvex reports whether a counter-clockwise outline has no reflex vertex.
func IsConvex(o model.Outline) bool {
	n := len(o)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if cross(o[i], o[(i+1)%n], o[(i+2)%n]) < -Epsilon {
			return false
		}
	}
	return true
}

// OBB is an oriented bounding box given by its four corners in order.
type OBB [4]model.Point2D

// Area returns the box area.
func (b OBB) Area() float64 {
	return b[0].Distance(b[1]) * b[1].Distance(b[2])
}

// Outline returns the corners as a polygon.
func (b OBB) Outline() model.Outline {
	return model.Outline{b[0], b[1], b[2], b[3]}
}

// Transform maps every corner through t.
func (b OBB) Transform(t Affine) OBB {
	var out OBB
	for i, p := range b {
		out[i] = t.Apply(p)
	}
	return out
}

// Rotate rotates the corners about the origin by deg degrees.
func (b OBB) Rotate(deg float64) OBB {
	return b.Transform(Rotation(deg))
}

// Bounds returns the axis-aligned box of the corners.
func (b OBB) Bounds() model.Rect {
	return b.Outline().Bounds()
}

// RectOBB returns the axis-aligned box of r as an OBB.
func RectOBB(r model.Rect) OBB {
	c := r.Corners()
	return OBB{c[0], c[1], c[2], c[3]}
}

// MinAreaRect computes the minimum-area oriented box enclosing a convex hull
// with rotating calipers: every hull edge is tried as a box side. Hulls with
// fewer than three points fall back to their axis-aligned box.
func MinAreaRect(hull model.Outline) OBB {
	if len(hull) < 3 {
		return RectOBB(hull.Bounds())
	}

	bestArea := math.Inf(1)
	var best OBB
	n := len(hull)
	for i := 0; i < n; i++ {
		edge := r2.Sub(vec(hull[(i+1)%n]), vec(hull[i]))
		if r2.Norm(edge) < Epsilon {
			continue
		}
		u := r2.Unit(edge)
		v := r2.Vec{X: -u.Y, Y: u.X}

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			pu := r2.Dot(vec(p), u)
			pv := r2.Dot(vec(p), v)
			minU, maxU = math.Min(minU, pu), math.Max(maxU, pu)
			minV, maxV = math.Min(minV, pv), math.Max(maxV, pv)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			corner := func(a, b float64) model.Point2D {
				return point(r2.Add(r2.Scale(a, u), r2.Scale(b, v)))
			}
			best = OBB{
				corner(minU, minV),
				corner(maxU, minV),
				corner(maxU, maxV),
				corner(minU, maxV),
			}
		}
	}
	if math.IsInf(bestArea, 1) {
		return RectOBB(hull.Bounds())
	}
	return best
}
