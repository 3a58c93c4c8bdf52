package geometry

import (
	"github.com/piwi3910/SlabNest/internal/model"
)

// MinkowskiConvex returns the Minkowski sum of two convex polygons.
func MinkowskiConvex(a, b model.Outline) model.Outline {
	sums := make([]model.Point2D, 0, len(a)*len(b))
	for _, p := range a {
		for _, q := range b {
			sums = append(sums, p.Add(q))
		}
	}
	return ConvexHull(sums)
}

// Negate reflects an outline through the origin. Winding is preserved.
func Negate(o model.Outline) model.Outline {
	out := make(model.Outline, len(o))
	for i, p := range o {
		out[i] = model.Point2D{X: -p.X, Y: -p.Y}
	}
	return out
}

// NoFitPolygon returns A ⊕ (−B) as a union of convex pieces: the set of
// translations of B's local origin at which B overlaps the stationary A.
// A placement reference point collides exactly when it lies strictly inside
// one of the pieces. Holes are ignored.
func NoFitPolygon(a, b model.Outline) []model.Outline {
	pa := ConvexDecompose(a)
	pb := ConvexDecompose(Negate(b))
	out := make([]model.Outline, 0, len(pa)*len(pb))
	for _, ca := range pa {
		for _, cb := range pb {
			if m := MinkowskiConvex(ca, cb); len(m) >= 3 {
				out = append(out, m)
			}
		}
	}
	return out
}

// InsideAny reports whether p lies strictly inside one of the pieces.
func InsideAny(p model.Point2D, pieces []model.Outline) bool {
	for _, piece := range pieces {
		b := piece.Bounds()
		if p.X <= b.MinX || p.X >= b.MaxX || p.Y <= b.MinY || p.Y >= b.MaxY {
			continue
		}
		if PointInPolygon(p, piece) {
			return true
		}
	}
	return false
}

// AnchorAtOrigin rotates an outline by deg degrees about the origin and
// moves its bounding box corner to (0,0). It returns the moved outline and
// the corner that was subtracted.
func AnchorAtOrigin(o model.Outline, deg float64) (model.Outline, model.Point2D) {
	r := Rotation(deg).ApplyOutline(o)
	lo, _ := r.BoundingBox()
	return r.Translate(-lo.X, -lo.Y), lo
}

// LocalNFP rotates A and B, anchors each at its own bounding box corner and
// returns their no-fit polygon in that frame. Callers re-apply the anchor
// offsets to express the result in their placement frame.
func LocalNFP(a, b model.Outline, rotA, rotB float64) []model.Outline {
	la, _ := AnchorAtOrigin(a, rotA)
	lb, _ := AnchorAtOrigin(b, rotB)
	return NoFitPolygon(la, lb)
}
