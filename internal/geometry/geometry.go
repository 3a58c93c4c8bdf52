// Package geometry is the planar kernel used by every nesting strategy:
// affine transforms, arc discretization, convex hulls and oriented boxes,
// polygon offsetting, convex decomposition, no-fit polygons and the tiered
// collision tests.
//
// All coordinates are millimeters. Predicates classify touching shapes as
// non-overlapping using the fixed tolerance Epsilon.
package geometry

import (
	"math"

	"github.com/piwi3910/SlabNest/internal/model"
	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the touch-versus-overlap tolerance in mm. Shapes that share an
// edge or a vertex within Epsilon are not considered overlapping.
const Epsilon = 1e-6

func vec(p model.Point2D) r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

func point(v r2.Vec) model.Point2D { return model.Point2D{X: v.X, Y: v.Y} }

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c model.Point2D) float64 {
	return r2.Cross(r2.Sub(vec(b), vec(a)), r2.Sub(vec(c), vec(a)))
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

// NormalizeDegrees maps an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360-1e-9 {
		deg = 0
	}
	return deg
}

// dedupe drops consecutive points closer than tol, including the closing pair.
func dedupe(o model.Outline, tol float64) model.Outline {
	if len(o) == 0 {
		return o
	}
	out := make(model.Outline, 0, len(o))
	for _, p := range o {
		if len(out) > 0 && out[len(out)-1].Distance(p) <= tol {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0].Distance(out[len(out)-1]) <= tol {
		out = out[:len(out)-1]
	}
	return out
}

// Simplify removes duplicate and collinear vertices.
func Simplify(o model.Outline) model.Outline {
	o = dedupe(o, Epsilon)
	if len(o) < 3 {
		return o
	}
	out := make(model.Outline, 0, len(o))
	n := len(o)
	for i := 0; i < n; i++ {
		prev := o[(i+n-1)%n]
		next := o[(i+1)%n]
		if math.Abs(cross(prev, o[i], next)) <= Epsilon*prev.Distance(next) {
			continue
		}
		out = append(out, o[i])
	}
	return out
}
