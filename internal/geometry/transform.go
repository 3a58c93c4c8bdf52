package geometry

import (
	"math"

	"github.com/piwi3910/SlabNest/internal/model"
	"gonum.org/v1/gonum/mat"
)

// Affine is a 2D affine transform:
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translation returns a pure translation.
func Translation(dx, dy float64) Affine {
	return Affine{A: 1, C: dx, E: 1, F: dy}
}

// Rotation returns a counter-clockwise rotation about the origin.
func Rotation(deg float64) Affine {
	sin, cos := math.Sincos(degToRad(deg))
	return Affine{A: cos, B: -sin, D: sin, E: cos}
}

// Scaling returns a non-uniform scale about the origin.
func Scaling(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

func (t Affine) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.A, t.B, t.C,
		t.D, t.E, t.F,
		0, 0, 1,
	})
}

// Then returns the transform that applies t first and u second.
func (t Affine) Then(u Affine) Affine {
	var m mat.Dense
	m.Mul(u.matrix(), t.matrix())
	return Affine{
		A: m.At(0, 0), B: m.At(0, 1), C: m.At(0, 2),
		D: m.At(1, 0), E: m.At(1, 1), F: m.At(1, 2),
	}
}

// Apply transforms a point.
func (t Affine) Apply(p model.Point2D) model.Point2D {
	return model.Point2D{
		X: t.A*p.X + t.B*p.Y + t.C,
		Y: t.D*p.X + t.E*p.Y + t.F,
	}
}

// ApplyOutline transforms every point of an outline.
func (t Affine) ApplyOutline(o model.Outline) model.Outline {
	out := make(model.Outline, len(o))
	for i, p := range o {
		out[i] = t.Apply(p)
	}
	return out
}

// Determinant of the linear part; negative when the transform mirrors.
func (t Affine) Determinant() float64 {
	return t.A*t.E - t.B*t.D
}

// MaxScale returns the largest stretch factor of the linear part, used to
// size arc discretization in the output space.
func (t Affine) MaxScale() float64 {
	sx := math.Hypot(t.A, t.D)
	sy := math.Hypot(t.B, t.E)
	return math.Max(sx, sy)
}
