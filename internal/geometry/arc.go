package geometry

import (
	"math"

	"github.com/piwi3910/SlabNest/internal/model"
)

// Arc discretization bounds. The segment count grows with arc length and is
// clamped so small fillets keep their shape and large circles stay cheap.
const (
	MinArcSegments   = 12
	MaxArcSegments   = 64
	arcSegmentLength = 2.0 // target chord length in mm
)

// Arc is a circular arc. Start and Sweep are radians; positive Sweep runs
// counter-clockwise.
type Arc struct {
	Center model.Point2D
	Radius float64
	Start  float64
	Sweep  float64
}

// ArcSegments returns the number of chords used for an arc of the given
// radius and sweep.
func ArcSegments(radius, sweep float64) int {
	length := math.Abs(radius * sweep)
	n := int(math.Ceil(length / arcSegmentLength))
	if n < MinArcSegments {
		n = MinArcSegments
	}
	if n > MaxArcSegments {
		n = MaxArcSegments
	}
	return n
}

// DiscretizeArc returns points along the arc from start to start+sweep
// (radians), both endpoints included.
func DiscretizeArc(center model.Point2D, radius, start, sweep float64) []model.Point2D {
	return DiscretizeArcN(center, radius, start, sweep, ArcSegments(radius, sweep))
}

// DiscretizeArcN is DiscretizeArc with an explicit chord count.
func DiscretizeArcN(center model.Point2D, radius, start, sweep float64, n int) []model.Point2D {
	if n < 1 {
		n = 1
	}
	pts := make([]model.Point2D, n+1)
	for i := 0; i <= n; i++ {
		angle := start + sweep*float64(i)/float64(n)
		sin, cos := math.Sincos(angle)
		pts[i] = model.Point2D{X: center.X + radius*cos, Y: center.Y + radius*sin}
	}
	return pts
}

// Points discretizes the arc.
func (a Arc) Points() []model.Point2D {
	return DiscretizeArc(a.Center, a.Radius, a.Start, a.Sweep)
}

// BulgeToArc reconstructs the arc between p1 and p2 encoded by a polyline
// bulge (tan of a quarter of the included angle). It returns false when the
// bulge is zero or the chord degenerate, meaning the span is a straight line.
func BulgeToArc(p1, p2 model.Point2D, bulge float64) (Arc, bool) {
	chord := p1.Distance(p2)
	if math.Abs(bulge) < 1e-9 || chord < Epsilon {
		return Arc{}, false
	}
	sweep := 4 * math.Atan(bulge)
	half := math.Abs(sweep) / 2
	radius := chord / (2 * math.Sin(half))

	// Signed distance from the chord midpoint to the center along the left
	// normal; it turns negative for arcs larger than a half circle.
	d := chord / (2 * math.Tan(half))
	if bulge < 0 {
		d = -d
	}
	mx, my := (p1.X+p2.X)/2, (p1.Y+p2.Y)/2
	nx, ny := -(p2.Y-p1.Y)/chord, (p2.X-p1.X)/chord
	center := model.Point2D{X: mx + nx*d, Y: my + ny*d}

	return Arc{
		Center: center,
		Radius: radius,
		Start:  math.Atan2(p1.Y-center.Y, p1.X-center.X),
		Sweep:  sweep,
	}, true
}
