package geometry

import (
	"math"
	"sort"

	"github.com/piwi3910/SlabNest/internal/model"
	"gonum.org/v1/gonum/spatial/r2"
)

// JoinStyle selects how offset edges are connected on the outside of a turn.
type JoinStyle int

const (
	JoinRound JoinStyle = iota // Circular arc around the original vertex
	JoinMiter                  // Extend both edges until they meet; for convex outlines
)

const (
	joinStep    = math.Pi / 18 // max angle per round-join chord
	miterLimit  = 4.0          // outer miters longer than this (in |delta|) are beveled
	parallelTol = 1e-12
)

// Offset inflates (delta > 0) or deflates (delta < 0) a simple polygon with
// round joins. The result is simple and counter-clockwise. A deflation that
// collapses the polygon returns nil; one that pinches it into several
// pieces returns the largest (see OffsetLoops).
func Offset(poly model.Outline, delta float64) model.Outline {
	return OffsetJoin(poly, delta, JoinRound)
}

// OffsetJoin is Offset with an explicit join style.
func OffsetJoin(poly model.Outline, delta float64, join JoinStyle) model.Outline {
	loops := OffsetLoops(poly, delta, join)
	if len(loops) == 0 {
		return nil
	}
	return loops[0]
}

// OffsetLoops offsets poly and returns every simple counter-clockwise piece
// of the result, largest first. Inflation always yields one piece. Cavities
// closed off by an inflation are filled.
func OffsetLoops(poly model.Outline, delta float64, join JoinStyle) []model.Outline {
	o := Simplify(poly.CCW())
	if len(o) < 3 {
		return nil
	}
	if delta == 0 {
		return []model.Outline{o}
	}
	raw := rawOffset(o, delta, join)
	if len(raw) < 3 {
		return nil
	}
	return positiveLoops(raw)
}

// rawOffset moves every edge of the counter-clockwise polygon o by delta
// and joins the moved edges. Where a feature is narrower than twice the
// offset the result crosses itself.
func rawOffset(o model.Outline, delta float64, join JoinStyle) model.Outline {
	n := len(o)
	out := make(model.Outline, 0, 2*n)
	for i := 0; i < n; i++ {
		prev, cur, next := o[(i+n-1)%n], o[i], o[(i+1)%n]
		e1 := r2.Unit(r2.Sub(vec(cur), vec(prev)))
		e2 := r2.Unit(r2.Sub(vec(next), vec(cur)))
		n1 := r2.Vec{X: e1.Y, Y: -e1.X}
		n2 := r2.Vec{X: e2.Y, Y: -e2.X}
		c := vec(cur)
		p1 := r2.Add(c, r2.Scale(delta, n1))
		p2 := r2.Add(c, r2.Scale(delta, n2))

		turn := r2.Cross(e1, e2)
		if math.Abs(turn) < parallelTol && r2.Dot(e1, e2) > 0 {
			out = append(out, point(p1))
			continue
		}

		outside := turn*delta > 0
		switch {
		case outside && join == JoinRound:
			phi := math.Atan2(r2.Cross(n1, n2), r2.Dot(n1, n2))
			steps := int(math.Ceil(math.Abs(phi) / joinStep))
			if steps < 1 {
				steps = 1
			}
			for k := 0; k <= steps; k++ {
				dir := r2.Rotate(n1, phi*float64(k)/float64(steps), r2.Vec{})
				out = append(out, point(r2.Add(c, r2.Scale(delta, dir))))
			}
		default:
			m, ok := lineIntersection(p1, e1, p2, e2)
			if !ok || (outside && r2.Norm(r2.Sub(m, c)) > miterLimit*math.Abs(delta)) {
				out = append(out, point(p1), point(p2))
				continue
			}
			out = append(out, point(m))
		}
	}

	return dedupe(out, Epsilon)
}

// positiveLoops splits raw at its self-crossings and keeps the loops that
// bound the region raw winds around exactly once.
func positiveLoops(raw model.Outline) []model.Outline {
	var out []model.Outline
	for _, l := range splitCrossings(raw) {
		l = dedupe(l, Epsilon)
		if len(l) < 3 || l.SignedArea() <= Epsilon {
			continue
		}
		p, ok := justInside(l)
		if !ok || windingNumber(p, raw) != 1 {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Area() > out[j].Area() })
	return out
}

type crossing struct {
	t  float64
	p  model.Point2D
	id int
}

// splitCrossings cuts a closed polyline into loops at every point where two
// of its edges cross. At each crossing the incoming edge of one strand is
// joined to the outgoing edge of the other, so the loops keep their
// direction and no longer cross one another.
func splitCrossings(raw model.Outline) []model.Outline {
	n := len(raw)
	cuts := make([][]crossing, n)
	ids := 0
	for i := 0; i < n; i++ {
		a1, a2 := raw[i], raw[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			t, u, ok := crossAt(a1, a2, raw[j], raw[(j+1)%n])
			if !ok {
				continue
			}
			p := point(r2.Add(vec(a1), r2.Scale(t, r2.Sub(vec(a2), vec(a1)))))
			cuts[i] = append(cuts[i], crossing{t: t, p: p, id: ids})
			cuts[j] = append(cuts[j], crossing{t: u, p: p, id: ids})
			ids++
		}
	}
	if ids == 0 {
		return []model.Outline{raw}
	}

	type node struct {
		p  model.Point2D
		id int // crossing id, -1 for an original vertex
	}
	seq := make([]node, 0, n+2*ids)
	for i := 0; i < n; i++ {
		seq = append(seq, node{p: raw[i], id: -1})
		c := cuts[i]
		sort.Slice(c, func(a, b int) bool { return c[a].t < c[b].t })
		for _, x := range c {
			seq = append(seq, node{p: x.p, id: x.id})
		}
	}

	var loops []model.Outline
	var stack []node
	open := make(map[int]int) // crossing id -> stack index of its first visit
	for _, nd := range seq {
		if nd.id >= 0 {
			if k, ok := open[nd.id]; ok {
				loop := make(model.Outline, 0, len(stack)-k)
				for _, s := range stack[k:] {
					loop = append(loop, s.p)
					delete(open, s.id)
				}
				loops = append(loops, loop)
				stack = stack[:k]
			} else {
				open[nd.id] = len(stack)
			}
		}
		stack = append(stack, nd)
	}
	rest := make(model.Outline, len(stack))
	for i, s := range stack {
		rest[i] = s.p
	}
	return append(loops, rest)
}

// justInside returns a point a hair to the left of the longest edge of the
// counter-clockwise loop l.
func justInside(l model.Outline) (model.Point2D, bool) {
	n := len(l)
	best, bestLen := -1, 0.0
	for i := 0; i < n; i++ {
		if d := r2.Norm(r2.Sub(vec(l[(i+1)%n]), vec(l[i]))); d > bestLen {
			best, bestLen = i, d
		}
	}
	if best < 0 || bestLen < Epsilon {
		return model.Point2D{}, false
	}
	a, b := vec(l[best]), vec(l[(best+1)%n])
	d := r2.Scale(1/bestLen, r2.Sub(b, a))
	left := r2.Vec{X: -d.Y, Y: d.X}
	h := math.Min(bestLen*0.01, 1e-3)
	return point(r2.Add(r2.Scale(0.5, r2.Add(a, b)), r2.Scale(h, left))), true
}

// windingNumber counts how many times poly winds counter-clockwise
// around p.
func windingNumber(p model.Point2D, poly model.Outline) int {
	w := 0
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		if a.Y <= p.Y {
			if b.Y > p.Y && cross(a, b, p) > 0 {
				w++
			}
		} else if b.Y <= p.Y && cross(a, b, p) < 0 {
			w--
		}
	}
	return w
}

// lineIntersection intersects the lines p + s*d and q + t*e.
func lineIntersection(p, d, q, e r2.Vec) (r2.Vec, bool) {
	den := r2.Cross(d, e)
	if math.Abs(den) < parallelTol {
		return r2.Vec{}, false
	}
	s := r2.Cross(r2.Sub(q, p), e) / den
	return r2.Add(p, r2.Scale(s, d)), true
}
