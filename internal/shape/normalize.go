package shape

import (
	"errors"
	"fmt"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

var (
	ErrLoosePart         = errors.New("part is not a single block instance")
	ErrNoGeometry        = errors.New("part has no geometry")
	ErrOpenContour       = errors.New("part has no closed contour")
	ErrDegenerate        = errors.New("part outline has zero area")
	ErrDisjoint          = errors.New("part has disjoint outlines")
	ErrSelfIntersecting  = errors.New("part outline intersects itself")
	ErrInflationCollapse = errors.New("clearance offset collapsed the outline")
)

// Options controls Normalize.
type Options struct {
	// Inflation is the clearance baked into the working shape (mm).
	Inflation float64
	// RequireBlock enables the gatekeeper used by true-shape strategies:
	// only parts whose entity list is a single block instance are accepted.
	RequireBlock bool
	// Tolerance is the stitching distance; zero selects DefaultStitchTolerance.
	Tolerance float64
	// ForceClose closes chains whose ends never meet, provided the closed
	// loop is simple.
	ForceClose bool
}

// PartGeometry is the derived, immutable geometry of one part for one
// inflation. CAD drawings are Y-up while the sheet frame is Y-down, so the
// source is flipped once here and shifted so its bounding box starts at
// (0,0). Origin is the raw CAD point that ends up at (0,0): the top-left
// corner of the drawing.
type PartGeometry struct {
	PartID      string
	Outer       model.Outline   // inflated, counter-clockwise
	Holes       []model.Outline // deflated, collapsed holes dropped
	Bounds      model.Rect
	MABB        geometry.OBB
	Area        float64 // working outer minus working holes
	NetArea     float64 // source outer minus source holes
	Source      model.Outline
	SourceHoles []model.Outline
	Inflation   float64
	Origin      model.Point2D
	Warnings    []string
}

// Normalize flattens, stitches and classifies a part's geometry and bakes
// the clearance offset into the working shape.
func Normalize(part model.ImportedPart, opts Options) (*PartGeometry, error) {
	if opts.RequireBlock {
		if len(part.Entities) != 1 || part.Entities[0].Kind != model.EntityInsert {
			return nil, fmt.Errorf("%w: %d top-level entities", ErrLoosePart, len(part.Entities))
		}
	}
	if len(part.Entities) == 0 {
		return nil, ErrNoGeometry
	}

	paths, err := Flatten(part.Entities, part.Blocks, geometry.Identity())
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoGeometry
	}

	g := &PartGeometry{PartID: part.ID, Inflation: opts.Inflation}
	loops, open := StitchSegments(paths, opts.Tolerance)
	for _, chain := range open {
		if opts.ForceClose && len(chain.Points) >= 3 {
			loop := geometry.Simplify(model.Outline(chain.Points))
			if !geometry.IsSimple(loop) {
				return nil, fmt.Errorf("%w: force-closed chain", ErrSelfIntersecting)
			}
			loops = append(loops, loop)
			g.Warnings = append(g.Warnings, fmt.Sprintf("force-closed an open chain of %d points", len(chain.Points)))
			continue
		}
		g.Warnings = append(g.Warnings, fmt.Sprintf("dropped an open chain of %d points", len(chain.Points)))
	}

	outer, holes, err := classify(loops)
	if err != nil {
		if errors.Is(err, ErrNoGeometry) && len(open) > 0 {
			return nil, fmt.Errorf("%w: %d open chains", ErrOpenContour, len(open))
		}
		return nil, err
	}

	lo, hi := outer.BoundingBox()
	g.Origin = model.Point2D{X: lo.X, Y: hi.Y}
	toSheet := g.FromCAD()
	g.Source = toSheet.ApplyOutline(outer).CCW()
	for _, h := range holes {
		g.SourceHoles = append(g.SourceHoles, toSheet.ApplyOutline(h).CCW())
	}
	g.NetArea = g.Source.Area()
	for _, h := range g.SourceHoles {
		g.NetArea -= h.Area()
	}

	g.Outer = g.Source.Clone()
	if opts.Inflation != 0 {
		g.Outer = geometry.Offset(g.Source, opts.Inflation)
		if g.Outer == nil {
			return nil, ErrInflationCollapse
		}
	}
	for _, h := range g.SourceHoles {
		wh := h.CCW()
		if opts.Inflation != 0 {
			wh = geometry.Offset(h, -opts.Inflation)
		}
		if wh != nil {
			g.Holes = append(g.Holes, wh)
		}
	}

	g.Bounds = g.Outer.Bounds()
	g.MABB = geometry.MinAreaRect(geometry.ConvexHull(g.Outer))
	g.Area = g.Outer.Area()
	for _, h := range g.Holes {
		g.Area -= h.Area()
	}
	return g, nil
}

// FromCAD maps raw CAD coordinates into the source frame. The mapping is
// a mirror in Y followed by the origin shift, so a part seen on the sheet
// reads the same way as on screen in the CAD program.
func (g *PartGeometry) FromCAD() geometry.Affine {
	return geometry.Translation(-g.Origin.X, -g.Origin.Y).Then(geometry.Scaling(1, -1))
}

// classify picks the largest loop as the outer boundary and requires every
// other loop to be a hole directly inside it.
func classify(loops []model.Outline) (model.Outline, []model.Outline, error) {
	var clean []model.Outline
	for _, l := range loops {
		s := geometry.Simplify(l)
		if len(s) < 3 || s.Area() <= geometry.Epsilon {
			continue
		}
		if !geometry.IsSimple(s) {
			return nil, nil, ErrSelfIntersecting
		}
		clean = append(clean, s.CCW())
	}
	if len(clean) == 0 {
		if len(loops) > 0 {
			return nil, nil, ErrDegenerate
		}
		return nil, nil, ErrNoGeometry
	}

	outerIdx := 0
	for i, l := range clean {
		if l.Area() > clean[outerIdx].Area() {
			outerIdx = i
		}
	}
	outer := clean[outerIdx]
	var holes []model.Outline
	for i, l := range clean {
		if i == outerIdx {
			continue
		}
		if !inside(l, outer) {
			return nil, nil, ErrDisjoint
		}
		for _, h := range holes {
			if inside(l, h) || inside(h, l) {
				return nil, nil, fmt.Errorf("%w: island inside a hole", ErrDisjoint)
			}
		}
		holes = append(holes, l)
	}
	return outer, holes, nil
}

// inside reports whether loop a lies within loop b.
func inside(a, b model.Outline) bool {
	p, ok := geometry.InteriorPoint(a)
	if !ok || !geometry.PointInPolygon(p, b) {
		return false
	}
	n, m := len(a), len(b)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if geometry.SegmentsCross(a[i], a[(i+1)%n], b[j], b[(j+1)%m]) {
				return false
			}
		}
	}
	return true
}
