// Package shape turns an imported part's CAD entity graph into the working
// geometry the nesting strategies operate on.
package shape

import (
	"errors"
	"fmt"
	"math"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

// MaxBlockDepth bounds block nesting during Flatten.
const MaxBlockDepth = 32

var (
	ErrCyclicBlock  = errors.New("cyclic block reference")
	ErrUnknownBlock = errors.New("unknown block")
	ErrBlockDepth   = errors.New("block nesting too deep")
)

// Path is a flattened polyline in part coordinates.
type Path struct {
	Points []model.Point2D
	Closed bool
}

// Flatten resolves every entity into paths, expanding block instances
// recursively and applying t to the result. Arcs and bulges are
// discretized in the output space.
func Flatten(entities []model.Entity, blocks model.BlockTable, t geometry.Affine) ([]Path, error) {
	f := flattener{blocks: blocks, active: make(map[string]bool)}
	if err := f.walk(entities, t, 0); err != nil {
		return nil, err
	}
	return f.paths, nil
}

type flattener struct {
	blocks model.BlockTable
	active map[string]bool
	paths  []Path
}

func (f *flattener) walk(entities []model.Entity, t geometry.Affine, depth int) error {
	for _, e := range entities {
		switch e.Kind {
		case model.EntityLine:
			f.add(Path{Points: []model.Point2D{t.Apply(e.Start), t.Apply(e.End)}})

		case model.EntityPolyline:
			f.add(polylinePath(e, t))

		case model.EntityArc:
			start := e.StartAngle * math.Pi / 180
			sweep := geometry.NormalizeDegrees(e.EndAngle-e.StartAngle) * math.Pi / 180
			if sweep == 0 {
				sweep = 2 * math.Pi
			}
			pts := arcPoints(e.Center, e.Radius, start, sweep, t)
			f.add(Path{Points: t.ApplyOutline(pts)})

		case model.EntityCircle:
			pts := arcPoints(e.Center, e.Radius, 0, 2*math.Pi, t)
			f.add(Path{Points: t.ApplyOutline(pts[:len(pts)-1]), Closed: true})

		case model.EntityInsert:
			if err := f.insert(e, t, depth); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unsupported entity kind %s", e.Kind)
		}
	}
	return nil
}

func (f *flattener) insert(e model.Entity, parent geometry.Affine, depth int) error {
	if depth >= MaxBlockDepth {
		return fmt.Errorf("%w: %q at depth %d", ErrBlockDepth, e.Block, depth)
	}
	if f.active[e.Block] {
		return fmt.Errorf("%w: %q", ErrCyclicBlock, e.Block)
	}
	block, ok := f.blocks[e.Block]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBlock, e.Block)
	}

	sx, sy := e.Scales()
	t := geometry.Translation(-block.Base.X, -block.Base.Y).
		Then(geometry.Scaling(sx, sy)).
		Then(geometry.Rotation(e.Rotation)).
		Then(geometry.Translation(e.Position.X, e.Position.Y)).
		Then(parent)

	f.active[e.Block] = true
	defer delete(f.active, e.Block)
	return f.walk(block.Entities, t, depth+1)
}

func (f *flattener) add(p Path) {
	if len(p.Points) >= 2 {
		f.paths = append(f.paths, p)
	}
}

// arcPoints discretizes in local coordinates with a chord count sized for
// the output scale.
func arcPoints(center model.Point2D, radius, start, sweep float64, t geometry.Affine) model.Outline {
	n := geometry.ArcSegments(radius*t.MaxScale(), sweep)
	return geometry.DiscretizeArcN(center, radius, start, sweep, n)
}

func polylinePath(e model.Entity, t geometry.Affine) Path {
	verts := e.Vertices
	n := len(verts)
	var local model.Outline
	spans := n - 1
	if e.Closed {
		spans = n
	}
	for i := 0; i < n; i++ {
		local = append(local, verts[i].Point2D)
		if i >= spans {
			continue
		}
		next := verts[(i+1)%n].Point2D
		arc, ok := geometry.BulgeToArc(verts[i].Point2D, next, verts[i].Bulge)
		if !ok {
			continue
		}
		pts := arcPoints(arc.Center, arc.Radius, arc.Start, arc.Sweep, t)
		local = append(local, pts[1:len(pts)-1]...)
	}
	closed := e.Closed
	if !closed && len(local) > 2 && local[0].Distance(local[len(local)-1]) <= geometry.Epsilon {
		local = local[:len(local)-1]
		closed = true
	}
	return Path{Points: t.ApplyOutline(local), Closed: closed}
}
