package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

// ImportDXF imports parts from a DXF file. Every closed outline that is not
// a hole of another one becomes a part; the entities drawn inside it (its
// holes and any engraving) are kept as the part's raw entity graph, wrapped
// in a synthetic block so the true-shape strategies accept it.
func ImportDXF(path string) ImportResult {
	result := ImportResult{}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var converted []model.Entity
	skipped := 0
	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			if len(e.Vertices) < 2 {
				result.Warnings = append(result.Warnings, "Skipped LWPOLYLINE with fewer than 2 vertices")
				continue
			}
			converted = append(converted, lwPolylineEntity(e))

		case *entity.Circle:
			converted = append(converted, model.NewCircle(model.Point2D{X: e.Center[0], Y: e.Center[1]}, e.Radius))

		case *entity.Arc:
			converted = append(converted, model.NewArc(
				model.Point2D{X: e.Circle.Center[0], Y: e.Circle.Center[1]},
				e.Circle.Radius, e.Angle[0], e.Angle[1]))

		case *entity.Line:
			converted = append(converted, model.NewLine(
				model.Point2D{X: e.Start[0], Y: e.Start[1]},
				model.Point2D{X: e.End[0], Y: e.End[1]}))

		default:
			skipped++
		}
	}
	if skipped > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped %d unsupported entities", skipped))
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := PartsFromEntities(name, converted)
	parts.Warnings = append(result.Warnings, parts.Warnings...)
	return parts
}

// lwPolylineEntity converts a DXF LWPOLYLINE, keeping its bulges so arcs
// are discretized by the normalizer rather than here.
func lwPolylineEntity(lw *entity.LwPolyline) model.Entity {
	verts := make([]model.PolylineVertex, len(lw.Vertices))
	for i, v := range lw.Vertices {
		verts[i] = model.PolylineVertex{Point2D: model.Point2D{X: v[0], Y: v[1]}}
		if i < len(lw.Bulges) {
			verts[i].Bulge = lw.Bulges[i]
		}
	}
	return model.Entity{Kind: model.EntityPolyline, Vertices: verts, Closed: lw.Closed}
}

// loopInfo is a stitched closed outline and its nesting depth: 0 for an
// outer contour, 1 for a hole in it, 2 for a part drawn inside that hole.
type loopInfo struct {
	outline model.Outline
	bounds  model.Rect
	area    float64
	depth   int
	parent  int
}

// PartsFromEntities groups a flat entity list into parts. Entities outside
// every closed outline are reported and dropped.
func PartsFromEntities(name string, entities []model.Entity) ImportResult {
	result := ImportResult{}

	var all []shape.Path
	boxes := make([]model.Rect, len(entities))
	valid := make([]bool, len(entities))
	for i, e := range entities {
		paths, err := shape.Flatten([]model.Entity{e}, nil, geometry.Identity())
		if err != nil || len(paths) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped %s entity: no geometry", e.Kind))
			continue
		}
		boxes[i], valid[i] = pathBounds(paths), true
		all = append(all, paths...)
	}

	outlines, open := shape.StitchSegments(all, shape.DefaultStitchTolerance)
	if len(open) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Ignored %d open contours", len(open)))
	}
	if len(outlines) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	// Loops arrive largest first, so every container precedes its content.
	loops := make([]loopInfo, len(outlines))
	for i, o := range outlines {
		loops[i] = loopInfo{outline: o, bounds: o.Bounds(), area: o.Area(), parent: -1}
		p, ok := geometry.InteriorPoint(o)
		if !ok {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if geometry.PointInPolygon(p, loops[j].outline) {
				loops[i].depth = loops[j].depth + 1
				loops[i].parent = j
				break
			}
		}
	}

	var outers []int
	for i, l := range loops {
		if l.depth%2 == 0 {
			outers = append(outers, i)
		}
	}

	members := make(map[int][]model.Entity)
	loose := 0
	for i, e := range entities {
		if !valid[i] {
			continue
		}
		owner := -1
		for _, o := range outers {
			if containsRect(loops[o].bounds, boxes[i], shape.DefaultStitchTolerance) &&
				(owner < 0 || loops[o].area < loops[owner].area) {
				owner = o
			}
		}
		if owner < 0 {
			loose++
			continue
		}
		members[owner] = append(members[owner], e)
	}
	if loose > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped %d entities outside any closed outline", loose))
	}

	for n, o := range outers {
		l := loops[o]
		width, height := l.bounds.Width(), l.bounds.Height()
		if width < 0.01 || height < 0.01 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f mm)", width, height))
			continue
		}

		net := l.area
		for _, h := range loops {
			if h.parent == o {
				net -= h.area
			}
		}

		id := fmt.Sprintf("%s-%d", name, n+1)
		block := "PART_" + id
		result.Parts = append(result.Parts, model.ImportedPart{
			ID:       id,
			Label:    id,
			Entities: []model.Entity{model.NewInsert(block, model.Point2D{}, 0)},
			Blocks: model.BlockTable{
				block: {Name: block, Entities: members[o]},
			},
			Width:     width,
			Height:    height,
			GrossArea: l.area,
			NetArea:   net,
			Quantity:  1,
		})
	}

	return result
}

func pathBounds(paths []shape.Path) model.Rect {
	var pts model.Outline
	for _, p := range paths {
		pts = append(pts, p.Points...)
	}
	return pts.Bounds()
}

// containsRect reports whether inner lies within outer grown by tol.
func containsRect(outer, inner model.Rect, tol float64) bool {
	return inner.MinX >= outer.MinX-tol && inner.MaxX <= outer.MaxX+tol &&
		inner.MinY >= outer.MinY-tol && inner.MaxY <= outer.MaxY+tol
}
