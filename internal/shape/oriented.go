package shape

import (
	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

// Oriented is a PartGeometry rotated by one discrete angle and shifted so
// the rotated source bounding box starts at (0,0). Placing it at (x, y)
// therefore puts the part's rotated bounding box corner at (x, y).
type Oriented struct {
	Geometry *PartGeometry
	Rotation float64 // degrees
	Outer    model.Outline
	Holes    []model.Outline
	Bounds   model.Rect // working shape, may start below zero by the inflation
	MABB     geometry.OBB
	// Width and Height of the rotated source bounding box.
	Width, Height float64
	Transform     geometry.Affine // normalized source -> oriented local frame
}

// Orient rotates the geometry. MABB corners are carried through the
// transform rather than recomputed.
func (g *PartGeometry) Orient(rotation float64) *Oriented {
	rotation = geometry.NormalizeDegrees(rotation)
	rot := geometry.Rotation(rotation)
	sb := rot.ApplyOutline(g.Source).Bounds()
	t := rot.Then(geometry.Translation(-sb.MinX, -sb.MinY))

	o := &Oriented{
		Geometry:  g,
		Rotation:  rotation,
		Outer:     t.ApplyOutline(g.Outer),
		MABB:      g.MABB.Transform(t),
		Width:     sb.Width(),
		Height:    sb.Height(),
		Transform: t,
	}
	for _, h := range g.Holes {
		o.Holes = append(o.Holes, t.ApplyOutline(h))
	}
	o.Bounds = o.Outer.Bounds()
	return o
}

// At returns the working shape placed with its reference corner at (x, y).
func (o *Oriented) At(x, y float64) geometry.Shape {
	mabb := o.MABB
	return geometry.NewShape(o.Outer, o.Holes, &mabb).Translate(x, y)
}

// SourceRect returns the rotated source bounding box placed at (x, y).
func (o *Oriented) SourceRect(x, y float64) model.Rect {
	return model.Rect{MinX: x, MinY: y, MaxX: x + o.Width, MaxY: y + o.Height}
}

// SourceAt returns the un-inflated outline placed at (x, y).
func (o *Oriented) SourceAt(x, y float64) model.Outline {
	return o.Transform.Then(geometry.Translation(x, y)).ApplyOutline(o.Geometry.Source)
}

// PlacementTransform maps raw CAD coordinates of the part to sheet
// coordinates for a placement at (x, y) with the given rotation. The CAD
// to source mapping is re-applied before rotating.
func (g *PartGeometry) PlacementTransform(rotation, x, y float64) geometry.Affine {
	o := g.Orient(rotation)
	return g.FromCAD().
		Then(o.Transform).
		Then(geometry.Translation(x, y))
}
