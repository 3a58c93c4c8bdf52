package shape

import (
	"errors"
	"math"
	"testing"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) model.Point2D { return model.Point2D{X: x, Y: y} }

func pathBounds(paths []Path) model.Rect {
	var all model.Outline
	for _, p := range paths {
		all = append(all, p.Points...)
	}
	return all.Bounds()
}

func blockPart(id string, entities ...model.Entity) model.ImportedPart {
	name := "PART_" + id
	return model.ImportedPart{
		ID:       id,
		Entities: []model.Entity{model.NewInsert(name, model.Point2D{}, 0)},
		Blocks:   model.BlockTable{name: {Name: name, Entities: entities}},
		Quantity: 1,
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	insert := model.NewInsert("B", pt(100, 200), 90)
	insert.ScaleX = 2
	blocks := model.BlockTable{
		"B": {
			Name: "B",
			Base: pt(5, 5),
			Entities: []model.Entity{
				model.NewPolyline(true, pt(5, 5), pt(25, 5), pt(25, 15), pt(5, 15)),
			},
		},
	}
	wrapped, err := Flatten([]model.Entity{insert}, blocks, geometry.Identity())
	require.NoError(t, err)

	manual, err := Flatten([]model.Entity{
		model.NewPolyline(true, pt(100, 200), pt(100, 240), pt(90, 240), pt(90, 200)),
	}, nil, geometry.Identity())
	require.NoError(t, err)

	got, want := pathBounds(wrapped), pathBounds(manual)
	assert.InDelta(t, want.MinX, got.MinX, 1e-9)
	assert.InDelta(t, want.MinY, got.MinY, 1e-9)
	assert.InDelta(t, want.MaxX, got.MaxX, 1e-9)
	assert.InDelta(t, want.MaxY, got.MaxY, 1e-9)
}

func TestFlattenCyclicBlock(t *testing.T) {
	blocks := model.BlockTable{
		"A": {Name: "A", Entities: []model.Entity{model.NewInsert("B", pt(0, 0), 0)}},
		"B": {Name: "B", Entities: []model.Entity{model.NewInsert("A", pt(1, 0), 0)}},
	}
	_, err := Flatten([]model.Entity{model.NewInsert("A", pt(0, 0), 0)}, blocks, geometry.Identity())
	assert.True(t, errors.Is(err, ErrCyclicBlock), "got %v", err)
}

func TestFlattenUnknownBlock(t *testing.T) {
	_, err := Flatten([]model.Entity{model.NewInsert("missing", pt(0, 0), 0)}, nil, geometry.Identity())
	assert.True(t, errors.Is(err, ErrUnknownBlock), "got %v", err)
}

func TestFlattenReusedBlockIsNotCyclic(t *testing.T) {
	blocks := model.BlockTable{
		"HOLE": {Name: "HOLE", Entities: []model.Entity{model.NewCircle(pt(0, 0), 3)}},
		"PLATE": {Name: "PLATE", Entities: []model.Entity{
			model.NewInsert("HOLE", pt(10, 10), 0),
			model.NewInsert("HOLE", pt(30, 10), 0),
		}},
	}
	paths, err := Flatten([]model.Entity{model.NewInsert("PLATE", pt(0, 0), 0)}, blocks, geometry.Identity())
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	for _, p := range paths {
		assert.True(t, p.Closed)
	}
}

func TestFlattenBulgeCircle(t *testing.T) {
	e := model.Entity{
		Kind:   model.EntityPolyline,
		Closed: true,
		Vertices: []model.PolylineVertex{
			{Point2D: pt(0, 0), Bulge: 1},
			{Point2D: pt(10, 0), Bulge: 1},
		},
	}
	paths, err := Flatten([]model.Entity{e}, nil, geometry.Identity())
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.InDelta(t, math.Pi*25, model.Outline(paths[0].Points).Area(), 1)
}

func TestFlattenArcSweep(t *testing.T) {
	paths, err := Flatten([]model.Entity{model.NewArc(pt(0, 0), 10, 270, 90)}, nil, geometry.Identity())
	require.NoError(t, err)
	require.Len(t, paths, 1)
	b := pathBounds(paths)
	// 270 -> 90 counter-clockwise is the right half.
	assert.InDelta(t, 0, b.MinX, 1e-9)
	assert.InDelta(t, 10, b.MaxX, 1e-9)
}

func TestStitchSegmentsMixedOrientation(t *testing.T) {
	paths := []Path{
		{Points: []model.Point2D{pt(0, 0), pt(10, 0)}},
		{Points: []model.Point2D{pt(10, 10), pt(10, 0)}},
		{Points: []model.Point2D{pt(0, 10), pt(0, 0)}},
		{Points: []model.Point2D{pt(10, 10), pt(0, 10)}},
	}
	loops, open := StitchSegments(paths, DefaultStitchTolerance)
	require.Len(t, loops, 1)
	assert.Empty(t, open)
	assert.Len(t, loops[0], 4)
	assert.InDelta(t, 100, loops[0].Area(), 1e-9)
}

func TestStitchSegmentsTolerance(t *testing.T) {
	paths := []Path{
		{Points: []model.Point2D{pt(0, 0), pt(10, 0)}},
		{Points: []model.Point2D{pt(10.05, 0), pt(10, 10)}},
		{Points: []model.Point2D{pt(10, 10), pt(0.05, 0.05)}},
	}
	loops, open := StitchSegments(paths, DefaultStitchTolerance)
	assert.Len(t, loops, 1)
	assert.Empty(t, open)

	loops, open = StitchSegments(paths, 0.01)
	assert.Empty(t, loops)
	assert.NotEmpty(t, open)
}

func TestStitchSegmentsRejectsOpenChain(t *testing.T) {
	paths := []Path{
		{Points: []model.Point2D{pt(0, 0), pt(0, 10)}},
		{Points: []model.Point2D{pt(0, 10), pt(10, 10)}},
		{Points: []model.Point2D{pt(10, 0), pt(10, 10)}},
	}
	loops, open := StitchSegments(paths, DefaultStitchTolerance)
	assert.Empty(t, loops)
	require.Len(t, open, 1)
	assert.Len(t, open[0].Points, 4)
}

func uShape() []model.Entity {
	return []model.Entity{
		model.NewLine(pt(0, 0), pt(0, 10)),
		model.NewLine(pt(0, 10), pt(10, 10)),
		model.NewLine(pt(10, 10), pt(10, 0)),
	}
}

func TestNormalizeGatekeeper(t *testing.T) {
	loose := model.ImportedPart{
		ID: "loose",
		Entities: []model.Entity{
			model.NewLine(pt(0, 0), pt(10, 0)),
			model.NewLine(pt(10, 0), pt(10, 10)),
			model.NewLine(pt(10, 10), pt(0, 10)),
			model.NewLine(pt(0, 10), pt(0, 0)),
		},
	}
	_, err := Normalize(loose, Options{RequireBlock: true})
	assert.True(t, errors.Is(err, ErrLoosePart))

	g, err := Normalize(loose, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 100, g.NetArea, 1e-9)
}

func TestNormalizeHoles(t *testing.T) {
	part := blockPart("plate",
		model.NewPolyline(true, pt(0, 0), pt(100, 0), pt(100, 100), pt(0, 100)),
		model.NewCircle(pt(50, 50), 10),
	)
	g, err := Normalize(part, Options{RequireBlock: true})
	require.NoError(t, err)
	require.Len(t, g.Holes, 1)
	assert.InDelta(t, 10000-math.Pi*100, g.NetArea, 5)
	assert.InDelta(t, g.NetArea, g.Area, 1e-9)
}

func TestNormalizeDisjoint(t *testing.T) {
	part := blockPart("two",
		model.NewPolyline(true, pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10)),
		model.NewPolyline(true, pt(20, 0), pt(30, 0), pt(30, 10), pt(20, 10)),
	)
	_, err := Normalize(part, Options{})
	assert.True(t, errors.Is(err, ErrDisjoint), "got %v", err)
}

func TestNormalizeSelfIntersecting(t *testing.T) {
	part := blockPart("bowtie", model.NewPolyline(true, pt(0, 0), pt(10, 10), pt(10, 0), pt(0, 10)))
	_, err := Normalize(part, Options{})
	assert.True(t, errors.Is(err, ErrSelfIntersecting), "got %v", err)
}

func TestNormalizeDegenerate(t *testing.T) {
	part := blockPart("flat", model.NewPolyline(true, pt(0, 0), pt(10, 0), pt(20, 0)))
	_, err := Normalize(part, Options{})
	assert.True(t, errors.Is(err, ErrDegenerate), "got %v", err)

	_, err = Normalize(model.ImportedPart{ID: "empty"}, Options{})
	assert.True(t, errors.Is(err, ErrNoGeometry))
}

func TestNormalizeOpenContour(t *testing.T) {
	part := blockPart("u", uShape()...)
	_, err := Normalize(part, Options{})
	assert.True(t, errors.Is(err, ErrOpenContour), "got %v", err)

	g, err := Normalize(part, Options{ForceClose: true})
	require.NoError(t, err)
	assert.InDelta(t, 100, g.NetArea, 1e-9)
	assert.NotEmpty(t, g.Warnings)
}

func TestNormalizeInflation(t *testing.T) {
	part := blockPart("sq", model.NewPolyline(true, pt(500, 300), pt(600, 300), pt(600, 400), pt(500, 400)))
	g, err := Normalize(part, Options{Inflation: 2.6})
	require.NoError(t, err)

	assert.Equal(t, pt(500, 400), g.Origin)
	sb := g.Source.Bounds()
	assert.InDelta(t, 0, sb.MinX, 1e-9)
	assert.InDelta(t, 100, sb.MaxX, 1e-9)
	assert.InDelta(t, -2.6, g.Bounds.MinX, 1e-9)
	assert.InDelta(t, 102.6, g.Bounds.MaxY, 1e-9)
	assert.Greater(t, g.Area, g.NetArea)
	assert.LessOrEqual(t, g.MABB.Area(), g.Bounds.Area()+1e-6)
}

func TestOrient(t *testing.T) {
	g, err := Normalize(model.NewRectanglePart("r", 100, 50, 1), Options{Inflation: 1})
	require.NoError(t, err)

	o := g.Orient(90)
	assert.InDelta(t, 50, o.Width, 1e-9)
	assert.InDelta(t, 100, o.Height, 1e-9)
	assert.InDelta(t, -1, o.Bounds.MinX, 1e-9)
	assert.InDelta(t, -1, o.Bounds.MinY, 1e-9)

	b := o.SourceAt(10, 20).Bounds()
	assert.InDelta(t, 10, b.MinX, 1e-9)
	assert.InDelta(t, 20, b.MinY, 1e-9)
	assert.InDelta(t, 60, b.MaxX, 1e-9)
	assert.InDelta(t, 120, b.MaxY, 1e-9)

	sh := o.At(10, 20)
	assert.InDelta(t, 9, sh.Bounds.MinX, 1e-9)
	mb := sh.MABB.Bounds()
	assert.InDelta(t, 9, mb.MinX, 1e-6)
	assert.InDelta(t, 121, mb.MaxY, 1e-6)
}

func TestPlacementTransform(t *testing.T) {
	raw := model.Outline{pt(500, 300), pt(600, 300), pt(600, 350), pt(500, 350)}
	part := blockPart("p", model.NewPolyline(true, raw...))
	g, err := Normalize(part, Options{})
	require.NoError(t, err)

	for _, rot := range []float64{0, 90, 180, 270, 45} {
		placed := g.PlacementTransform(rot, 10, 20).ApplyOutline(raw).Bounds()
		assert.InDelta(t, 10, placed.MinX, 1e-6, "rotation %v", rot)
		assert.InDelta(t, 20, placed.MinY, 1e-6, "rotation %v", rot)
	}
}

func TestLibraryCaches(t *testing.T) {
	lib := NewLibrary(Options{Inflation: 1, RequireBlock: true})
	part := model.NewRectanglePart("a", 10, 10, 1)

	g1, err := lib.Get(part)
	require.NoError(t, err)
	g2, err := lib.Get(part)
	require.NoError(t, err)
	assert.Same(t, g1, g2)

	o1, err := lib.Oriented(part, 90)
	require.NoError(t, err)
	o2, err := lib.Oriented(part, 450)
	require.NoError(t, err)
	assert.Same(t, o1, o2)

	loose := model.ImportedPart{ID: "loose", Entities: uShape()}
	_, err = lib.Get(loose)
	assert.True(t, errors.Is(err, ErrLoosePart))
	_, err = lib.Oriented(loose, 0)
	assert.True(t, errors.Is(err, ErrLoosePart))
	assert.Equal(t, 2, lib.Len())
}
