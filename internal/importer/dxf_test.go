package importer

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
	"github.com/yofu/dxf"
)

func squareLines(x, y, size float64) []model.Entity {
	p := func(dx, dy float64) model.Point2D { return model.Point2D{X: x + dx, Y: y + dy} }
	return []model.Entity{
		model.NewLine(p(0, 0), p(size, 0)),
		model.NewLine(p(size, size), p(size, 0)),
		model.NewLine(p(size, size), p(0, size)),
		model.NewLine(p(0, size), p(0, 0)),
	}
}

func TestPartsFromEntities_GroupsHolesWithTheirOutline(t *testing.T) {
	entities := squareLines(0, 0, 100)
	entities = append(entities,
		model.NewCircle(model.Point2D{X: 50, Y: 50}, 10),
		model.NewPolyline(true,
			model.Point2D{X: 200, Y: 0},
			model.Point2D{X: 250, Y: 0},
			model.Point2D{X: 250, Y: 30},
			model.Point2D{X: 200, Y: 30},
		),
		model.NewLine(model.Point2D{X: 1000, Y: 1000}, model.Point2D{X: 1010, Y: 1000}),
	)

	result := PartsFromEntities("job", entities)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(result.Parts))
	}

	plate := result.Parts[0]
	if plate.ID != "job-1" || plate.Width != 100 || plate.Height != 100 {
		t.Errorf("unexpected plate %+v", plate)
	}
	if n := len(plate.Blocks["PART_job-1"].Entities); n != 5 {
		t.Errorf("expected 4 lines and a circle in the plate block, got %d", n)
	}
	if math.Abs(plate.NetArea-(10000-math.Pi*100)) > 5 {
		t.Errorf("expected net area near %.1f, got %.1f", 10000-math.Pi*100, plate.NetArea)
	}
	if plate.GrossArea != 10000 {
		t.Errorf("expected gross area 10000, got %f", plate.GrossArea)
	}

	strip := result.Parts[1]
	if strip.Width != 50 || strip.Height != 30 || strip.Quantity != 1 {
		t.Errorf("unexpected strip %+v", strip)
	}

	joined := strings.Join(result.Warnings, "; ")
	if !strings.Contains(joined, "open contours") || !strings.Contains(joined, "outside any closed outline") {
		t.Errorf("expected open and loose warnings, got %q", joined)
	}
}

func TestPartsFromEntities_PartInsideHole(t *testing.T) {
	var entities []model.Entity
	entities = append(entities, squareLines(0, 0, 100)...)
	entities = append(entities, squareLines(20, 20, 60)...)
	entities = append(entities, squareLines(40, 40, 20)...)

	result := PartsFromEntities("nest", entities)
	if len(result.Parts) != 2 {
		t.Fatalf("expected frame and insert parts, got %d", len(result.Parts))
	}
	if got := result.Parts[0].NetArea; math.Abs(got-6400) > 1e-6 {
		t.Errorf("expected frame net area 6400, got %f", got)
	}
	if got := len(result.Parts[0].Blocks["PART_nest-1"].Entities); got != 8 {
		t.Errorf("expected frame to own 8 lines, got %d", got)
	}
	if got := result.Parts[1].NetArea; math.Abs(got-400) > 1e-6 {
		t.Errorf("expected insert net area 400, got %f", got)
	}
}

func TestPartsFromEntities_NormalizesForTrueShape(t *testing.T) {
	entities := append(squareLines(10, 10, 80), model.NewCircle(model.Point2D{X: 50, Y: 50}, 15))
	result := PartsFromEntities("ring", entities)
	if len(result.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(result.Parts))
	}

	g, err := shape.Normalize(result.Parts[0], shape.Options{RequireBlock: true})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(g.Holes) != 1 {
		t.Errorf("expected one hole, got %d", len(g.Holes))
	}
	if g.Bounds.MinX != 0 || g.Bounds.MinY != 0 {
		t.Errorf("expected normalized bounds at origin, got %+v", g.Bounds)
	}
}

func TestPartsFromEntities_NoClosedShapes(t *testing.T) {
	result := PartsFromEntities("open", []model.Entity{
		model.NewLine(model.Point2D{}, model.Point2D{X: 10}),
	})
	if len(result.Errors) != 1 || len(result.Parts) != 0 {
		t.Errorf("expected a single error, got %+v", result)
	}
}

func TestImportDXF_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bracket.dxf")
	d := dxf.NewDrawing()
	d.Line(0, 0, 0, 120, 0, 0)
	d.Line(120, 0, 0, 120, 60, 0)
	d.Line(120, 60, 0, 0, 60, 0)
	d.Line(0, 60, 0, 0, 0, 0)
	d.Circle(30, 30, 0, 8)
	if err := d.SaveAs(path); err != nil {
		t.Fatalf("save dxf: %v", err)
	}

	result := ImportDXF(path)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(result.Parts))
	}
	p := result.Parts[0]
	if p.ID != "bracket-1" {
		t.Errorf("expected ID bracket-1, got %s", p.ID)
	}
	if math.Abs(p.Width-120) > 1e-6 || math.Abs(p.Height-60) > 1e-6 {
		t.Errorf("expected 120 x 60, got %.2f x %.2f", p.Width, p.Height)
	}
}

func TestImportDXF_FileNotFound(t *testing.T) {
	result := ImportDXF(filepath.Join(t.TempDir(), "missing.dxf"))
	if len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}
}
