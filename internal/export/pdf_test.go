package export

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/SlabNest/internal/engine"
	"github.com/piwi3910/SlabNest/internal/model"
)

func ringPart(id string, qty int) model.ImportedPart {
	block := "PART_" + id
	return model.ImportedPart{
		ID:       id,
		Label:    "Ring " + id,
		Entities: []model.Entity{model.NewInsert(block, model.Point2D{X: 500, Y: 500}, 0)},
		Blocks: model.BlockTable{
			block: {Name: block, Entities: []model.Entity{
				model.NewCircle(model.Point2D{}, 60),
				model.NewCircle(model.Point2D{}, 25),
			}},
		},
		Width:    120,
		Height:   120,
		NetArea:  math.Pi * (60*60 - 25*25),
		Quantity: qty,
	}
}

// buildTestJob nests a small mixed job so exporters see real output.
func buildTestJob(t *testing.T, strategy model.Strategy) Job {
	t.Helper()
	settings := model.NestSettings{
		Strategy:     strategy,
		BinWidth:     600,
		BinHeight:    400,
		Margin:       10,
		Gap:          4,
		Kerf:         1,
		RotationStep: 90,
		MaxBins:      model.DefaultMaxBins,
		CropLines:    []model.CropLine{{A: model.Point2D{X: 0, Y: 395}, B: model.Point2D{X: 600, Y: 395}}},
	}
	parts := []model.ImportedPart{
		model.NewRectanglePart("panel", 300, 200, 3),
		ringPart("ring", 2),
		model.NewRectanglePart("huge", 2000, 2000, 1),
	}
	res, err := engine.Nest(context.Background(), settings, parts)
	if err != nil {
		t.Fatalf("nest: %v", err)
	}
	return Job{Name: "test", Settings: settings, Parts: parts, Result: res}
}

func TestExportPDF_CreatesFile(t *testing.T) {
	for _, st := range []model.Strategy{model.StrategyGuillotine, model.StrategyNFP} {
		t.Run(string(st), func(t *testing.T) {
			job := buildTestJob(t, st)
			path := filepath.Join(t.TempDir(), "layout.pdf")

			if err := ExportPDF(path, job); err != nil {
				t.Fatalf("ExportPDF returned error: %v", err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("PDF file was not created: %v", err)
			}
			if info.Size() < 500 {
				t.Errorf("PDF file seems too small: %d bytes", info.Size())
			}
		})
	}
}

func TestExportPDF_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	err := ExportPDF(path, Job{Settings: model.DefaultSettings()})
	if err == nil {
		t.Fatal("expected error for empty result, got nil")
	}
}

func TestExportPDF_UnknownPart(t *testing.T) {
	job := Job{
		Settings: model.DefaultSettings(),
		Result: model.NestingResult{
			Placed:    []model.PlacedPart{model.NewPlacedPart("ghost", 10, 10, 0, 0)},
			TotalBins: 1,
		},
	}
	if err := ExportPDF(filepath.Join(t.TempDir(), "ghost.pdf"), job); err == nil {
		t.Fatal("expected error for a placement of an unknown part")
	}
}

func TestPlacementPathsFollowPlacement(t *testing.T) {
	job := buildTestJob(t, model.StrategyNFP)
	d := newDrawing(job)

	for _, p := range job.Result.Placed {
		paths, err := d.paths(p)
		if err != nil {
			t.Fatalf("paths: %v", err)
		}
		var pts model.Outline
		for _, path := range paths {
			pts = append(pts, path.Points...)
		}
		b := pts.Bounds()
		if math.Abs(b.MinX-p.X) > 1e-6 || math.Abs(b.MinY-p.Y) > 1e-6 {
			t.Errorf("%s drawn at (%.3f, %.3f), placed at (%.3f, %.3f)", p.PartID, b.MinX, b.MinY, p.X, p.Y)
		}
	}
}

func TestRotatedSize(t *testing.T) {
	w, h := rotatedSize(100, 40, 90)
	if math.Abs(w-40) > 1e-9 || math.Abs(h-100) > 1e-9 {
		t.Errorf("expected 40 x 100, got %f x %f", w, h)
	}
	w, h = rotatedSize(100, 40, 180)
	if math.Abs(w-100) > 1e-9 || math.Abs(h-40) > 1e-9 {
		t.Errorf("expected 100 x 40, got %f x %f", w, h)
	}
}

func TestClipLine(t *testing.T) {
	a, b := clipLine(model.CropLine{A: model.Point2D{X: 10, Y: 50}, B: model.Point2D{X: 20, Y: 50}}, 200, 100)
	if a.X != 0 || b.X != 200 || a.Y != 50 || b.Y != 50 {
		t.Errorf("expected full-width line, got %+v -> %+v", a, b)
	}
}

func TestSheetStats(t *testing.T) {
	job := buildTestJob(t, model.StrategyGuillotine)
	stats := SheetStats(job)
	if len(stats) != job.Result.TotalBins {
		t.Fatalf("expected %d sheets, got %d", job.Result.TotalBins, len(stats))
	}
	parts := 0
	for _, st := range stats {
		parts += st.Parts
		if st.Efficiency <= 0 || st.Efficiency > 1 {
			t.Errorf("sheet %d efficiency out of range: %f", st.Index, st.Efficiency)
		}
	}
	if parts != len(job.Result.Placed) {
		t.Errorf("expected %d parts, got %d", len(job.Result.Placed), parts)
	}
}

func TestLabelFontSize(t *testing.T) {
	tests := []struct {
		w, h float64
		want float64
	}{
		{100, 50, 8},
		{30, 25, 7},
		{15, 10, 6},
	}
	for _, tt := range tests {
		if got := labelFontSize(tt.w, tt.h); got != tt.want {
			t.Errorf("labelFontSize(%v, %v) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}
