package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
)

func TestExportLabels_CreatesFile(t *testing.T) {
	job := buildTestJob(t, model.StrategyGuillotine)
	path := filepath.Join(t.TempDir(), "labels.pdf")

	if err := ExportLabels(path, job); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestExportLabels_NoPlacements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.pdf")
	if err := ExportLabels(path, Job{}); err == nil {
		t.Fatal("expected error for result with no placements, got nil")
	}
}

func TestCollectLabelInfos(t *testing.T) {
	job := buildTestJob(t, model.StrategyGuillotine)
	labels := CollectLabelInfos(job)

	if len(labels) != len(job.Result.Placed) {
		t.Fatalf("expected %d labels, got %d", len(job.Result.Placed), len(labels))
	}
	seen := make(map[string]bool)
	for i, l := range labels {
		p := job.Result.Placed[i]
		if l.UUID != p.UUID || l.SheetIndex != p.BinID+1 {
			t.Errorf("label %d does not match placement: %+v vs %+v", i, l, p)
		}
		if seen[l.UUID] {
			t.Errorf("duplicate label UUID %s", l.UUID)
		}
		seen[l.UUID] = true
		if l.PartID == "ring" && l.PartLabel != "Ring ring" {
			t.Errorf("expected part label, got %q", l.PartLabel)
		}
	}
}

func TestLabelInfo_JSONFields(t *testing.T) {
	data, err := json.Marshal(LabelInfo{UUID: "u", PartID: "p", SheetIndex: 2, Rotation: 90})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"uuid", "part", "sheet", "rotation_deg", "x_mm", "y_mm"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing JSON key %q", key)
		}
	}
}

func TestExportLabels_ManyParts(t *testing.T) {
	var placed []model.PlacedPart
	for i := 0; i < 45; i++ {
		placed = append(placed, model.NewPlacedPart("panel", float64(i), 0, 0, i/10))
	}
	job := Job{
		Parts:  []model.ImportedPart{model.NewRectanglePart("panel", 100, 50, 45)},
		Result: model.NestingResult{Placed: placed, TotalBins: 5},
	}
	if err := ExportLabels(filepath.Join(t.TempDir(), "many.pdf"), job); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}
}
