package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
)

func sampleRun() (model.NestSettings, []model.ImportedPart, model.NestingResult) {
	settings := model.DefaultSettings()
	settings.CropLines = []model.CropLine{{A: model.Point2D{X: 0, Y: 700}, B: model.Point2D{X: 3000, Y: 700}}}
	parts := []model.ImportedPart{
		model.NewRectanglePart("shelf", 300, 200, 2),
		model.NewRectanglePart("door", 600, 400, 1),
	}
	result := model.NestingResult{
		Placed: []model.PlacedPart{
			model.NewPlacedPart("shelf", 10, 10, 0, 0),
			model.NewPlacedPart("shelf", 320, 10, 90, 0),
			model.NewPlacedPart("door", 10, 10, 0, 1),
		},
		Efficiency: 0.42,
		TotalBins:  2,
	}
	return settings, parts, result
}

func TestSaveAndLoadRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	settings, parts, result := sampleRun()

	if err := SaveRun(path, "kitchen", settings, parts, result); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	run, err := LoadRun(path)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if run.Version != RunFormatVersion {
		t.Errorf("expected version %s, got %s", RunFormatVersion, run.Version)
	}
	if run.CreatedAt == "" {
		t.Error("expected non-empty CreatedAt")
	}
	if run.Name != "kitchen" {
		t.Errorf("expected name kitchen, got %s", run.Name)
	}
	if len(run.Settings.CropLines) != 1 || run.Settings.CropLines[0].A.Y != 700 {
		t.Errorf("crop lines not preserved: %+v", run.Settings.CropLines)
	}
	if len(run.Result.Placed) != 3 || run.Result.Placed[1].Rotation != 90 {
		t.Errorf("placements not preserved: %+v", run.Result.Placed)
	}
	if run.Result.Placed[0].UUID != result.Placed[0].UUID {
		t.Error("placement UUIDs must survive a round trip")
	}

	shelf, ok := findPart(run.Parts, "shelf")
	if !ok {
		t.Fatal("shelf part missing")
	}
	if len(shelf.Blocks) != 1 || len(shelf.Entities) != 1 || shelf.Entities[0].Kind != model.EntityInsert {
		t.Errorf("part geometry not preserved: %+v", shelf)
	}
}

func TestLoadRunMissingFile(t *testing.T) {
	_, err := LoadRun(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRunInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json}"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadRun(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadRunMissingVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noversion.json")
	data := []byte(`{"name":"x","result":{"placed":[]}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadRun(path)
	if err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestLoadRunUnknownPart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orphan.json")
	data := []byte(`{"version":"1.0.0","parts":[],"result":{"placed":[{"uuid":"u1","part_id":"ghost"}]}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadRun(path)
	if err == nil {
		t.Fatal("expected error for placement of unknown part")
	}
}

func TestSaveRunCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "run.json")
	settings, parts, result := sampleRun()

	if err := SaveRun(path, "x", settings, parts, result); err != nil {
		t.Fatalf("SaveRun should create parent dirs: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("run file was not created")
	}
}
