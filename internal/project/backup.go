package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/SlabNest/internal/model"
)

// RunFormatVersion is written into every saved run.
const RunFormatVersion = "1.0.0"

// SavedRun is a finished nesting run with everything needed to reopen it:
// the settings it ran under, the parts and the placements.
type SavedRun struct {
	Version   string               `json:"version"`
	CreatedAt string               `json:"created_at"`
	Name      string               `json:"name"`
	Settings  model.NestSettings   `json:"settings"`
	Parts     []model.ImportedPart `json:"parts"`
	Result    model.NestingResult  `json:"result"`
}

// SaveRun writes a run to path as JSON, creating parent directories.
func SaveRun(path string, name string, settings model.NestSettings, parts []model.ImportedPart, result model.NestingResult) error {
	run := SavedRun{
		Version:   RunFormatVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Name:      name,
		Settings:  settings,
		Parts:     parts,
		Result:    result,
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	return nil
}

// LoadRun reads a run written by SaveRun.
func LoadRun(path string) (SavedRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SavedRun{}, fmt.Errorf("failed to read run file: %w", err)
	}
	var run SavedRun
	if err := json.Unmarshal(data, &run); err != nil {
		return SavedRun{}, fmt.Errorf("failed to parse run file: %w", err)
	}
	if run.Version == "" {
		return SavedRun{}, fmt.Errorf("invalid run file: missing version field")
	}
	for _, p := range run.Result.Placed {
		if _, ok := findPart(run.Parts, p.PartID); !ok {
			return SavedRun{}, fmt.Errorf("invalid run file: placement %s refers to unknown part %s", p.UUID, p.PartID)
		}
	}
	return run, nil
}

func findPart(parts []model.ImportedPart, id string) (model.ImportedPart, bool) {
	for _, p := range parts {
		if p.ID == id {
			return p, true
		}
	}
	return model.ImportedPart{}, false
}
