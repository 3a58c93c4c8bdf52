package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/SlabNest/internal/gcode"
	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

// contour resolves the true outer loop and holes of a placement in sheet
// coordinates.
func (d *drawing) contour(p model.PlacedPart) (gcode.Contour, error) {
	part, err := d.part(p.PartID)
	if err != nil {
		return gcode.Contour{}, err
	}
	o, err := d.lib.Oriented(part, p.Rotation)
	if err != nil {
		return gcode.Contour{}, err
	}
	t := o.Transform.Then(geometry.Translation(p.X, p.Y))
	c := gcode.Contour{
		PartID: part.ID,
		Label:  part.Label,
		Outer:  t.ApplyOutline(o.Geometry.Source),
	}
	for _, h := range o.Geometry.SourceHoles {
		c.Holes = append(c.Holes, t.ApplyOutline(h))
	}
	return c, nil
}

// GCodeSheets builds the generator input for every used sheet. Parts whose
// outline cannot be resolved are reported as notes on their sheet.
func GCodeSheets(job Job) []gcode.Sheet {
	d := newDrawing(job)
	sheets := make([]gcode.Sheet, job.Result.TotalBins)
	for i := range sheets {
		sheets[i] = gcode.Sheet{Index: i, Width: job.Settings.BinWidth, Height: job.Settings.BinHeight}
	}
	for _, p := range job.Result.Placed {
		if p.BinID < 0 || p.BinID >= len(sheets) {
			continue
		}
		c, err := d.contour(p)
		if err != nil {
			sheets[p.BinID].Notes = append(sheets[p.BinID].Notes,
				fmt.Sprintf("placement %s not machined: %v", p.UUID, err))
			continue
		}
		sheets[p.BinID].Contours = append(sheets[p.BinID].Contours, c)
	}
	return sheets
}

// SheetPath derives the per-sheet file name from base: "out/job.nc" becomes
// "out/job_sheet1.nc".
func SheetPath(base string, index int) string {
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".nc"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_sheet%d%s", stem, index+1, ext)
}

// ExportGCode writes one program per used sheet next to base and returns
// the written paths.
func ExportGCode(base string, job Job, settings model.MachiningSettings, profile model.GCodeProfile) ([]string, error) {
	if job.Result.TotalBins == 0 {
		return nil, fmt.Errorf("no sheets to export")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	gen := gcode.New(settings, profile)
	var written []string
	for _, sheet := range GCodeSheets(job) {
		clashes := gcode.CheckToolpathClearance(sheet, settings)
		sheet.Notes = append(sheet.Notes, gcode.FormatClashWarnings(clashes)...)
		path := SheetPath(base, sheet.Index)
		if err := os.WriteFile(path, []byte(gen.GenerateSheet(sheet)), 0644); err != nil {
			return written, fmt.Errorf("sheet %d: %w", sheet.Index+1, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// ToolpathWarnings lists every toolpath of the job that would cut into a
// neighbouring part with the given tool.
func ToolpathWarnings(job Job, settings model.MachiningSettings) []string {
	var warnings []string
	for _, sheet := range GCodeSheets(job) {
		warnings = append(warnings, gcode.FormatClashWarnings(gcode.CheckToolpathClearance(sheet, settings))...)
	}
	return warnings
}
