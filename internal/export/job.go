// Package export writes nesting results to files for the shop floor: a
// layout PDF with true part outlines, a placement workbook and QR-coded part
// labels.
package export

import (
	"fmt"
	"math"

	"github.com/piwi3910/SlabNest/internal/engine"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
)

// Job bundles a nesting result with the inputs that produced it.
type Job struct {
	Name     string
	Settings model.NestSettings
	Parts    []model.ImportedPart
	Result   model.NestingResult
	// PricePerSheet is the stock price, used to value offcuts; 0 if unknown.
	PricePerSheet float64
}

// SheetStat summarizes one used sheet.
type SheetStat struct {
	Index      int // zero-based bin id
	Parts      int
	UsedArea   float64 // mm², net part area
	TotalArea  float64 // mm²
	Efficiency float64 // 0..1
	Offcuts    []model.Offcut
}

// drawing resolves part geometry for exporters. Parts are drawn from their
// raw entities; loose parts are accepted here even though the true-shape
// strategies refuse them.
type drawing struct {
	job   Job
	lib   *shape.Library
	parts map[string]model.ImportedPart
}

func newDrawing(job Job) *drawing {
	d := &drawing{
		job:   job,
		lib:   shape.NewLibrary(shape.Options{}),
		parts: make(map[string]model.ImportedPart, len(job.Parts)),
	}
	for _, p := range job.Parts {
		d.parts[p.ID] = p
	}
	return d
}

func (d *drawing) part(id string) (model.ImportedPart, error) {
	p, ok := d.parts[id]
	if !ok {
		return model.ImportedPart{}, fmt.Errorf("placement references unknown part %q", id)
	}
	return p, nil
}

// netArea prefers the normalized geometry and falls back to the figures
// recorded at import.
func (d *drawing) netArea(p model.ImportedPart) float64 {
	if g, err := d.lib.Get(p); err == nil {
		return g.NetArea
	}
	return p.FootprintArea()
}

// paths returns the sheet-space polylines of a placement. Parts whose
// geometry cannot be resolved are drawn as their rotated bounding box.
func (d *drawing) paths(p model.PlacedPart) ([]shape.Path, error) {
	part, err := d.part(p.PartID)
	if err != nil {
		return nil, err
	}
	if tf, err := engine.PlacementTransform(d.lib, part, p); err == nil {
		if paths, err := shape.Flatten(part.Entities, part.Blocks, tf); err == nil && len(paths) > 0 {
			return paths, nil
		}
	}
	w, h := rotatedSize(part.Width, part.Height, p.Rotation)
	r := model.Rect{MinX: p.X, MinY: p.Y, MaxX: p.X + w, MaxY: p.Y + h}
	return []shape.Path{{Points: r.Corners(), Closed: true}}, nil
}

// rotatedSize returns the bounding box of a w x h rectangle turned by deg.
func rotatedSize(w, h, deg float64) (float64, float64) {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	sin, cos = math.Abs(sin), math.Abs(cos)
	return w*cos + h*sin, w*sin + h*cos
}

// SheetStats returns per-sheet statistics in bin order.
func SheetStats(job Job) []SheetStat {
	d := newDrawing(job)
	total := job.Settings.BinWidth * job.Settings.BinHeight
	stats := make([]SheetStat, job.Result.TotalBins)
	used := make([][]model.Rect, job.Result.TotalBins)
	for i := range stats {
		stats[i] = SheetStat{Index: i, TotalArea: total}
	}
	for _, p := range job.Result.Placed {
		if p.BinID < 0 || p.BinID >= len(stats) {
			continue
		}
		part, err := d.part(p.PartID)
		if err != nil {
			continue
		}
		stats[p.BinID].Parts++
		stats[p.BinID].UsedArea += d.netArea(part)
		if paths, err := d.paths(p); err == nil {
			for _, path := range paths {
				used[p.BinID] = append(used[p.BinID], model.Outline(path.Points).Bounds())
			}
		}
	}
	for i := range stats {
		if total > 0 {
			stats[i].Efficiency = stats[i].UsedArea / total
		}
		stats[i].Offcuts = model.DetectOffcuts(i, used[i], job.Settings, job.PricePerSheet)
	}
	return stats
}

// FailedCounts groups unplaced instances by part id, in first-seen order.
func FailedCounts(result model.NestingResult) ([]string, map[string]int) {
	var order []string
	counts := make(map[string]int)
	for _, id := range result.Failed {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	return order, counts
}
