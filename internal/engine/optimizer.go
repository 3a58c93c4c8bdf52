// Package engine places imported parts on stock sheets. It hosts the three
// strategies (strip packing, genetic true-shape nesting and no-fit-polygon
// first-fit), the shared placement validator and the interactive edit
// session.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
)

// Strategy is one nesting algorithm.
type Strategy interface {
	Kind() model.Strategy
	Nest(ctx context.Context, parts []model.ImportedPart) (model.NestingResult, error)
}

// Progress is reported by long-running strategies.
type Progress struct {
	Generation  int
	Generations int
	BestFitness float64
	Best        model.NestingResult
}

// ProgressFunc receives progress updates. It is called on the nesting
// goroutine.
type ProgressFunc func(Progress)

// Nester runs the strategy selected by its settings.
type Nester struct {
	Settings model.NestSettings
	Genetic  GeneticConfig
	NFP      NFPCalculator // nil selects the in-process calculator
	Progress ProgressFunc
}

// New returns a Nester for settings with the default genetic parameters.
func New(settings model.NestSettings) *Nester {
	return &Nester{Settings: settings, Genetic: DefaultGeneticConfig()}
}

// Strategy returns the configured algorithm.
func (n *Nester) Strategy() Strategy {
	switch n.Settings.Strategy {
	case model.StrategyGenetic:
		return &GeneticNester{Settings: n.Settings, Config: n.Genetic, Progress: n.Progress}
	case model.StrategyNFP:
		return &NFPNester{Settings: n.Settings, Calculator: n.NFP}
	default:
		return &StripPacker{Settings: n.Settings}
	}
}

// Nest validates the settings and runs the selected strategy.
func (n *Nester) Nest(ctx context.Context, parts []model.ImportedPart) (model.NestingResult, error) {
	if err := n.Settings.Validate(); err != nil {
		return model.NestingResult{}, err
	}
	for _, p := range parts {
		if p.Quantity < 0 {
			return model.NestingResult{}, fmt.Errorf("part %s: negative quantity %d", p.ID, p.Quantity)
		}
	}
	return n.Strategy().Nest(ctx, parts)
}

// Nest is a convenience wrapper around New(settings).Nest.
func Nest(ctx context.Context, settings model.NestSettings, parts []model.ImportedPart) (model.NestingResult, error) {
	return New(settings).Nest(ctx, parts)
}

// instance is one unit of a part's quantity.
type instance struct {
	part *model.ImportedPart
	seq  int
}

// expand turns parts into one instance per unit of quantity.
func expand(parts []model.ImportedPart) []instance {
	var out []instance
	for i := range parts {
		for k := 0; k < parts[i].Quantity; k++ {
			out = append(out, instance{part: &parts[i], seq: k})
		}
	}
	return out
}

// trueShapeLibrary returns the geometry cache used by the true-shape
// strategies: gatekeeper on, clearance baked in.
func trueShapeLibrary(settings model.NestSettings) *shape.Library {
	return shape.NewLibrary(shape.Options{
		Inflation:    settings.Clearance(),
		RequireBlock: true,
	})
}

// finish fills in the derived fields of a result: bin count and efficiency
// (placed net area over the total area of the used sheets).
func finish(res *model.NestingResult, parts []model.ImportedPart, settings model.NestSettings, netArea func(model.ImportedPart) float64) {
	byID := make(map[string]model.ImportedPart, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}

	bins := 0
	var used float64
	for _, p := range res.Placed {
		if p.BinID+1 > bins {
			bins = p.BinID + 1
		}
		if part, ok := byID[p.PartID]; ok {
			used += netArea(part)
		}
	}
	res.TotalBins = bins
	res.Efficiency = 0
	if bins > 0 {
		res.Efficiency = used / (float64(bins) * settings.BinWidth * settings.BinHeight)
	}

	sort.SliceStable(res.Placed, func(i, j int) bool {
		return res.Placed[i].BinID < res.Placed[j].BinID
	})
}

// libraryArea reports net area from normalized geometry, falling back to
// the imported figures.
func libraryArea(lib *shape.Library) func(model.ImportedPart) float64 {
	return func(p model.ImportedPart) float64 {
		if g, err := lib.Get(p); err == nil {
			return g.NetArea
		}
		return p.FootprintArea()
	}
}

// PlacementTransform returns the transform exporters apply to a part's raw
// CAD coordinates to draw a placement on its sheet.
func PlacementTransform(lib *shape.Library, part model.ImportedPart, p model.PlacedPart) (geometry.Affine, error) {
	g, err := lib.Get(part)
	if err != nil {
		return geometry.Affine{}, err
	}
	return g.PlacementTransform(p.Rotation, p.X, p.Y), nil
}
