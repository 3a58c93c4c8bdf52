package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
)

// GeneticConfig holds parameters for the genetic true-shape nester.
type GeneticConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	EliteCount     int
	GridStep       float64 // mm between scanned positions
	Seed           int64
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 20,
		Generations:    40,
		MutationRate:   0.5,
		EliteCount:     2,
		GridStep:       3,
		Seed:           42,
	}
}

func (c GeneticConfig) withDefaults() GeneticConfig {
	d := DefaultGeneticConfig()
	if c.PopulationSize <= 0 {
		c.PopulationSize = d.PopulationSize
	}
	if c.Generations < 0 {
		c.Generations = 0
	}
	if c.MutationRate <= 0 {
		c.MutationRate = d.MutationRate
	}
	if c.EliteCount <= 0 {
		c.EliteCount = d.EliteCount
	}
	if c.GridStep <= 0 {
		c.GridStep = d.GridStep
	}
	return c
}

// chromosome is a candidate solution: a placement order over instances and
// a preferred rotation index per instance.
type chromosome struct {
	order     []int
	rotations []int // indexed by instance, not by order position
	fitness   float64
	decoded   *decoded
}

// decoded is the layout a chromosome produces.
type decoded struct {
	placed []model.PlacedPart
	failed []string
}

// GeneticNester searches placement order and rotation with a genetic
// algorithm and decodes each genome with a first-fit grid scan over the
// true outlines.
type GeneticNester struct {
	Settings model.NestSettings
	Config   GeneticConfig
	Progress ProgressFunc
}

// Kind reports the genetic true-shape strategy.
func (g *GeneticNester) Kind() model.Strategy { return model.StrategyGenetic }

type geneticRun struct {
	settings  model.NestSettings
	config    GeneticConfig
	lib       *shape.Library
	validator *Validator
	instances []instance
	rotations []float64
	netArea   []float64
	rng       *rand.Rand
}

// Nest evolves the population for the configured number of generations.
// Cancellation is checked between generations; a cancelled run returns the
// best layout found so far together with the context error.
func (g *GeneticNester) Nest(ctx context.Context, parts []model.ImportedPart) (model.NestingResult, error) {
	cfg := g.Config.withDefaults()
	lib := trueShapeLibrary(g.Settings)

	var res model.NestingResult
	var usable []instance
	reported := make(map[string]bool)
	for _, inst := range expand(parts) {
		if _, err := lib.Get(*inst.part); err != nil {
			res.Failed = append(res.Failed, inst.part.ID)
			if !reported[inst.part.ID] {
				reported[inst.part.ID] = true
				res.Diagnostics = append(res.Diagnostics, err.Error())
			}
			continue
		}
		usable = append(usable, inst)
	}

	run := &geneticRun{
		settings:  g.Settings,
		config:    cfg,
		lib:       lib,
		validator: NewValidator(g.Settings),
		instances: usable,
		rotations: g.Settings.Rotations(),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, inst := range usable {
		geom, _ := lib.Get(*inst.part)
		run.netArea = append(run.netArea, geom.NetArea)
	}

	best, err := run.optimize(ctx, g.Progress, func(d *decoded) model.NestingResult {
		out := res.Clone()
		out.Placed = append(out.Placed, d.placed...)
		out.Failed = append(out.Failed, d.failed...)
		finish(&out, parts, g.Settings, libraryArea(lib))
		return out
	})
	out := res.Clone()
	if best != nil {
		out.Placed = append(out.Placed, best.placed...)
		out.Failed = append(out.Failed, best.failed...)
		if len(best.failed) > 0 {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%d instances found no position", len(best.failed)))
		}
	}
	finish(&out, parts, g.Settings, libraryArea(lib))
	return out, err
}

// optimize runs the evolution loop and returns the best decoded layout.
func (r *geneticRun) optimize(ctx context.Context, progress ProgressFunc, report func(*decoded) model.NestingResult) (*decoded, error) {
	if len(r.instances) == 0 {
		return &decoded{}, ctx.Err()
	}

	population := r.initPopulation()
	for i := range population {
		r.evaluate(&population[i])
	}
	sortByFitness(population)

	for gen := 0; gen < r.config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return population[0].decoded, err
		}

		next := make([]chromosome, 0, r.config.PopulationSize)
		elite := min(r.config.EliteCount, len(population))
		for i := 0; i < elite; i++ {
			next = append(next, population[i])
		}
		for len(next) < r.config.PopulationSize {
			child := r.copyChromosome(r.selectParent(population))
			r.mutate(&child)
			r.evaluate(&child)
			next = append(next, child)
		}
		population = next
		sortByFitness(population)

		if progress != nil {
			progress(Progress{
				Generation:  gen + 1,
				Generations: r.config.Generations,
				BestFitness: population[0].fitness,
				Best:        report(population[0].decoded),
			})
		}
	}
	return population[0].decoded, ctx.Err()
}

func sortByFitness(population []chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
}

// initPopulation seeds one greedy genome (area descending, rotation 0) and
// fills the rest with random permutations and rotations.
func (r *geneticRun) initPopulation() []chromosome {
	n := len(r.instances)
	population := make([]chromosome, r.config.PopulationSize)
	for i := range population {
		rots := make([]int, n)
		for k := range rots {
			rots[k] = r.rng.Intn(len(r.rotations))
		}
		population[i] = chromosome{order: r.rng.Perm(n), rotations: rots}
	}
	population[0] = r.createGreedyChromosome()
	return population
}

func (r *geneticRun) createGreedyChromosome() chromosome {
	n := len(r.instances)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return r.netArea[order[i]] > r.netArea[order[j]]
	})
	return chromosome{order: order, rotations: make([]int, n)}
}

// selectParent draws uniformly from the top half of a sorted population.
func (r *geneticRun) selectParent(population []chromosome) chromosome {
	half := max(1, len(population)/2)
	return population[r.rng.Intn(half)]
}

// mutate swaps two positions and/or resamples one rotation. At least one
// of the two always happens so children differ from their parent.
func (r *geneticRun) mutate(c *chromosome) {
	n := len(c.order)
	swapped := false
	if n >= 2 && r.rng.Float64() < r.config.MutationRate {
		i, j := r.rng.Intn(n), r.rng.Intn(n)
		c.order[i], c.order[j] = c.order[j], c.order[i]
		swapped = true
	}
	if len(r.rotations) > 1 && (!swapped || r.rng.Float64() < r.config.MutationRate) {
		k := r.rng.Intn(n)
		c.rotations[k] = r.rng.Intn(len(r.rotations))
	}
	c.decoded = nil
	c.fitness = 0
}

func (r *geneticRun) copyChromosome(c chromosome) chromosome {
	return chromosome{
		order:     append([]int(nil), c.order...),
		rotations: append([]int(nil), c.rotations...),
		fitness:   c.fitness,
		decoded:   c.decoded,
	}
}

// evaluate decodes a chromosome and scores it: placed net area over the
// extent consumed on each sheet, scaled by the placed fraction.
func (r *geneticRun) evaluate(c *chromosome) {
	d, extent, placedArea := r.decode(c)
	c.decoded = d
	c.fitness = 0
	if extent <= 0 {
		return
	}
	frac := float64(len(d.placed)) / float64(len(r.instances))
	c.fitness = placedArea / extent * frac
}

// binState holds the bodies already placed on one sheet.
type binState struct {
	bodies     []Body
	maxX, maxY float64
}

// decode places instances in genome order: first-fit over the open sheets,
// preferred rotation then a quarter turn, row-major grid scan. A new sheet
// is opened only when the instance fits an empty one.
func (r *geneticRun) decode(c *chromosome) (*decoded, float64, float64) {
	d := &decoded{}
	var bins []*binState
	var placedArea float64
	for _, idx := range c.order {
		inst := r.instances[idx]
		pref := r.rotations[c.rotations[idx]]
		cands := []float64{pref, geometry.NormalizeDegrees(pref + 90)}

		placed := false
		for b := 0; b <= len(bins) && !placed; b++ {
			fresh := b == len(bins)
			if fresh && len(bins) >= r.settings.BinCap() {
				break
			}
			bin := &binState{}
			if !fresh {
				bin = bins[b]
			}
			for _, rot := range cands {
				o, err := r.lib.Oriented(*inst.part, rot)
				if err != nil {
					break
				}
				x, y, ok := r.scan(o, bin)
				if !ok {
					continue
				}
				body := OrientedBody(o, x, y)
				bin.bodies = append(bin.bodies, body)
				bin.maxX = math.Max(bin.maxX, body.Rect.MaxX)
				bin.maxY = math.Max(bin.maxY, body.Rect.MaxY)
				if fresh {
					bins = append(bins, bin)
				}
				d.placed = append(d.placed, model.NewPlacedPart(inst.part.ID, x, y, o.Rotation, b))
				placedArea += r.netArea[idx]
				placed = true
				break
			}
		}
		if !placed {
			d.failed = append(d.failed, inst.part.ID)
		}
	}

	var extent float64
	for _, b := range bins {
		extent += b.maxX * b.maxY
	}
	return d, extent, placedArea
}

// scan walks the grid row by row from the margin corner and returns the
// first position where the part fits. The last reachable position on each
// axis is always tried.
func (r *geneticRun) scan(o *shape.Oriented, bin *binState) (float64, float64, bool) {
	s := r.settings
	x0, y0 := s.Margin, s.Margin
	x1 := s.BinWidth - s.Margin - o.Width
	y1 := s.BinHeight - s.Margin - o.Height
	if x1 < x0-geometry.Epsilon || y1 < y0-geometry.Epsilon {
		return 0, 0, false
	}
	xs := gridSteps(x0, x1, r.config.GridStep)
	ys := gridSteps(y0, y1, r.config.GridStep)
	for _, y := range ys {
		for _, x := range xs {
			if r.fits(o, x, y, bin) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

func gridSteps(lo, hi, step float64) []float64 {
	hi = math.Max(lo, hi)
	var out []float64
	for v := lo; v < hi-geometry.Epsilon; v += step {
		out = append(out, v)
	}
	return append(out, hi)
}

// fits screens the candidate against bounding boxes before building the
// placed shape for the full validator.
func (r *geneticRun) fits(o *shape.Oriented, x, y float64, bin *binState) bool {
	box := o.Bounds.Translate(x, y)
	suspect := len(r.settings.CropLines) > 0
	for i := 0; i < len(bin.bodies) && !suspect; i++ {
		suspect = geometry.AABBOverlap(box, bin.bodies[i].Shape.Bounds)
	}
	if !suspect {
		return true
	}
	return r.validator.Fits(OrientedBody(o, x, y), bin.bodies)
}
