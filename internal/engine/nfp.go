package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
)

// candidateSafety pushes NFP vertices slightly outward so candidate
// positions sit just clear of the touching locus.
const candidateSafety = 0.01

// NFPCalculator computes the no-fit polygon of B around a stationary A.
// Both outlines are rotated by their angle and anchored at their own
// bounding box corner before the computation; the result is expressed in
// that anchored frame.
type NFPCalculator interface {
	NoFitPolygon(ctx context.Context, a, b model.Outline, rotA, rotB float64, ids [2]string) ([]model.Outline, error)
}

// LocalNFP computes no-fit polygons in-process.
type LocalNFP struct{}

func (LocalNFP) NoFitPolygon(ctx context.Context, a, b model.Outline, rotA, rotB float64, _ [2]string) ([]model.Outline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return geometry.LocalNFP(a, b, rotA, rotB), nil
}

type nfpKey struct {
	partA string
	rotA  float64
	partB string
	rotB  float64
}

// nfpCache memoizes anchored no-fit polygons for the length of one run.
type nfpCache struct {
	calc NFPCalculator
	mu   sync.Mutex
	m    map[nfpKey][]model.Outline
}

func newNFPCache(calc NFPCalculator) *nfpCache {
	if calc == nil {
		calc = LocalNFP{}
	}
	return &nfpCache{calc: calc, m: make(map[nfpKey][]model.Outline)}
}

func (c *nfpCache) get(ctx context.Context, a, b *shape.Oriented) ([]model.Outline, error) {
	key := nfpKey{a.Geometry.PartID, a.Rotation, b.Geometry.PartID, b.Rotation}
	c.mu.Lock()
	pieces, ok := c.m[key]
	c.mu.Unlock()
	if ok {
		return pieces, nil
	}
	pieces, err := c.calc.NoFitPolygon(ctx, a.Geometry.Outer, b.Geometry.Outer, a.Rotation, b.Rotation,
		[2]string{a.Geometry.PartID, b.Geometry.PartID})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.m[key] = pieces
	c.mu.Unlock()
	return pieces, nil
}

// NFPNester is the first-fit strategy driven by no-fit polygons: parts
// are taken largest first and each goes to the first sheet, rotation and
// candidate position that clears every placed neighbour.
type NFPNester struct {
	Settings   model.NestSettings
	Calculator NFPCalculator
}

// Kind reports the NFP first-fit strategy.
func (n *NFPNester) Kind() model.Strategy { return model.StrategyNFP }

type nfpPlaced struct {
	oriented *shape.Oriented
	x, y     float64
	body     Body
}

// Nest places every instance. Calculator errors abort the run.
func (n *NFPNester) Nest(ctx context.Context, parts []model.ImportedPart) (model.NestingResult, error) {
	s := n.Settings
	lib := trueShapeLibrary(s)
	cache := newNFPCache(n.Calculator)
	validator := NewValidator(s)
	rotations := s.Rotations()

	var res model.NestingResult
	reported := make(map[string]bool)
	type job struct {
		inst instance
		area float64
	}
	var jobs []job
	for _, inst := range expand(parts) {
		g, err := lib.Get(*inst.part)
		if err != nil {
			res.Failed = append(res.Failed, inst.part.ID)
			if !reported[inst.part.ID] {
				reported[inst.part.ID] = true
				res.Diagnostics = append(res.Diagnostics, err.Error())
			}
			continue
		}
		jobs = append(jobs, job{inst, g.Area})
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].area > jobs[j].area })

	var bins [][]nfpPlaced
	capReported := false
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return model.NestingResult{}, err
		}
		part := *j.inst.part

		placed := false
		for b := 0; b <= len(bins) && !placed; b++ {
			if b == len(bins) {
				if len(bins) >= s.BinCap() {
					if !capReported {
						capReported = true
						res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("sheet cap of %d reached", s.BinCap()))
					}
					break
				}
				bins = append(bins, nil)
			}
			for _, rot := range rotations {
				o, err := lib.Oriented(part, rot)
				if err != nil {
					return model.NestingResult{}, err
				}
				x, y, ok, err := n.position(ctx, cache, validator, o, bins[b])
				if err != nil {
					return model.NestingResult{}, err
				}
				if !ok {
					continue
				}
				bins[b] = append(bins[b], nfpPlaced{oriented: o, x: x, y: y, body: OrientedBody(o, x, y)})
				res.Placed = append(res.Placed, model.NewPlacedPart(part.ID, x, y, o.Rotation, b))
				placed = true
				break
			}
			if !placed && len(bins[b]) == 0 {
				// The part does not fit an empty sheet; drop the sheet again.
				bins = bins[:b]
				break
			}
		}
		if !placed {
			res.Failed = append(res.Failed, part.ID)
		}
	}

	finish(&res, parts, s, libraryArea(lib))
	return res, nil
}

// position returns the first accepted reference point for o on a sheet.
// Candidates are the inner-fit corner plus the slightly grown vertices of
// every no-fit polygon against the parts already on the sheet, scanned top
// to bottom, then left to right.
func (n *NFPNester) position(ctx context.Context, cache *nfpCache, v *Validator, o *shape.Oriented, placed []nfpPlaced) (float64, float64, bool, error) {
	s := n.Settings
	x0, y0 := s.Margin, s.Margin
	x1 := s.BinWidth - s.Margin - o.Width
	y1 := s.BinHeight - s.Margin - o.Height
	eps := geometry.Epsilon
	if x1 < x0-eps || y1 < y0-eps {
		return 0, 0, false, nil
	}

	var pieces []model.Outline
	cands := []model.Point2D{{X: x0, Y: y0}}
	for _, p := range placed {
		local, err := cache.get(ctx, p.oriented, o)
		if err != nil {
			return 0, 0, false, err
		}
		// Anchored frame -> placement frame: add A's anchor, remove B's,
		// then move to A's position.
		dx := p.oriented.Bounds.MinX - o.Bounds.MinX + p.x
		dy := p.oriented.Bounds.MinY - o.Bounds.MinY + p.y
		for _, piece := range local {
			moved := piece.Translate(dx, dy)
			pieces = append(pieces, moved)
			grown := geometry.OffsetJoin(moved, candidateSafety, geometry.JoinMiter)
			if grown == nil {
				grown = moved
			}
			cands = append(cands, grown...)
		}
	}

	// Candidates outside the inner-fit rectangle are pulled onto its border
	// so positions flush against the sheet edge are still considered.
	seen := make(map[model.Point2D]bool, len(cands))
	inside := cands[:0]
	for _, c := range cands {
		c = model.Point2D{X: clamp(c.X, x0, x1), Y: clamp(c.Y, y0, y1)}
		if !seen[c] {
			seen[c] = true
			inside = append(inside, c)
		}
	}
	sort.SliceStable(inside, func(i, j int) bool {
		if inside[i].Y != inside[j].Y {
			return inside[i].Y < inside[j].Y
		}
		return inside[i].X < inside[j].X
	})

	bodies := make([]Body, len(placed))
	for i, p := range placed {
		bodies[i] = p.body
	}
	for _, c := range inside {
		if geometry.InsideAny(c, pieces) {
			continue
		}
		if v.Fits(OrientedBody(o, c.X, c.Y), bodies) {
			return c.X, c.Y, true, nil
		}
	}
	return 0, 0, false, nil
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
