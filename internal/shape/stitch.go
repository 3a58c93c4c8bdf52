package shape

import (
	"sort"

	"github.com/piwi3910/SlabNest/internal/model"
)

// DefaultStitchTolerance is the endpoint distance under which two open
// paths are joined.
const DefaultStitchTolerance = 0.1

// StitchSegments chains open paths that share endpoints (in either
// orientation) into closed loops. Closed input paths are passed through.
// Chains whose ends never meet are returned separately and not closed.
func StitchSegments(paths []Path, tolerance float64) (loops []model.Outline, open []Path) {
	if tolerance <= 0 {
		tolerance = DefaultStitchTolerance
	}

	var segs []Path
	for _, p := range paths {
		if p.Closed {
			if len(p.Points) >= 3 {
				loops = append(loops, model.Outline(p.Points).Clone())
			}
			continue
		}
		segs = append(segs, p)
	}

	used := make([]bool, len(segs))
	for start := range segs {
		if used[start] {
			continue
		}
		used[start] = true
		chain := append([]model.Point2D(nil), segs[start].Points...)

		for changed := true; changed && !closes(chain, tolerance); {
			changed = false
			head, tail := chain[0], chain[len(chain)-1]
			for i, seg := range segs {
				if used[i] {
					continue
				}
				pts := seg.Points
				first, last := pts[0], pts[len(pts)-1]
				switch {
				case close2(tail, first, tolerance):
					chain = append(chain, pts[1:]...)
				case close2(tail, last, tolerance):
					chain = append(chain, reversed(pts)[1:]...)
				case close2(head, last, tolerance):
					chain = append(append([]model.Point2D(nil), pts[:len(pts)-1]...), chain...)
				case close2(head, first, tolerance):
					chain = append(reversed(pts)[:len(pts)-1], chain...)
				default:
					continue
				}
				used[i] = true
				changed = true
				break
			}
		}

		if closes(chain, tolerance) {
			loops = append(loops, model.Outline(chain[:len(chain)-1]))
			continue
		}
		open = append(open, Path{Points: chain})
	}

	sort.SliceStable(loops, func(i, j int) bool {
		return loops[i].Area() > loops[j].Area()
	})
	return loops, open
}

func closes(chain []model.Point2D, tolerance float64) bool {
	return len(chain) >= 4 && close2(chain[0], chain[len(chain)-1], tolerance)
}

func close2(a, b model.Point2D, tolerance float64) bool {
	return a.Distance(b) <= tolerance
}

func reversed(pts []model.Point2D) []model.Point2D {
	out := make([]model.Point2D, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
