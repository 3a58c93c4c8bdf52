package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

// StripPacker is the guillotine strategy: parts are handled by their
// bounding rectangles and laid out on shelves. Two runs are made, one
// filling rows and one filling columns; the better layout wins.
type StripPacker struct {
	Settings model.NestSettings
}

// Kind reports the guillotine strategy.
func (p *StripPacker) Kind() model.Strategy { return model.StrategyGuillotine }

type stripDirection int

const (
	stripRows    stripDirection = iota // Cursor moves along X, shelves stack down Y
	stripColumns                       // Cursor moves along Y, shelves stack along X
)

func (d stripDirection) String() string {
	if d == stripColumns {
		return "columns"
	}
	return "rows"
}

type stripItem struct {
	partID   string
	w, h     float64 // oriented size
	rotation float64
}

type stripRun struct {
	direction stripDirection
	placed    []model.PlacedPart
	failed    []string
	blocked   []string // parts no crop-line cell can hold
	capped    int      // instances left over at the sheet cap
	bins      int
	used      float64
}

// better reports whether r beats o: fewer bins, then more used area. The
// number of placed parts is compared first; it only differs when one
// direction hits the sheet cap or a crop line blocks a part, and a run that
// drops parts never wins on sheet count alone.
func (r stripRun) better(o stripRun) bool {
	if len(r.placed) != len(o.placed) {
		return len(r.placed) > len(o.placed)
	}
	if r.bins != o.bins {
		return r.bins < o.bins
	}
	return r.used > o.used+geometry.Epsilon
}

// Nest packs every instance of every part.
func (p *StripPacker) Nest(ctx context.Context, parts []model.ImportedPart) (model.NestingResult, error) {
	if err := ctx.Err(); err != nil {
		return model.NestingResult{}, err
	}
	s := p.Settings
	usableW := s.BinWidth - 2*s.Margin
	usableH := s.BinHeight - 2*s.Margin

	var res model.NestingResult
	reported := make(map[string]bool)
	var items []stripItem
	for _, inst := range expand(parts) {
		part := inst.part
		item, err := orientRect(part.ID, part.Width, part.Height, usableW, usableH)
		if err != nil {
			res.Failed = append(res.Failed, part.ID)
			if !reported[part.ID] {
				reported[part.ID] = true
				res.Diagnostics = append(res.Diagnostics, err.Error())
			}
			continue
		}
		items = append(items, item)
	}

	best := p.run(items, stripRows)
	if cols := p.run(items, stripColumns); cols.better(best) {
		best = cols
	}
	res.Placed = best.placed
	res.Failed = append(res.Failed, best.failed...)
	for _, id := range best.blocked {
		if !reported[id] {
			reported[id] = true
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("part %s does not fit between the crop lines", id))
		}
	}
	if best.capped > 0 {
		res.Diagnostics = append(res.Diagnostics,
			fmt.Sprintf("sheet cap of %d reached, %d instances left unplaced", s.BinCap(), best.capped))
	}

	finish(&res, parts, s, model.ImportedPart.FootprintArea)
	return res, nil
}

// orientRect keeps the natural orientation unless a quarter turn is needed
// to fit or aligns the part's long side with the sheet's.
func orientRect(id string, w, h, usableW, usableH float64) (stripItem, error) {
	if w <= 0 || h <= 0 {
		return stripItem{}, fmt.Errorf("part %s has no size", id)
	}
	eps := geometry.Epsilon
	fitsNatural := w <= usableW+eps && h <= usableH+eps
	fitsRotated := h <= usableW+eps && w <= usableH+eps
	switch {
	case !fitsNatural && !fitsRotated:
		return stripItem{}, fmt.Errorf("part %s (%.1f x %.1f) exceeds the usable sheet %.1f x %.1f", id, w, h, usableW, usableH)
	case !fitsNatural, fitsRotated && (w >= h) != (usableW >= usableH):
		return stripItem{partID: id, w: h, h: w, rotation: 90}, nil
	default:
		return stripItem{partID: id, w: w, h: h}, nil
	}
}

// run lays the items out on shelves. Every rectangle is padded by the
// clearance on each side and the usable region is widened by the same
// amount, so bodies stay inside the margins while neighbours end up one
// full spacing apart.
func (p *StripPacker) run(items []stripItem, dir stripDirection) stripRun {
	s := p.Settings
	c := s.Clearance()

	sorted := append([]stripItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		pa, sa, pb, sb := a.h, a.w, b.h, b.w
		if dir == stripColumns {
			pa, sa, pb, sb = a.w, a.h, b.w, b.h
		}
		if pa != pb {
			return pa > pb
		}
		return sa > sb
	})

	run := stripRun{direction: dir}
	cur := stripCursor{x: s.Margin - c, y: s.Margin - c}
	bin, binUsed := 0, false
	capped := false
	for _, it := range sorted {
		if capped {
			run.capped++
			run.failed = append(run.failed, it.partID)
			continue
		}
		next := cur
		ok := p.fit(&next, it, dir)
		if !ok && binUsed {
			if bin+1 >= s.BinCap() {
				capped = true
				run.capped++
				run.failed = append(run.failed, it.partID)
				continue
			}
			bin, binUsed = bin+1, false
			cur = stripCursor{x: s.Margin - c, y: s.Margin - c}
			next = cur
			ok = p.fit(&next, it, dir)
		}
		if !ok {
			// Does not fit between the crop lines even on an empty sheet.
			run.blocked = append(run.blocked, it.partID)
			run.failed = append(run.failed, it.partID)
			continue
		}
		cur = next

		run.placed = append(run.placed, model.NewPlacedPart(it.partID, cur.x+c, cur.y+c, it.rotation, bin))
		run.used += it.w * it.h
		run.bins = bin + 1
		binUsed = true
		if dir == stripRows {
			cur.x += it.w + 2*c
			cur.shelf = max(cur.shelf, it.h+2*c)
		} else {
			cur.y += it.h + 2*c
			cur.shelf = max(cur.shelf, it.w+2*c)
		}
	}
	return run
}

// stripCursor is the padded top-left corner of the next footprint and the
// depth of the current shelf.
type stripCursor struct {
	x, y, shelf float64
}

// fit moves cur to the first position on the current sheet where it fits,
// opening new shelves when the current one is full and stepping past crop
// lines that would cut through the part. It reports false when the sheet
// has no room left.
func (p *StripPacker) fit(cur *stripCursor, it stripItem, dir stripDirection) bool {
	s := p.Settings
	c := s.Clearance()
	eps := geometry.Epsilon
	lo := s.Margin - c
	hiX := s.BinWidth - s.Margin + c
	hiY := s.BinHeight - s.Margin + c
	fw, fh := it.w+2*c, it.h+2*c

	for {
		if dir == stripRows {
			if cur.x+fw > hiX+eps {
				*cur = stripCursor{x: lo, y: cur.y + cur.shelf}
			}
			if cur.y+fh > hiY+eps {
				return false
			}
		} else {
			if cur.y+fh > hiY+eps {
				*cur = stripCursor{x: cur.x + cur.shelf, y: lo}
			}
			if cur.x+fw > hiX+eps {
				return false
			}
		}

		body := model.Rect{MinX: cur.x + c, MinY: cur.y + c, MaxX: cur.x + c + it.w, MaxY: cur.y + c + it.h}
		line, crossed := p.blockingLine(body)
		if !crossed {
			return true
		}
		p.stepPast(cur, body, line, dir)
	}
}

// blockingLine returns the first crop line that cuts through body.
func (p *StripPacker) blockingLine(body model.Rect) (model.CropLine, bool) {
	s := p.Settings
	for _, line := range s.CropLines {
		if geometry.CrossesLine(body.Corners(), line, s.BinWidth, s.BinHeight) {
			return line, true
		}
	}
	return model.CropLine{}, false
}

// stepPast advances cur so that body's next position lies beyond line. A
// line running along the cursor direction closes the shelf and the next
// shelf starts on the far side of the line.
func (p *StripPacker) stepPast(cur *stripCursor, body model.Rect, line model.CropLine, dir stripDirection) {
	c := p.Settings.Clearance()
	lo := p.Settings.Margin - c
	dx, dy := line.B.X-line.A.X, line.B.Y-line.A.Y

	if dir == stripRows {
		if math.Abs(dy) < geometry.Epsilon {
			*cur = stripCursor{x: lo, y: math.Max(cur.y+cur.shelf, line.A.Y-c)}
			return
		}
		// Furthest X of the line within the body's band.
		x0 := line.A.X + (body.MinY-line.A.Y)*dx/dy
		x1 := line.A.X + (body.MaxY-line.A.Y)*dx/dy
		cur.x = math.Max(math.Max(x0, x1)-c, cur.x+geometry.Epsilon)
		return
	}
	if math.Abs(dx) < geometry.Epsilon {
		*cur = stripCursor{x: math.Max(cur.x+cur.shelf, line.A.X-c), y: lo}
		return
	}
	y0 := line.A.Y + (body.MinX-line.A.X)*dy/dx
	y1 := line.A.Y + (body.MaxX-line.A.X)*dy/dx
	cur.y = math.Max(math.Max(y0, y1)-c, cur.y+geometry.Epsilon)
}
