package gcode

import (
	"fmt"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

// Clash records a toolpath that cuts into another part on the same sheet.
// This happens when the nesting gap is smaller than the tool diameter.
type Clash struct {
	SheetIndex int
	PartLabel  string // part being machined
	Contour    string // "outer" or "hole N"
	OtherLabel string // part that would be damaged
	X, Y       float64
}

// toolpath is one offset loop of a contour, tagged for reporting.
type toolpath struct {
	part    int
	contour string
	path    model.Outline
}

// CheckToolpathClearance offsets every contour of the sheet by the tool
// radius and reports each toolpath that enters the material of another part.
// Collapsed holes are not machined and are ignored.
func CheckToolpathClearance(sheet Sheet, settings model.MachiningSettings) []Clash {
	r := settings.ToolDiameter / 2
	if r <= 0 {
		return nil
	}

	var paths []toolpath
	for i, c := range sheet.Contours {
		if p := geometry.Offset(c.Outer, r); p != nil {
			paths = append(paths, toolpath{part: i, contour: "outer", path: p})
		}
		for h, hole := range c.Holes {
			for _, p := range geometry.OffsetLoops(hole, -r, geometry.JoinRound) {
				paths = append(paths, toolpath{part: i, contour: fmt.Sprintf("hole %d", h+1), path: p})
			}
		}
	}

	var clashes []Clash
	for _, tp := range paths {
		for j, other := range sheet.Contours {
			if j == tp.part {
				continue
			}
			if pt, ok := entersRegion(tp.path, other); ok {
				clashes = append(clashes, Clash{
					SheetIndex: sheet.Index,
					PartLabel:  sheet.Contours[tp.part].Label,
					Contour:    tp.contour,
					OtherLabel: other.Label,
					X:          pt.X,
					Y:          pt.Y,
				})
			}
		}
	}
	return clashes
}

// entersRegion returns the first toolpath point that lies inside c's
// material, or the start of the first toolpath edge that crosses c's
// boundary.
func entersRegion(path model.Outline, c Contour) (model.Point2D, bool) {
	for _, p := range path {
		if geometry.PointInRegion(p, c.Outer, c.Holes) {
			return p, true
		}
	}
	rings := append([]model.Outline{c.Outer}, c.Holes...)
	for i := range path {
		a, b := path[i], path[(i+1)%len(path)]
		for _, ring := range rings {
			for k := range ring {
				if geometry.SegmentsCross(a, b, ring[k], ring[(k+1)%len(ring)]) {
					return a, true
				}
			}
		}
	}
	return model.Point2D{}, false
}

// FormatClashWarnings produces human-readable warning messages.
func FormatClashWarnings(clashes []Clash) []string {
	var warnings []string
	for _, c := range clashes {
		warnings = append(warnings, fmt.Sprintf(
			"sheet %d: %s toolpath of %q cuts into %q near (%.0f, %.0f)",
			c.SheetIndex+1, c.Contour, c.PartLabel, c.OtherLabel, c.X, c.Y,
		))
	}
	return warnings
}
