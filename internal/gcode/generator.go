// Package gcode turns a nested sheet into contour-cutting G-code and parses
// G-code back into moves for verification.
package gcode

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

// Contour is one placed part in sheet coordinates (Y down, as placed).
type Contour struct {
	PartID string
	Label  string
	Outer  model.Outline
	Holes  []model.Outline
}

// Sheet is the input for one G-code program.
type Sheet struct {
	Index    int // zero-based bin id
	Width    float64
	Height   float64
	Contours []Contour
	Notes    []string // written as comments, e.g. parts that could not be machined
}

// Generator produces GCode from a nested sheet layout.
type Generator struct {
	Settings model.MachiningSettings
	profile  model.GCodeProfile
}

// New returns a generator for one machining setup and post-processor.
func New(settings model.MachiningSettings, profile model.GCodeProfile) *Generator {
	return &Generator{
		Settings: settings,
		profile:  profile,
	}
}

// GenerateSheet produces GCode for a single sheet. Every part has its holes
// cut before its outer contour so the part stays held while holes are cut.
func (g *Generator) GenerateSheet(sheet Sheet) string {
	var b strings.Builder

	g.writeHeader(&b, sheet)

	for _, note := range sheet.Notes {
		b.WriteString(g.comment("NOTE: " + note))
	}

	for i, c := range sheet.Contours {
		g.writePart(&b, sheet, c, i+1)
	}

	g.writeFooter(&b)
	return b.String()
}

func (g *Generator) writeHeader(b *strings.Builder, sheet Sheet) {
	p := g.profile

	b.WriteString(g.comment(fmt.Sprintf("SlabNest G-code, sheet %d", sheet.Index+1)))
	b.WriteString(g.comment(fmt.Sprintf("Stock: %.1f x %.1f mm", sheet.Width, sheet.Height)))
	b.WriteString(g.comment(fmt.Sprintf("Parts: %d", len(sheet.Contours))))
	b.WriteString(g.comment(fmt.Sprintf("Tool: %.1fmm, Feed: %.0f mm/min, Plunge: %.0f mm/min",
		g.Settings.ToolDiameter, g.Settings.FeedRate, g.Settings.PlungeRate)))
	b.WriteString(g.comment(fmt.Sprintf("Depth: %.1fmm in %d passes", g.Settings.CutDepth, g.Settings.Passes())))
	b.WriteString(g.comment(fmt.Sprintf("Profile: %s", p.Name)))
	b.WriteString("\n")

	for _, code := range p.StartCode {
		b.WriteString(code + "\n")
	}
	if p.SpindleStart != "" {
		b.WriteString(fmt.Sprintf(p.SpindleStart+"\n", g.Settings.SpindleSpeed))
	}

	// Retract before the first XY move
	b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, g.format(g.Settings.SafeZ)))
	b.WriteString("\n")
}

func (g *Generator) writeFooter(b *strings.Builder) {
	p := g.profile

	b.WriteString("\n")
	b.WriteString(g.comment("=== Job complete ==="))

	if p.SpindleStop != "" {
		b.WriteString(p.SpindleStop + "\n")
	}
	for _, code := range p.EndCode {
		code = strings.ReplaceAll(code, "[SafeZ]", g.format(g.Settings.SafeZ))
		b.WriteString(code + "\n")
	}
}

// toMachine flips a sheet outline into the Y-up machine frame.
func toMachine(o model.Outline, sheetHeight float64) model.Outline {
	out := make(model.Outline, len(o))
	for i, p := range o {
		out[i] = model.Point2D{X: p.X, Y: sheetHeight - p.Y}
	}
	return out
}

func (g *Generator) writePart(b *strings.Builder, sheet Sheet, c Contour, partNum int) {
	toolR := g.Settings.ToolDiameter / 2.0
	label := c.Label
	if label == "" {
		label = c.PartID
	}

	for i, hole := range c.Holes {
		// A hole pinched by the tool falls apart into separate pockets.
		paths := geometry.OffsetLoops(toMachine(hole, sheet.Height), -toolR, geometry.JoinRound)
		if len(paths) == 0 {
			b.WriteString(g.comment(fmt.Sprintf("--- Part %d: %s hole %d smaller than tool, skipped ---", partNum, label, i+1)))
			continue
		}
		for k, path := range paths {
			// Offset returns CCW, which is climb for an inside contour
			if !g.Settings.UseClimb {
				path = path.Reverse()
			}
			name := fmt.Sprintf("hole %d", i+1)
			if len(paths) > 1 {
				name = fmt.Sprintf("hole %d.%d", i+1, k+1)
			}
			b.WriteString(g.comment(fmt.Sprintf("--- Part %d: %s %s ---", partNum, label, name)))
			g.writeContour(b, path, false)
		}
	}

	path := geometry.Offset(toMachine(c.Outer, sheet.Height), toolR)
	if len(path) < 3 {
		b.WriteString(g.comment(fmt.Sprintf("WARNING: part %d (%s) outline has fewer than 3 points, skipping", partNum, label)))
		return
	}
	// Clockwise is climb for an outside contour
	if g.Settings.UseClimb {
		path = path.Reverse()
	}
	b.WriteString(g.comment(fmt.Sprintf("--- Part %d: %s outer ---", partNum, label)))
	g.writeContour(b, path, true)
}

// writeContour cuts a closed toolpath in depth passes. Tabs are left on the
// final pass of outer contours only.
func (g *Generator) writeContour(b *strings.Builder, path model.Outline, outer bool) {
	p := g.profile
	numPasses := g.Settings.Passes()
	leadIn := g.Settings.LeadInRadius > 0 && g.leadFits(path, outer)

	for pass := 1; pass <= numPasses; pass++ {
		depth := math.Min(float64(pass)*g.Settings.PassDepth, g.Settings.CutDepth)
		isFinalPass := pass == numPasses

		b.WriteString(g.comment(fmt.Sprintf("Pass %d/%d, depth=%.2fmm", pass, numPasses, depth)))

		if leadIn {
			g.writeLeadIn(b, path, depth)
		} else {
			b.WriteString(fmt.Sprintf("%s X%s Y%s\n", p.RapidMove, g.format(path[0].X), g.format(path[0].Y)))
			b.WriteString(fmt.Sprintf("%s Z%s F%s\n", p.FeedMove, g.format(-depth), g.format(g.Settings.PlungeRate)))
		}

		if outer && isFinalPass && g.Settings.TabsPerContour > 0 && g.Settings.TabHeight > 0 {
			g.writeLoopWithTabs(b, path, depth)
		} else {
			g.writeLoop(b, path)
		}

		if leadIn {
			g.writeLeadOut(b, path)
		}

		b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, g.format(g.Settings.SafeZ)))
	}

	b.WriteString("\n")
}

func (g *Generator) writeLoop(b *strings.Builder, path model.Outline) {
	for i := 1; i <= len(path); i++ {
		pt := path[i%len(path)]
		g.writeFeed(b, pt)
	}
}

func (g *Generator) writeFeed(b *strings.Builder, pt model.Point2D) {
	b.WriteString(fmt.Sprintf("%s X%s Y%s F%s\n", g.profile.FeedMove,
		g.format(pt.X), g.format(pt.Y), g.format(g.Settings.FeedRate)))
}

// wasteNormal returns the unit normal of direction d pointing to the side
// that is cut away: left of travel when climb milling, right otherwise.
func (g *Generator) wasteNormal(d model.Point2D) model.Point2D {
	if g.Settings.UseClimb {
		return model.Point2D{X: -d.Y, Y: d.X}
	}
	return model.Point2D{X: d.Y, Y: -d.X}
}

// arcCommand picks G2/G3 for a quarter arc tangent to d with its center on n.
func (g *Generator) arcCommand(d, n model.Point2D) string {
	if d.X*n.Y-d.Y*n.X > 0 {
		return g.profile.ArcCCW
	}
	return g.profile.ArcCW
}

func unit(from, to model.Point2D) model.Point2D {
	dx, dy := to.X-from.X, to.Y-from.Y
	l := math.Hypot(dx, dy)
	if l < geometry.Epsilon {
		return model.Point2D{X: 1}
	}
	return model.Point2D{X: dx / l, Y: dy / l}
}

// leadFits reports whether a lead arc stays inside a hole. Outer contours
// always have room on the waste side.
func (g *Generator) leadFits(path model.Outline, outer bool) bool {
	if outer {
		return true
	}
	r := path.Bounds()
	return 2*g.Settings.LeadInRadius < math.Min(r.Width(), r.Height())
}

// writeLeadIn arcs onto the first path point from the waste side, tangent to
// the first segment.
func (g *Generator) writeLeadIn(b *strings.Builder, path model.Outline, depth float64) {
	r := g.Settings.LeadInRadius
	p0 := path[0]
	d := unit(p0, path[1])
	n := g.wasteNormal(d)

	center := model.Point2D{X: p0.X + n.X*r, Y: p0.Y + n.Y*r}
	start := model.Point2D{X: center.X - d.X*r, Y: center.Y - d.Y*r}

	b.WriteString(g.comment("Lead-in arc"))
	b.WriteString(fmt.Sprintf("%s X%s Y%s\n", g.profile.RapidMove, g.format(start.X), g.format(start.Y)))
	b.WriteString(fmt.Sprintf("%s Z%s F%s\n", g.profile.FeedMove, g.format(-depth), g.format(g.Settings.PlungeRate)))
	b.WriteString(fmt.Sprintf("%s X%s Y%s I%s J%s F%s\n",
		g.arcCommand(d, n), g.format(p0.X), g.format(p0.Y),
		g.format(center.X-start.X), g.format(center.Y-start.Y),
		g.format(g.Settings.FeedRate)))
}

// writeLeadOut arcs off the closing point into the waste side, tangent to
// the last segment.
func (g *Generator) writeLeadOut(b *strings.Builder, path model.Outline) {
	r := g.Settings.LeadInRadius
	p0 := path[0]
	d := unit(path[len(path)-1], p0)
	n := g.wasteNormal(d)

	center := model.Point2D{X: p0.X + n.X*r, Y: p0.Y + n.Y*r}
	end := model.Point2D{X: center.X + d.X*r, Y: center.Y + d.Y*r}

	b.WriteString(g.comment("Lead-out arc"))
	b.WriteString(fmt.Sprintf("%s X%s Y%s I%s J%s F%s\n",
		g.arcCommand(d, n), g.format(end.X), g.format(end.Y),
		g.format(center.X-p0.X), g.format(center.Y-p0.Y),
		g.format(g.Settings.FeedRate)))
}

// comment wraps text in the profile's comment syntax.
func (g *Generator) comment(text string) string {
	return g.profile.CommentPrefix + " " + text + g.profile.CommentSuffix + "\n"
}

// format formats a coordinate according to the profile's decimal places.
func (g *Generator) format(v float64) string {
	s := fmt.Sprintf("%.*f", g.profile.DecimalPlaces, v)
	if strings.TrimLeft(s, "-0.") == "" {
		// Avoid "-0.000"
		return strings.TrimPrefix(s, "-")
	}
	return s
}

// Tab is a holding tab on a closed toolpath, as an arc-length interval.
type Tab struct {
	Start float64
	End   float64
}

// pathLength returns the perimeter of a closed path.
func pathLength(path model.Outline) float64 {
	var l float64
	for i := range path {
		l += path[i].Distance(path[(i+1)%len(path)])
	}
	return l
}

// calculateTabs spreads n tabs evenly along a closed path. Tabs that would
// cover more than half the perimeter are dropped.
func calculateTabs(path model.Outline, n int, width float64) []Tab {
	if n <= 0 || width <= 0 {
		return nil
	}
	l := pathLength(path)
	if float64(n)*width > l/2 {
		return nil
	}
	tabs := make([]Tab, n)
	for k := range tabs {
		mid := l * (float64(k) + 0.5) / float64(n)
		tabs[k] = Tab{Start: mid - width/2, End: mid + width/2}
	}
	return tabs
}

func inTab(tabs []Tab, s float64) bool {
	for _, t := range tabs {
		if s > t.Start && s < t.End {
			return true
		}
	}
	return false
}

// writeLoopWithTabs follows the closed path, lifting to the tab height over
// every tab interval.
func (g *Generator) writeLoopWithTabs(b *strings.Builder, path model.Outline, cutDepth float64) {
	tabs := calculateTabs(path, g.Settings.TabsPerContour, g.Settings.TabWidth)
	if len(tabs) == 0 {
		g.writeLoop(b, path)
		return
	}
	tabDepth := math.Max(cutDepth-g.Settings.TabHeight, 0)

	// Split the loop at every tab boundary.
	type station struct {
		pt model.Point2D
		s  float64
	}
	var stations []station
	var walked float64
	for i := range path {
		a, c := path[i], path[(i+1)%len(path)]
		seg := a.Distance(c)
		var cuts []float64
		for _, t := range tabs {
			for _, s := range []float64{t.Start, t.End} {
				if s > walked && s < walked+seg {
					cuts = append(cuts, s)
				}
			}
		}
		sort.Float64s(cuts)
		for _, s := range cuts {
			f := (s - walked) / seg
			stations = append(stations, station{
				pt: model.Point2D{X: a.X + (c.X-a.X)*f, Y: a.Y + (c.Y-a.Y)*f},
				s:  s,
			})
		}
		walked += seg
		stations = append(stations, station{pt: c, s: walked})
	}

	raised := false
	prev := 0.0
	for _, st := range stations {
		up := inTab(tabs, (prev+st.s)/2)
		if up != raised {
			z := -cutDepth
			if up {
				z = -tabDepth
			}
			b.WriteString(fmt.Sprintf("%s Z%s\n", g.profile.FeedMove, g.format(z)))
			raised = up
		}
		g.writeFeed(b, st.pt)
		prev = st.s
	}
	if raised {
		b.WriteString(fmt.Sprintf("%s Z%s\n", g.profile.FeedMove, g.format(-cutDepth)))
	}
}
