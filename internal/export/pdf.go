package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
)

// partColor represents an RGB color for a placed part.
type partColor struct {
	R, G, B int
}

// partColors is the fill palette, cycled per part id.
var partColors = []partColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF writes one page per used sheet with the true outlines of every
// placed part, followed by a summary page.
func ExportPDF(path string, job Job) error {
	if job.Result.TotalBins == 0 {
		return fmt.Errorf("no sheets to export")
	}

	d := newDrawing(job)
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	colors := colorIndex(job.Parts)
	stats := SheetStats(job)
	for _, st := range stats {
		pdf.AddPage()
		if err := renderSheetPage(pdf, tr, d, st, colors); err != nil {
			return fmt.Errorf("sheet %d: %w", st.Index+1, err)
		}
	}

	pdf.AddPage()
	renderSummaryPage(pdf, tr, job, stats)

	return pdf.OutputFileAndClose(path)
}

// colorIndex assigns each part id a palette slot in input order.
func colorIndex(parts []model.ImportedPart) map[string]partColor {
	m := make(map[string]partColor, len(parts))
	for i, p := range parts {
		m[p.ID] = partColors[i%len(partColors)]
	}
	return m
}

// renderSheetPage draws a single sheet on the current PDF page.
func renderSheetPage(pdf *fpdf.Fpdf, tr func(string) string, d *drawing, st SheetStat, colors map[string]partColor) error {
	s := d.job.Settings

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet %d of %d (%.0f x %.0f mm)", st.Index+1, d.job.Result.TotalBins, s.BinWidth, s.BinHeight)
	if d.job.Name != "" {
		title = d.job.Name + ": " + title
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Parts: %d | Used area: %.0f mm² | Total area: %.0f mm² | Efficiency: %.1f%%",
		st.Parts, st.UsedArea, st.TotalArea, 100*st.Efficiency)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, tr(stats), "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight
	scale := math.Min(drawWidth/s.BinWidth, drawHeight/s.BinHeight)

	canvasW := s.BinWidth * scale
	canvasH := s.BinHeight * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop
	toPage := func(p model.Point2D) fpdf.PointType {
		return fpdf.PointType{X: offsetX + p.X*scale, Y: offsetY + p.Y*scale}
	}

	// Sheet
	pdf.SetFillColor(225, 225, 225)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	if s.Margin > 0 {
		pdf.SetDrawColor(150, 150, 150)
		pdf.SetLineWidth(0.2)
		pdf.SetDashPattern([]float64{1, 1}, 0)
		pdf.Rect(offsetX+s.Margin*scale, offsetY+s.Margin*scale, canvasW-2*s.Margin*scale, canvasH-2*s.Margin*scale, "D")
		pdf.SetDashPattern([]float64{}, 0)
	}

	for _, line := range s.CropLines {
		a, b := clipLine(line, s.BinWidth, s.BinHeight)
		pa, pb := toPage(a), toPage(b)
		pdf.SetDrawColor(200, 0, 0)
		pdf.SetLineWidth(0.4)
		pdf.Line(pa.X, pa.Y, pb.X, pb.Y)
	}

	var legend []model.PlacedPart
	for _, p := range d.job.Result.InBin(st.Index) {
		paths, err := d.paths(p)
		if err != nil {
			return err
		}
		col := colors[p.PartID]
		drawPart(pdf, paths, col, toPage)
		drawPartLabel(pdf, p, paths, toPage)
		legend = append(legend, p)
	}

	drawDimensionAnnotations(pdf, s, offsetX, offsetY, canvasW, canvasH)
	drawPartsLegend(pdf, d, legend, colors, offsetY+canvasH+5)
	return nil
}

// drawPart fills the outer loop and punches the inner loops back out in the
// sheet colour. Open paths are stroked.
func drawPart(pdf *fpdf.Fpdf, paths []shape.Path, col partColor, toPage func(model.Point2D) fpdf.PointType) {
	outer := -1
	var best float64
	for i, p := range paths {
		if !p.Closed {
			continue
		}
		if a := model.Outline(p.Points).Area(); a > best {
			outer, best = i, a
		}
	}

	pdf.SetDrawColor(30, 30, 30)
	pdf.SetLineWidth(0.2)
	for i, p := range paths {
		pts := make([]fpdf.PointType, len(p.Points))
		for k, q := range p.Points {
			pts[k] = toPage(q)
		}
		switch {
		case i == outer:
			pdf.SetFillColor(col.R, col.G, col.B)
			pdf.Polygon(pts, "FD")
		case p.Closed:
			pdf.SetFillColor(225, 225, 225)
			pdf.Polygon(pts, "FD")
		default:
			for k := 1; k < len(pts); k++ {
				pdf.Line(pts[k-1].X, pts[k-1].Y, pts[k].X, pts[k].Y)
			}
		}
	}
}

func drawPartLabel(pdf *fpdf.Fpdf, p model.PlacedPart, paths []shape.Path, toPage func(model.Point2D) fpdf.PointType) {
	var pts model.Outline
	for _, path := range paths {
		pts = append(pts, path.Points...)
	}
	b := pts.Bounds()
	lo, hi := toPage(model.Point2D{X: b.MinX, Y: b.MinY}), toPage(model.Point2D{X: b.MaxX, Y: b.MaxY})
	pw, ph := hi.X-lo.X, hi.Y-lo.Y
	if pw <= 15 || ph <= 8 {
		return
	}

	pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
	pdf.SetTextColor(0, 0, 0)
	label := p.PartID
	labelW := pdf.GetStringWidth(label)
	if labelW < pw-2 {
		pdf.SetXY(lo.X+(pw-labelW)/2, lo.Y+ph/2-2)
		pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
	}
}

// clipLine extends a crop line across the sheet rectangle.
func clipLine(line model.CropLine, w, h float64) (model.Point2D, model.Point2D) {
	dx, dy := line.B.X-line.A.X, line.B.Y-line.A.Y
	// Liang-Barsky against [0,w]x[0,h] on the infinite line.
	t0, t1 := math.Inf(-1), math.Inf(1)
	clip := func(p, q float64) {
		if p == 0 {
			return
		}
		r := q / p
		if p < 0 {
			t0 = math.Max(t0, r)
		} else {
			t1 = math.Min(t1, r)
		}
	}
	clip(-dx, line.A.X)
	clip(dx, w-line.A.X)
	clip(-dy, line.A.Y)
	clip(dy, h-line.A.Y)
	if math.IsInf(t0, 0) || math.IsInf(t1, 0) || t0 > t1 {
		return line.A, line.B
	}
	return model.Point2D{X: line.A.X + t0*dx, Y: line.A.Y + t0*dy},
		model.Point2D{X: line.A.X + t1*dx, Y: line.A.Y + t1*dy}
}

// drawDimensionAnnotations adds width and height dimension labels outside the sheet rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, s model.NestSettings, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.0f mm", s.BinWidth)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%.0f mm", s.BinHeight)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawPartsLegend renders one entry per distinct part on the sheet.
func drawPartsLegend(pdf *fpdf.Fpdf, d *drawing, placed []model.PlacedPart, colors map[string]partColor, startY float64) {
	if len(placed) == 0 {
		return
	}
	counts := make(map[string]int)
	var order []string
	for _, p := range placed {
		if counts[p.PartID] == 0 {
			order = append(order, p.PartID)
		}
		counts[p.PartID]++
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Parts placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for _, id := range order {
		col := colors[id]
		label := fmt.Sprintf("%s x%d", id, counts[id])
		if part, err := d.part(id); err == nil {
			label = fmt.Sprintf("%s (%.0fx%.0f) x%d", part.Label, part.Width, part.Height, counts[id])
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, tr func(string) string, job Job, stats []SheetStat) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Nesting Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	var offcuts []model.Offcut
	for _, st := range stats {
		offcuts = append(offcuts, st.Offcuts...)
	}

	summaryItems := []struct {
		label string
		value string
	}{
		{"Strategy", string(job.Settings.Strategy)},
		{"Total Sheets Used", fmt.Sprintf("%d", job.Result.TotalBins)},
		{"Overall Efficiency", fmt.Sprintf("%.1f%%", 100*job.Result.Efficiency)},
		{"Total Parts Placed", fmt.Sprintf("%d", len(job.Result.Placed))},
		{"Unplaced Parts", fmt.Sprintf("%d", len(job.Result.Failed))},
		{"Reusable Offcuts", tr(fmt.Sprintf("%d (%.0f mm²)", len(offcuts), model.TotalOffcutArea(offcuts)))},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Sheet Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 50, 40, 35, 60}
	headers := []string{"Sheet", "Dimensions", "Parts", "Efficiency", "Used / Total Area"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, st := range stats {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", st.Index+1),
			fmt.Sprintf("%.0f x %.0f mm", job.Settings.BinWidth, job.Settings.BinHeight),
			fmt.Sprintf("%d", st.Parts),
			fmt.Sprintf("%.1f%%", 100*st.Efficiency),
			tr(fmt.Sprintf("%.0f / %.0f mm²", st.UsedArea, st.TotalArea)),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	order, counts := FailedCounts(job.Result)
	if len(order) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Parts", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, id := range order {
			pdf.SetXY(marginLeft+5, y)
			pdf.CellFormat(200, 5, fmt.Sprintf("- %s: %d unplaced", id, counts[id]), "", 0, "L", false, 0, "")
			y += 5
		}
		for _, msg := range job.Result.Diagnostics {
			pdf.SetXY(marginLeft+5, y)
			pdf.CellFormat(250, 5, tr(msg), "", 0, "L", false, 0, "")
			y += 5
		}
	}

	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Nest Settings", "", 0, "L", false, 0, "")
	y += 9

	s := job.Settings
	settingsItems := []struct {
		label string
		value string
	}{
		{"Margin", fmt.Sprintf("%.1f mm", s.Margin)},
		{"Gap", fmt.Sprintf("%.1f mm", s.Gap)},
		{"Kerf", fmt.Sprintf("%.2f mm", s.Kerf)},
		{"Rotations", fmt.Sprintf("%d", len(s.Rotations()))},
		{"Crop Lines", fmt.Sprintf("%d", len(s.CropLines))},
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range settingsItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by SlabNest", "", 0, "C", false, 0, "")
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
