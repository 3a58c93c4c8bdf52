package model

import "math"

// PurchaseEstimate holds the results of a sheet purchasing calculation.
type PurchaseEstimate struct {
	TotalPartArea     float64 `json:"total_part_area"`     // Net area of all instances plus kerf allowance (sq mm)
	TotalBoardFeet    float64 `json:"total_board_feet"`    // Total area in board feet (1 bf = 144 sq in = 92903.04 sq mm)
	SheetArea         float64 `json:"sheet_area"`          // Usable area of one sheet inside the margin (sq mm)
	SheetsNeededExact float64 `json:"sheets_needed_exact"` // Exact fractional number of sheets
	SheetsNeededMin   int     `json:"sheets_needed_min"`   // Area lower bound (ceiling of exact)
	SheetsWithWaste   int     `json:"sheets_with_waste"`   // Recommended sheets including waste factor
	WastePercent      float64 `json:"waste_percent"`       // Waste factor applied (e.g., 15 for 15%)
	EstimatedCost     float64 `json:"estimated_cost"`      // Total cost if pricing available
	PricePerSheet     float64 `json:"price_per_sheet"`     // Price used for estimation
	KerfWidth         float64 `json:"kerf_width"`          // Kerf width used in calculation
}

// sqmmPerBoardFoot is the number of square millimeters in one board foot.
// 1 board foot = 12" x 12" x 1" (area) = 144 sq inches = 144 * 645.16 sq mm = 92903.04 sq mm.
const sqmmPerBoardFoot = 92903.04

// CalculatePurchaseEstimate computes how many sheets to buy before nesting.
// Each instance counts its net area plus a kerf-wide band along half of its
// bounding perimeter, the same allowance a (w+k)(h+k) rectangle gets.
func CalculatePurchaseEstimate(parts []ImportedPart, s NestSettings, wastePercent, pricePerSheet float64) PurchaseEstimate {
	var totalPartArea float64
	for _, p := range parts {
		area := p.FootprintArea() + s.Kerf*(p.Width+p.Height) + s.Kerf*s.Kerf
		totalPartArea += area * float64(p.Quantity)
	}

	sheetArea := math.Max(s.BinWidth-2*s.Margin, 0) * math.Max(s.BinHeight-2*s.Margin, 0)
	if sheetArea <= 0 {
		return PurchaseEstimate{
			TotalPartArea:  totalPartArea,
			TotalBoardFeet: totalPartArea / sqmmPerBoardFoot,
			WastePercent:   wastePercent,
			KerfWidth:      s.Kerf,
		}
	}

	exactSheets := totalPartArea / sheetArea
	minSheets := int(math.Ceil(exactSheets))

	wasteFactor := 1.0 + (wastePercent / 100.0)
	sheetsWithWaste := int(math.Ceil(exactSheets * wasteFactor))
	if sheetsWithWaste < minSheets {
		sheetsWithWaste = minSheets
	}

	return PurchaseEstimate{
		TotalPartArea:     totalPartArea,
		TotalBoardFeet:    totalPartArea / sqmmPerBoardFoot,
		SheetArea:         sheetArea,
		SheetsNeededExact: exactSheets,
		SheetsNeededMin:   minSheets,
		SheetsWithWaste:   sheetsWithWaste,
		WastePercent:      wastePercent,
		EstimatedCost:     float64(sheetsWithWaste) * pricePerSheet,
		PricePerSheet:     pricePerSheet,
		KerfWidth:         s.Kerf,
	}
}
