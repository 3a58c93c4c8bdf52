package model

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Offcut represents a usable rectangular remnant area left over after cutting.
type Offcut struct {
	ID            string  `json:"id"`
	BinID         int     `json:"bin_id"`          // Sheet the remnant is cut from
	X             float64 `json:"x"`               // Position on the sheet (mm from left)
	Y             float64 `json:"y"`               // Position on the sheet (mm from top)
	Width         float64 `json:"width"`           // Usable width (mm)
	Height        float64 `json:"height"`          // Usable height (mm)
	PricePerSheet float64 `json:"price_per_sheet"` // Share of the sheet price proportional to area (0 if not set)
}

// Area returns the area of the offcut in square mm.
func (o Offcut) Area() float64 {
	return o.Width * o.Height
}

// ToStockPreset turns an offcut into a stock preset for later runs.
func (o Offcut) ToStockPreset(material string) StockPreset {
	name := "Offcut " + o.ID
	return NewStockPresetWithPrice(name, o.Width, o.Height, material, o.PricePerSheet)
}

// MinOffcutDimension is the minimum width or height (in mm) for a remnant
// to be considered a usable offcut. Remnants smaller than this are waste.
const MinOffcutDimension = 50.0

// MinOffcutArea is the minimum area (in sq mm) for a remnant to be considered usable.
const MinOffcutArea = 10000.0 // 100mm x 100mm equivalent

// DetectOffcuts returns the reusable strips of one sheet. used holds the
// sheet-space bounds of every placed outline; the strip right of and the
// strip below their union, pushed out by the kerf, are kept when large
// enough. An empty sheet is one offcut.
func DetectOffcuts(bin int, used []Rect, s NestSettings, pricePerSheet float64) []Offcut {
	sheetW, sheetH := s.BinWidth, s.BinHeight

	if len(used) == 0 {
		return []Offcut{{
			ID:            uuid.New().String()[:8],
			BinID:         bin,
			Width:         sheetW,
			Height:        sheetH,
			PricePerSheet: pricePerSheet,
		}}
	}

	extent := used[0]
	for _, r := range used[1:] {
		extent = extent.Union(r)
	}
	maxPartRight := math.Min(extent.MaxX+s.Kerf, sheetW)
	maxPartBottom := math.Min(extent.MaxY+s.Kerf, sheetH)

	var offcuts []Offcut

	// Right strip: full sheet height to the right of all parts
	rightStripW := sheetW - maxPartRight
	if rightStripW >= MinOffcutDimension && sheetH >= MinOffcutDimension && rightStripW*sheetH >= MinOffcutArea {
		offcuts = append(offcuts, Offcut{
			ID:     uuid.New().String()[:8],
			BinID:  bin,
			X:      maxPartRight,
			Width:  rightStripW,
			Height: sheetH,
		})
	}

	// Bottom strip stops at the right strip so the two never overlap
	bottomStripH := sheetH - maxPartBottom
	usableBottomW := maxPartRight
	if bottomStripH >= MinOffcutDimension && usableBottomW >= MinOffcutDimension && bottomStripH*usableBottomW >= MinOffcutArea {
		offcuts = append(offcuts, Offcut{
			ID:     uuid.New().String()[:8],
			BinID:  bin,
			Y:      maxPartBottom,
			Width:  usableBottomW,
			Height: bottomStripH,
		})
	}

	if pricePerSheet > 0 {
		totalSheetArea := sheetW * sheetH
		for i := range offcuts {
			offcuts[i].PricePerSheet = (offcuts[i].Area() / totalSheetArea) * pricePerSheet
		}
	}

	sort.Slice(offcuts, func(i, j int) bool {
		return offcuts[i].Area() > offcuts[j].Area()
	})

	return offcuts
}

// TotalOffcutArea returns the total area of all offcuts in square mm.
func TotalOffcutArea(offcuts []Offcut) float64 {
	var total float64
	for _, o := range offcuts {
		total += o.Area()
	}
	return total
}
