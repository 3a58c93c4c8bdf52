package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ImportedPart is a part as delivered by the import collaborator: a raw CAD
// entity graph plus bookkeeping. The engine treats it as read-only.
type ImportedPart struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Entities  []Entity   `json:"entities"`
	Blocks    BlockTable `json:"blocks,omitempty"`
	Width     float64    `json:"width"`  // mm, axis-aligned bounding box
	Height    float64    `json:"height"` // mm, axis-aligned bounding box
	GrossArea float64    `json:"gross_area"`
	NetArea   float64    `json:"net_area"`
	Quantity  int        `json:"quantity"`
}

// NewRectanglePart builds a part whose geometry is a w x h rectangle wrapped
// in a single block instance, the shape true-shape strategies accept.
func NewRectanglePart(id string, w, h float64, qty int) ImportedPart {
	block := "PART_" + id
	return ImportedPart{
		ID:    id,
		Label: id,
		Entities: []Entity{
			NewInsert(block, Point2D{}, 0),
		},
		Blocks: BlockTable{
			block: {
				Name: block,
				Entities: []Entity{
					NewPolyline(true,
						Point2D{X: 0, Y: 0},
						Point2D{X: w, Y: 0},
						Point2D{X: w, Y: h},
						Point2D{X: 0, Y: h},
					),
				},
			},
		},
		Width:     w,
		Height:    h,
		GrossArea: w * h,
		NetArea:   w * h,
		Quantity:  qty,
	}
}

// FootprintArea returns the net area when known, the bounding box area otherwise.
func (p ImportedPart) FootprintArea() float64 {
	if p.NetArea > 0 {
		return p.NetArea
	}
	return p.Width * p.Height
}

// Strategy selects the nesting algorithm.
type Strategy string

const (
	StrategyGuillotine Strategy = "guillotine"         // Shelf packing on bounding rectangles (fast)
	StrategyGenetic    Strategy = "true-shape-genetic" // Genetic search over true outlines (slower, denser)
	StrategyNFP        Strategy = "nfp-first-fit"      // No-fit-polygon first-fit placement
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{StrategyGuillotine, StrategyGenetic, StrategyNFP}

// ParseStrategy converts a name into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// DefaultRotationStep returns the rotation granularity used when the
// settings leave it at zero.
func (s Strategy) DefaultRotationStep() float64 {
	switch s {
	case StrategyGenetic:
		return 15
	default:
		return 90
	}
}

// CropLine is a straight cut already made (or planned) on the sheet.
// Parts may touch it but never straddle it.
type CropLine struct {
	A Point2D `json:"a" yaml:"a"`
	B Point2D `json:"b" yaml:"b"`
}

// NestSettings holds the sheet and clearance configuration of a run.
type NestSettings struct {
	Strategy     Strategy   `json:"strategy"`
	BinWidth     float64    `json:"bin_width"`     // mm
	BinHeight    float64    `json:"bin_height"`    // mm
	Margin       float64    `json:"margin"`        // Clear border on every sheet edge (mm)
	Gap          float64    `json:"gap"`           // Minimum distance between parts (mm)
	Kerf         float64    `json:"kerf"`          // Cutting tool width (mm)
	RotationStep float64    `json:"rotation_step"` // Degrees; 0 selects the strategy default
	MaxBins      int        `json:"max_bins"`      // Hard sheet cap per run
	CropLines    []CropLine `json:"crop_lines,omitempty"`
}

// DefaultMaxBins caps the number of sheets a run may open.
const DefaultMaxBins = 50

// DefaultSettings returns a 3000x1500 sheet with the guillotine strategy.
func DefaultSettings() NestSettings {
	return NestSettings{
		Strategy:  StrategyGuillotine,
		BinWidth:  3000,
		BinHeight: 1500,
		Margin:    10,
		Gap:       5,
		Kerf:      0.2,
		MaxBins:   DefaultMaxBins,
	}
}

// ErrInvalidSettings is returned by Validate.
var ErrInvalidSettings = errors.New("invalid nest settings")

// Validate checks that the sheet leaves a usable area and clearances are sane.
func (s NestSettings) Validate() error {
	if s.BinWidth <= 0 || s.BinHeight <= 0 {
		return fmt.Errorf("%w: sheet must be positive, got %.2f x %.2f", ErrInvalidSettings, s.BinWidth, s.BinHeight)
	}
	if s.Margin < 0 || s.Gap < 0 || s.Kerf < 0 {
		return fmt.Errorf("%w: margin, gap and kerf must not be negative", ErrInvalidSettings)
	}
	if 2*s.Margin >= s.BinWidth || 2*s.Margin >= s.BinHeight {
		return fmt.Errorf("%w: margin %.2f leaves no usable area", ErrInvalidSettings, s.Margin)
	}
	if s.RotationStep < 0 || s.RotationStep > 360 {
		return fmt.Errorf("%w: rotation step %.2f out of range", ErrInvalidSettings, s.RotationStep)
	}
	if s.MaxBins < 0 {
		return fmt.Errorf("%w: max bins must not be negative", ErrInvalidSettings)
	}
	if _, err := ParseStrategy(string(s.Strategy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// Rotations returns the discrete rotation set for the configured strategy.
func (s NestSettings) Rotations() []float64 {
	if s.Strategy == StrategyGuillotine {
		return []float64{0, 90}
	}
	step := s.RotationStep
	if step <= 0 {
		step = s.Strategy.DefaultRotationStep()
	}
	var angles []float64
	for a := 0.0; a < 360-1e-9; a += step {
		angles = append(angles, a)
	}
	return angles
}

// Clearance returns the offset baked into working shapes: half the kerf plus
// half the gap, so two neighbours each contribute half of the spacing.
func (s NestSettings) Clearance() float64 {
	return s.Kerf/2 + s.Gap/2
}

// BinCap returns MaxBins or the default when unset.
func (s NestSettings) BinCap() int {
	if s.MaxBins <= 0 {
		return DefaultMaxBins
	}
	return s.MaxBins
}

// PlacedPart is one placed instance of an ImportedPart.
type PlacedPart struct {
	UUID     string  `json:"uuid"`
	PartID   string  `json:"part_id"`
	X        float64 `json:"x"`        // Left edge of the rotated bounding box (mm)
	Y        float64 `json:"y"`        // Top edge of the rotated bounding box (mm)
	Rotation float64 `json:"rotation"` // Degrees
	BinID    int     `json:"bin_id"`
}

// NewPlacedPart stamps a fresh instance UUID.
func NewPlacedPart(partID string, x, y, rotation float64, bin int) PlacedPart {
	return PlacedPart{
		UUID:     uuid.New().String(),
		PartID:   partID,
		X:        x,
		Y:        y,
		Rotation: rotation,
		BinID:    bin,
	}
}

// NestingResult is the output of a nesting run.
type NestingResult struct {
	Placed      []PlacedPart `json:"placed"`
	Failed      []string     `json:"failed"` // One entry per unplaced instance
	Efficiency  float64      `json:"efficiency"`
	TotalBins   int          `json:"total_bins"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

// InBin returns the placements of one sheet.
func (r NestingResult) InBin(bin int) []PlacedPart {
	var out []PlacedPart
	for _, p := range r.Placed {
		if p.BinID == bin {
			out = append(out, p)
		}
	}
	return out
}

// CountByPart returns how many instances of each part were placed.
func (r NestingResult) CountByPart() map[string]int {
	counts := make(map[string]int)
	for _, p := range r.Placed {
		counts[p.PartID]++
	}
	return counts
}

// Find returns the placement with the given instance UUID.
func (r NestingResult) Find(id string) (int, bool) {
	for i, p := range r.Placed {
		if p.UUID == id {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy of the result.
func (r NestingResult) Clone() NestingResult {
	cp := r
	cp.Placed = append([]PlacedPart(nil), r.Placed...)
	cp.Failed = append([]string(nil), r.Failed...)
	cp.Diagnostics = append([]string(nil), r.Diagnostics...)
	return cp
}
