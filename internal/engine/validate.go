package engine

import (
	"errors"
	"fmt"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
)

var (
	ErrOutOfBounds = errors.New("placement leaves the usable sheet area")
	ErrOverlap     = errors.New("placement overlaps another part")
	ErrCropLine    = errors.New("placement crosses a crop line")
)

// Body is a placed (or candidate) part in sheet coordinates.
type Body struct {
	PartID string
	Shape  geometry.Shape // working shape, clearance included
	Rect   model.Rect     // rotated source bounding box
	Source model.Outline  // un-inflated outline
}

// OrientedBody places an oriented part with its reference corner at (x, y).
func OrientedBody(o *shape.Oriented, x, y float64) Body {
	return Body{
		PartID: o.Geometry.PartID,
		Shape:  o.At(x, y),
		Rect:   o.SourceRect(x, y),
		Source: o.SourceAt(x, y),
	}
}

// RectBody is the body of a part handled by its bounding rectangle only.
func RectBody(partID string, w, h, x, y, clearance float64) Body {
	r := model.Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
	grown := model.Rect{MinX: r.MinX - clearance, MinY: r.MinY - clearance, MaxX: r.MaxX + clearance, MaxY: r.MaxY + clearance}
	return Body{
		PartID: partID,
		Shape:  geometry.NewShape(grown.Corners(), nil, nil),
		Rect:   r,
		Source: r.Corners(),
	}
}

// Validator runs the full placement check suite for one sheet
// configuration: margins, crop lines and pairwise collisions.
type Validator struct {
	Settings model.NestSettings
}

// NewValidator creates a validator for the given settings.
func NewValidator(settings model.NestSettings) *Validator {
	return &Validator{Settings: settings}
}

// Check validates a candidate against the bodies already on its sheet. The
// returned error wraps ErrOutOfBounds, ErrCropLine or ErrOverlap.
func (v *Validator) Check(candidate Body, placed []Body) error {
	idx, err := v.check(candidate, placed)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOverlap):
		return fmt.Errorf("%w: %s collides with %s", err, candidate.PartID, placed[idx].PartID)
	case errors.Is(err, ErrCropLine):
		return fmt.Errorf("%w: %s crosses line %d", err, candidate.PartID, idx)
	default:
		return fmt.Errorf("%w: %s at (%.2f, %.2f)", err, candidate.PartID, candidate.Rect.MinX, candidate.Rect.MinY)
	}
}

// Fits is Check without building an error message.
func (v *Validator) Fits(candidate Body, placed []Body) bool {
	_, err := v.check(candidate, placed)
	return err == nil
}

func (v *Validator) check(candidate Body, placed []Body) (int, error) {
	s := v.Settings
	if !geometry.RectWithinSheet(candidate.Rect, s.BinWidth, s.BinHeight, s.Margin) {
		return -1, ErrOutOfBounds
	}
	if !geometry.WithinSheet(candidate.Source, s.BinWidth, s.BinHeight, s.Margin) {
		return -1, ErrOutOfBounds
	}
	for i, line := range s.CropLines {
		if geometry.CrossesLine(candidate.Source, line, s.BinWidth, s.BinHeight) {
			return i, ErrCropLine
		}
	}
	for i, p := range placed {
		if geometry.Collide(candidate.Shape, p.Shape) {
			return i, ErrOverlap
		}
	}
	return -1, nil
}
