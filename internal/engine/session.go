package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/shape"
)

var (
	ErrUnknownPlacement = errors.New("unknown placement")
	ErrInvalidRotation  = errors.New("rotation not allowed by strategy")
	ErrInvalidBin       = errors.New("invalid sheet index")
)

// Session applies manual edits to a nesting result. Every edit re-runs the
// full validator against the other parts on the target sheet and is
// rejected unchanged when it fails. Edits can be undone.
type Session struct {
	settings  model.NestSettings
	parts     map[string]model.ImportedPart
	lib       *shape.Library
	validator *Validator
	result    model.NestingResult
	history   *History
}

// NewSession starts editing result. The settings must be those the result
// was produced with.
func NewSession(settings model.NestSettings, parts []model.ImportedPart, result model.NestingResult) *Session {
	byID := make(map[string]model.ImportedPart, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}
	s := &Session{
		settings:  settings,
		parts:     byID,
		validator: NewValidator(settings),
		result:    result.Clone(),
		history:   NewHistory(),
	}
	if settings.Strategy != model.StrategyGuillotine {
		s.lib = trueShapeLibrary(settings)
	}
	return s
}

// Result returns a copy of the current layout.
func (s *Session) Result() model.NestingResult { return s.result.Clone() }

// Move places an instance at a new reference corner on its sheet.
func (s *Session) Move(id string, x, y float64) error {
	return s.edit(id, "Move part", func(p *model.PlacedPart) error {
		p.X, p.Y = x, y
		return nil
	})
}

// Rotate turns an instance in place; the rotation must belong to the
// strategy's rotation set.
func (s *Session) Rotate(id string, rotation float64) error {
	rotation = geometry.NormalizeDegrees(rotation)
	if !s.allowedRotation(rotation) {
		return fmt.Errorf("%w: %.2f", ErrInvalidRotation, rotation)
	}
	return s.edit(id, "Rotate part", func(p *model.PlacedPart) error {
		p.Rotation = rotation
		return nil
	})
}

// MoveToBin moves an instance to another sheet. Using the next unused
// sheet index opens a new sheet.
func (s *Session) MoveToBin(id string, bin int, x, y float64) error {
	if bin < 0 || bin > s.result.TotalBins || bin >= s.settings.BinCap() {
		return fmt.Errorf("%w: %d", ErrInvalidBin, bin)
	}
	return s.edit(id, "Move part to sheet", func(p *model.PlacedPart) error {
		p.BinID, p.X, p.Y = bin, x, y
		return nil
	})
}

// Remove takes an instance off its sheet and lists it as failed.
func (s *Session) Remove(id string) error {
	idx, ok := s.result.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlacement, id)
	}
	s.history.Push(MakeSnapshot(s.result, "Remove part"))
	p := s.result.Placed[idx]
	s.result.Placed = append(s.result.Placed[:idx], s.result.Placed[idx+1:]...)
	s.result.Failed = append(s.result.Failed, p.PartID)
	s.refresh()
	return nil
}

// Undo restores the layout before the last edit.
func (s *Session) Undo() bool {
	snap, ok := s.history.Undo(MakeSnapshot(s.result, "Current"))
	if ok {
		s.result = snap.Result
	}
	return ok
}

// Redo re-applies the last undone edit.
func (s *Session) Redo() bool {
	snap, ok := s.history.Redo(MakeSnapshot(s.result, "Current"))
	if ok {
		s.result = snap.Result
	}
	return ok
}

// CanUndo reports whether an edit can be undone.
func (s *Session) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether an undone edit can be reapplied.
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Validate re-checks a placement against its sheet neighbours.
func (s *Session) Validate(id string) error {
	idx, ok := s.result.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlacement, id)
	}
	return s.check(s.result.Placed[idx], idx)
}

func (s *Session) edit(id, label string, apply func(*model.PlacedPart) error) error {
	idx, ok := s.result.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlacement, id)
	}
	cand := s.result.Placed[idx]
	if err := apply(&cand); err != nil {
		return err
	}
	if err := s.check(cand, idx); err != nil {
		return err
	}
	s.history.Push(MakeSnapshot(s.result, label))
	s.result.Placed[idx] = cand
	s.refresh()
	return nil
}

func (s *Session) check(cand model.PlacedPart, skip int) error {
	body, err := s.body(cand)
	if err != nil {
		return err
	}
	var others []Body
	for i, p := range s.result.Placed {
		if i == skip || p.BinID != cand.BinID {
			continue
		}
		b, err := s.body(p)
		if err != nil {
			return err
		}
		others = append(others, b)
	}
	return s.validator.Check(body, others)
}

func (s *Session) body(p model.PlacedPart) (Body, error) {
	part, ok := s.parts[p.PartID]
	if !ok {
		return Body{}, fmt.Errorf("%w: part %s", ErrUnknownPlacement, p.PartID)
	}
	if s.lib == nil {
		w, h := part.Width, part.Height
		if math.Abs(p.Rotation-90) < 1e-9 {
			w, h = h, w
		}
		return RectBody(part.ID, w, h, p.X, p.Y, s.settings.Clearance()), nil
	}
	o, err := s.lib.Oriented(part, p.Rotation)
	if err != nil {
		return Body{}, err
	}
	return OrientedBody(o, p.X, p.Y), nil
}

func (s *Session) allowedRotation(rotation float64) bool {
	for _, r := range s.settings.Rotations() {
		if math.Abs(r-rotation) < 1e-9 {
			return true
		}
	}
	return false
}

// refresh recomputes bin count and efficiency after an edit.
func (s *Session) refresh() {
	parts := make([]model.ImportedPart, 0, len(s.parts))
	for _, p := range s.parts {
		parts = append(parts, p)
	}
	area := model.ImportedPart.FootprintArea
	if s.lib != nil {
		area = libraryArea(s.lib)
	}
	finish(&s.result, parts, s.settings, area)
}
