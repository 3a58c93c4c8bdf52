package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNFP struct {
	calls atomic.Int32
	err   error
}

func (c *countingNFP) NoFitPolygon(ctx context.Context, a, b model.Outline, rotA, rotB float64, ids [2]string) ([]model.Outline, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return LocalNFP{}.NoFitPolygon(ctx, a, b, rotA, rotB, ids)
}

func nfpSettings(w, h float64) model.NestSettings {
	s := testSettings(model.StrategyNFP, w, h)
	s.RotationStep = 90
	return s
}

func TestNFPPlacesSquaresSideBySide(t *testing.T) {
	settings := nfpSettings(100, 50)
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 10, 10, 2)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	require.Len(t, res.Placed, 2)

	assert.Equal(t, 0.0, res.Placed[0].X)
	assert.Equal(t, 0.0, res.Placed[0].Y)
	assert.InDelta(t, 10.01, res.Placed[1].X, 1e-6)
	assert.InDelta(t, 0, res.Placed[1].Y, 1e-9)
	assertValidLayout(t, settings, parts, res)
}

func TestNFPOversizedPartFails(t *testing.T) {
	settings := nfpSettings(500, 500)
	parts := []model.ImportedPart{model.NewRectanglePart("big", 1000, 1000, 1)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Empty(t, res.Placed)
	assert.Equal(t, []string{"big"}, res.Failed)
	assert.Equal(t, 0, res.TotalBins)
}

func TestNFPMixedShapes(t *testing.T) {
	settings := nfpSettings(300, 200)
	settings.Margin = 5
	settings.Gap = 3
	settings.Kerf = 1
	parts := []model.ImportedPart{
		lPart("l", 100, 30, 3),
		model.NewRectanglePart("r", 50, 40, 4),
	}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	assertValidLayout(t, settings, parts, res)
}

func TestNFPLargestFirst(t *testing.T) {
	settings := nfpSettings(300, 200)
	parts := []model.ImportedPart{
		model.NewRectanglePart("small", 20, 20, 1),
		model.NewRectanglePart("large", 80, 60, 1),
	}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	require.Len(t, res.Placed, 2)
	assert.Equal(t, "large", res.Placed[0].PartID)
	assert.Equal(t, 0.0, res.Placed[0].X)
}

func TestNFPSheetCapIsSoft(t *testing.T) {
	settings := nfpSettings(50, 50)
	settings.MaxBins = 1
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 40, 40, 3)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Len(t, res.Placed, 1)
	assert.Len(t, res.Failed, 2)
	require.NotEmpty(t, res.Diagnostics)
	assert.True(t, strings.Contains(res.Diagnostics[0], "cap"))
}

func TestNFPOpensSheets(t *testing.T) {
	settings := nfpSettings(50, 50)
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 40, 40, 3)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Len(t, res.Placed, 3)
	assert.Equal(t, 3, res.TotalBins)
}

func TestNFPCachesPolygons(t *testing.T) {
	calc := &countingNFP{}
	settings := nfpSettings(100, 20)
	n := New(settings)
	n.NFP = calc
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 10, 10, 4)}

	res, err := n.Nest(context.Background(), parts)
	require.NoError(t, err)
	assert.Len(t, res.Placed, 4)
	assert.Equal(t, int32(1), calc.calls.Load())
}

func TestNFPCalculatorErrorAbortsRun(t *testing.T) {
	boom := errors.New("worker gone")
	n := New(nfpSettings(100, 100))
	n.NFP = &countingNFP{err: boom}
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 10, 10, 2)}

	_, err := n.Nest(context.Background(), parts)
	assert.True(t, errors.Is(err, boom))
}

func TestNFPCropLine(t *testing.T) {
	settings := nfpSettings(100, 40)
	settings.CropLines = []model.CropLine{{A: model.Point2D{X: 25, Y: 0}, B: model.Point2D{X: 25, Y: 40}}}
	parts := []model.ImportedPart{model.NewRectanglePart("r", 20, 20, 2)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	require.Len(t, res.Placed, 2)
	assertValidLayout(t, settings, parts, res)
}
