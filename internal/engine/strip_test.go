package engine

import (
	"context"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripThreeRectanglesInARow(t *testing.T) {
	settings := testSettings(model.StrategyGuillotine, 300, 50)
	parts := []model.ImportedPart{model.NewRectanglePart("r", 100, 50, 3)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	require.Len(t, res.Placed, 3)
	assert.Empty(t, res.Failed)

	xs := map[float64]bool{}
	for _, p := range res.Placed {
		assert.Equal(t, 0, p.BinID)
		assert.Equal(t, 0.0, p.Y)
		assert.Equal(t, 0.0, p.Rotation)
		xs[p.X] = true
	}
	assert.Equal(t, map[float64]bool{0: true, 100: true, 200: true}, xs)
	assert.InDelta(t, 1.0, res.Efficiency, 1e-9)
	assert.Equal(t, 1, res.TotalBins)
}

func TestStripOversizedPartFails(t *testing.T) {
	settings := testSettings(model.StrategyGuillotine, 500, 500)
	parts := []model.ImportedPart{model.NewRectanglePart("big", 1000, 1000, 1)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Empty(t, res.Placed)
	assert.Equal(t, []string{"big"}, res.Failed)
	assert.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, 0, res.TotalBins)
	assert.Equal(t, 0.0, res.Efficiency)
}

func TestStripRotatesToFit(t *testing.T) {
	settings := testSettings(model.StrategyGuillotine, 300, 100)
	parts := []model.ImportedPart{model.NewRectanglePart("tall", 80, 200, 1)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	require.Len(t, res.Placed, 1)
	assert.Equal(t, 90.0, res.Placed[0].Rotation)
	assertValidLayout(t, settings, parts, res)
}

func TestStripGapAndMargin(t *testing.T) {
	settings := testSettings(model.StrategyGuillotine, 400, 200)
	settings.Margin = 10
	settings.Gap = 6
	settings.Kerf = 2
	parts := []model.ImportedPart{
		model.NewRectanglePart("a", 100, 50, 4),
		model.NewRectanglePart("b", 60, 30, 3),
	}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Len(t, res.Placed, 7)
	assertValidLayout(t, settings, parts, res)

	for _, p := range res.Placed {
		assert.GreaterOrEqual(t, p.X, settings.Margin)
		assert.GreaterOrEqual(t, p.Y, settings.Margin)
	}
	// First row: the first part sits on the margin, the next one a full
	// gap plus kerf further.
	row := res.InBin(0)
	require.GreaterOrEqual(t, len(row), 2)
	assert.Equal(t, 10.0, row[0].X)
	assert.InDelta(t, 10+100+8, row[1].X, 1e-9)
}

func TestStripSheetCap(t *testing.T) {
	settings := testSettings(model.StrategyGuillotine, 100, 100)
	settings.MaxBins = 1
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 100, 100, 3)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Len(t, res.Placed, 1)
	assert.Len(t, res.Failed, 2)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestStripOpensSheets(t *testing.T) {
	settings := testSettings(model.StrategyGuillotine, 200, 100)
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 90, 90, 5)}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Len(t, res.Placed, 5)
	assert.Equal(t, 3, res.TotalBins)
	assertValidLayout(t, settings, parts, res)
}

func TestOrientRect(t *testing.T) {
	tests := []struct {
		name     string
		w, h     float64
		rotation float64
		wantErr  bool
	}{
		{"natural", 100, 50, 0, false},
		{"align long side", 50, 100, 90, false},
		{"needs turn", 40, 150, 90, false},
		{"too big", 400, 400, 0, true},
		{"no size", 0, 10, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := orientRect("p", tt.w, tt.h, 300, 120)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rotation, item.rotation)
		})
	}
}

func TestStripSkipsPastCropLines(t *testing.T) {
	tests := []struct {
		name      string
		w, h      float64
		partW     float64
		partH     float64
		line      model.CropLine
		wantBins  int
		wantFirst float64 // X of the second placement on the first sheet, or Y for a horizontal line
	}{
		{
			name: "vertical line", w: 300, h: 50, partW: 100, partH: 50,
			line:     model.CropLine{A: model.Point2D{X: 150, Y: 0}, B: model.Point2D{X: 150, Y: 50}},
			wantBins: 2, wantFirst: 150,
		},
		{
			name: "horizontal line", w: 200, h: 100, partW: 200, partH: 40,
			line:     model.CropLine{A: model.Point2D{X: 0, Y: 50}, B: model.Point2D{X: 200, Y: 50}},
			wantBins: 1, wantFirst: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings(model.StrategyGuillotine, tt.w, tt.h)
			settings.CropLines = []model.CropLine{tt.line}
			qty := 3
			if tt.wantBins == 1 {
				qty = 2
			}
			parts := []model.ImportedPart{model.NewRectanglePart("r", tt.partW, tt.partH, qty)}

			res, err := Nest(context.Background(), settings, parts)
			require.NoError(t, err)
			require.Len(t, res.Placed, qty)
			assert.Empty(t, res.Failed)
			assert.Equal(t, tt.wantBins, res.TotalBins)
			assertValidLayout(t, settings, parts, res)

			first := res.InBin(0)
			require.Len(t, first, 2)
			second := first[1].X
			if tt.line.A.Y == tt.line.B.Y {
				second = first[1].Y
			}
			assert.Equal(t, tt.wantFirst, second)
		})
	}
}

func TestStripPartWiderThanCropCellFails(t *testing.T) {
	settings := testSettings(model.StrategyGuillotine, 300, 50)
	settings.CropLines = []model.CropLine{
		{A: model.Point2D{X: 100, Y: 0}, B: model.Point2D{X: 100, Y: 50}},
		{A: model.Point2D{X: 200, Y: 0}, B: model.Point2D{X: 200, Y: 50}},
	}
	parts := []model.ImportedPart{
		model.NewRectanglePart("wide", 150, 50, 1),
		model.NewRectanglePart("fits", 90, 50, 2),
	}

	res, err := Nest(context.Background(), settings, parts)
	require.NoError(t, err)
	assert.Equal(t, []string{"wide"}, res.Failed)
	assert.Len(t, res.Placed, 2)
	assert.Equal(t, 1, res.TotalBins)
	assert.Contains(t, res.Diagnostics, "part wide does not fit between the crop lines")
	assertValidLayout(t, settings, parts, res)
}

func TestStripRunOrdering(t *testing.T) {
	placed := func(n int) []model.PlacedPart { return make([]model.PlacedPart, n) }
	tests := []struct {
		name string
		a, b stripRun
		want bool
	}{
		{"fewer bins", stripRun{placed: placed(4), bins: 1, used: 10}, stripRun{placed: placed(4), bins: 2, used: 50}, true},
		{"more area on the same bins", stripRun{placed: placed(4), bins: 2, used: 60}, stripRun{placed: placed(4), bins: 2, used: 50}, true},
		{"tie", stripRun{placed: placed(4), bins: 2, used: 50}, stripRun{placed: placed(4), bins: 2, used: 50}, false},
		{"dropping a part loses at the cap", stripRun{placed: placed(3), bins: 1}, stripRun{placed: placed(4), bins: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.better(tt.b))
		})
	}
}
