package engine

import (
	"context"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultScenarios(t *testing.T) {
	base := testSettings(model.StrategyGuillotine, 400, 300)
	base.Kerf = 2
	base.Gap = 4

	scenarios := BuildDefaultScenarios(base)
	require.Len(t, scenarios, 5)
	assert.Equal(t, "Current Settings", scenarios[0].Name)
	assert.Equal(t, model.StrategyGenetic, scenarios[1].Settings.Strategy)
	assert.Equal(t, model.StrategyNFP, scenarios[2].Settings.Strategy)
	assert.Equal(t, 1.0, scenarios[3].Settings.Kerf)
	assert.Equal(t, 0.0, scenarios[4].Settings.Gap)
	assert.Equal(t, "No Gap", scenarios[4].Name)

	base.Kerf, base.Gap = 0, 0
	assert.Len(t, BuildDefaultScenarios(base), 3)
}

func TestCompareScenarios(t *testing.T) {
	base := testSettings(model.StrategyGuillotine, 400, 300)
	base.Gap = 2
	parts := []model.ImportedPart{
		model.NewRectanglePart("a", 100, 80, 3),
		model.NewRectanglePart("b", 60, 40, 2),
	}
	scenarios := BuildDefaultScenarios(base)

	results, err := CompareScenarios(context.Background(), scenarios, parts, fastGenetic())
	require.NoError(t, err)
	require.Len(t, results, len(scenarios))
	for _, r := range results {
		require.NoError(t, r.Err, r.Scenario.Name)
		assert.Equal(t, 5, r.PlacedCount, r.Scenario.Name)
		assert.Zero(t, r.UnplacedCount)
		assert.Equal(t, r.Result.TotalBins, r.SheetsUsed)
		assert.InDelta(t, 100*(1-r.Result.Efficiency), r.WastePercent, 1e-9)
	}
}

func TestCompareScenariosRecordsErrors(t *testing.T) {
	bad := testSettings(model.StrategyGuillotine, 0, 0)
	results, err := CompareScenarios(context.Background(), []ComparisonScenario{{Name: "bad", Settings: bad}}, nil, fastGenetic())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, model.ErrInvalidSettings)
}

func TestCompareScenariosCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := CompareScenarios(ctx, BuildDefaultScenarios(testSettings(model.StrategyGuillotine, 100, 100)), nil, fastGenetic())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
