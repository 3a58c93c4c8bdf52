package engine

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geneticNester(settings model.NestSettings) *Nester {
	n := New(settings)
	n.Genetic = fastGenetic()
	return n
}

func TestGeneticPlacesAllParts(t *testing.T) {
	settings := testSettings(model.StrategyGenetic, 200, 100)
	settings.Margin = 5
	settings.Gap = 2
	settings.RotationStep = 90
	parts := []model.ImportedPart{
		model.NewRectanglePart("a", 60, 40, 2),
		lPart("l", 80, 30, 1),
	}

	res, err := geneticNester(settings).Nest(context.Background(), parts)
	require.NoError(t, err)
	assert.Len(t, res.Placed, 3)
	assert.Empty(t, res.Failed)
	assert.Greater(t, res.Efficiency, 0.0)
	assertValidLayout(t, settings, parts, res)
}

func TestGeneticFineRotations(t *testing.T) {
	settings := testSettings(model.StrategyGenetic, 150, 150)
	parts := []model.ImportedPart{
		lPart("l", 60, 20, 3),
		model.NewRectanglePart("r", 30, 20, 2),
	}

	res, err := geneticNester(settings).Nest(context.Background(), parts)
	require.NoError(t, err)
	assertValidLayout(t, settings, parts, res)
	for _, p := range res.Placed {
		assert.Zero(t, int(p.Rotation)%15, "rotation %v", p.Rotation)
	}
}

func TestGeneticOpensSheets(t *testing.T) {
	settings := testSettings(model.StrategyGenetic, 100, 100)
	settings.RotationStep = 90
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 90, 90, 3)}

	res, err := geneticNester(settings).Nest(context.Background(), parts)
	require.NoError(t, err)
	assert.Len(t, res.Placed, 3)
	assert.Equal(t, 3, res.TotalBins)
	assertValidLayout(t, settings, parts, res)
}

func TestGeneticRejectsLoosePart(t *testing.T) {
	settings := testSettings(model.StrategyGenetic, 200, 200)
	loose := model.ImportedPart{
		ID: "loose",
		Entities: []model.Entity{
			model.NewPolyline(true,
				model.Point2D{X: 0, Y: 0}, model.Point2D{X: 10, Y: 0},
				model.Point2D{X: 10, Y: 10}, model.Point2D{X: 0, Y: 10}),
			model.NewCircle(model.Point2D{X: 5, Y: 5}, 2),
		},
		Width: 10, Height: 10, Quantity: 2,
	}
	parts := []model.ImportedPart{loose, model.NewRectanglePart("ok", 20, 20, 1)}

	res, err := geneticNester(settings).Nest(context.Background(), parts)
	require.NoError(t, err)
	assert.Equal(t, []string{"loose", "loose"}, res.Failed)
	assert.Len(t, res.Placed, 1)
	require.Len(t, res.Diagnostics, 1)
	assert.True(t, strings.Contains(res.Diagnostics[0], "single block"), res.Diagnostics[0])
}

func TestGeneticOversizedPartFails(t *testing.T) {
	settings := testSettings(model.StrategyGenetic, 500, 500)
	parts := []model.ImportedPart{model.NewRectanglePart("big", 1000, 1000, 1)}

	res, err := geneticNester(settings).Nest(context.Background(), parts)
	require.NoError(t, err)
	assert.Empty(t, res.Placed)
	assert.Equal(t, []string{"big"}, res.Failed)
}

func TestGeneticDeterministic(t *testing.T) {
	settings := testSettings(model.StrategyGenetic, 150, 100)
	parts := []model.ImportedPart{
		model.NewRectanglePart("a", 40, 30, 2),
		lPart("l", 50, 15, 2),
	}

	first, err := geneticNester(settings).Nest(context.Background(), parts)
	require.NoError(t, err)
	second, err := geneticNester(settings).Nest(context.Background(), parts)
	require.NoError(t, err)

	require.Equal(t, len(first.Placed), len(second.Placed))
	for i := range first.Placed {
		a, b := first.Placed[i], second.Placed[i]
		assert.Equal(t, a.PartID, b.PartID)
		assert.Equal(t, a.X, b.X)
		assert.Equal(t, a.Y, b.Y)
		assert.Equal(t, a.Rotation, b.Rotation)
		assert.Equal(t, a.BinID, b.BinID)
		assert.NotEqual(t, a.UUID, b.UUID)
	}
}

func TestGeneticProgressAndCancel(t *testing.T) {
	settings := testSettings(model.StrategyGenetic, 200, 100)
	settings.RotationStep = 90
	parts := []model.ImportedPart{model.NewRectanglePart("a", 40, 30, 3)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []int
	n := geneticNester(settings)
	n.Genetic.Generations = 10
	n.Progress = func(p Progress) {
		seen = append(seen, p.Generation)
		assert.Equal(t, 10, p.Generations)
		assert.NotEmpty(t, p.Best.Placed)
		if p.Generation == 2 {
			cancel()
		}
	}

	res, err := n.Nest(ctx, parts)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Equal(t, []int{1, 2}, seen)
	assert.Len(t, res.Placed, 3, "best layout so far is returned")
}

func TestGridSteps(t *testing.T) {
	assert.Equal(t, []float64{0, 3, 6, 9, 10}, gridSteps(0, 10, 3))
	assert.Equal(t, []float64{0, 3, 6}, gridSteps(0, 6, 3))
	assert.Equal(t, []float64{5}, gridSteps(5, 5, 3))
}

func TestGreedySeedAndMutation(t *testing.T) {
	run := &geneticRun{
		config:    GeneticConfig{MutationRate: 0.5},
		rotations: []float64{0, 90, 180, 270},
		instances: make([]instance, 4),
		netArea:   []float64{1, 4, 2, 3},
		rng:       rand.New(rand.NewSource(1)),
	}
	greedy := run.createGreedyChromosome()
	assert.Equal(t, []int{1, 3, 2, 0}, greedy.order)
	assert.Equal(t, []int{0, 0, 0, 0}, greedy.rotations)

	changed := 0
	for i := 0; i < 100; i++ {
		c := run.copyChromosome(greedy)
		run.mutate(&c)
		if !slices.Equal(c.order, greedy.order) || !slices.Equal(c.rotations, greedy.rotations) {
			changed++
		}
	}
	assert.Greater(t, changed, 50)
	assert.Equal(t, []int{1, 3, 2, 0}, greedy.order, "parent is not modified")
}
