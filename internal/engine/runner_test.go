package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slowNester() Nester {
	n := New(testSettings(model.StrategyGenetic, 200, 200))
	n.Genetic = GeneticConfig{PopulationSize: 4, Generations: 1 << 30, GridStep: 10, Seed: 1}
	return *n
}

func TestRunnerSupersedesPreviousRun(t *testing.T) {
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 30, 30, 4)}
	var rn Runner

	started := make(chan struct{}, 1)
	first := rn.Start(context.Background(), slowNester(), parts, func(Progress) {
		select {
		case started <- struct{}{}:
		default:
		}
	})
	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("first run never reported progress")
	}

	second := rn.Start(context.Background(), *New(testSettings(model.StrategyGuillotine, 200, 200)), parts, nil)
	assert.Same(t, second, rn.Current())

	_, err := first.Wait()
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	res, err := second.Wait()
	require.NoError(t, err)
	assert.Len(t, res.Placed, 4)
}

func TestRunnerCancel(t *testing.T) {
	parts := []model.ImportedPart{model.NewRectanglePart("sq", 30, 30, 2)}
	var rn Runner
	run := rn.Start(context.Background(), slowNester(), parts, nil)
	rn.Cancel()

	select {
	case <-run.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	_, err := run.Wait()
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestRunnerCancelWithoutRun(t *testing.T) {
	var rn Runner
	rn.Cancel()
	assert.Nil(t, rn.Current())
}
