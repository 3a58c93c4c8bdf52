package engine

import (
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lPart(id string, size, arm float64, qty int) model.ImportedPart {
	block := "PART_" + id
	return model.ImportedPart{
		ID:       id,
		Label:    id,
		Entities: []model.Entity{model.NewInsert(block, model.Point2D{}, 0)},
		Blocks: model.BlockTable{
			block: {Name: block, Entities: []model.Entity{
				model.NewPolyline(true,
					model.Point2D{X: 0, Y: 0},
					model.Point2D{X: size, Y: 0},
					model.Point2D{X: size, Y: arm},
					model.Point2D{X: arm, Y: arm},
					model.Point2D{X: arm, Y: size},
					model.Point2D{X: 0, Y: size},
				),
			}},
		},
		Width:    size,
		Height:   size,
		NetArea:  size*arm + arm*(size-arm),
		Quantity: qty,
	}
}

func testSettings(strategy model.Strategy, w, h float64) model.NestSettings {
	return model.NestSettings{
		Strategy:  strategy,
		BinWidth:  w,
		BinHeight: h,
		MaxBins:   model.DefaultMaxBins,
	}
}

func fastGenetic() GeneticConfig {
	return GeneticConfig{PopulationSize: 6, Generations: 3, GridStep: 5, Seed: 7}
}

// assertValidLayout checks the layout invariants: no overlaps, margins
// respected, rotations from the strategy set and quantities accounted for.
func assertValidLayout(t *testing.T, settings model.NestSettings, parts []model.ImportedPart, res model.NestingResult) {
	t.Helper()

	session := NewSession(settings, parts, res)
	for _, p := range res.Placed {
		assert.NoError(t, session.Validate(p.UUID), "placement %s of %s", p.UUID, p.PartID)
		assert.True(t, session.allowedRotation(p.Rotation), "rotation %v", p.Rotation)
		assert.Less(t, p.BinID, res.TotalBins)
	}

	var total int
	placed := res.CountByPart()
	for _, part := range parts {
		total += part.Quantity
		assert.LessOrEqual(t, placed[part.ID], part.Quantity, "part %s", part.ID)
	}
	require.Equal(t, total, len(res.Placed)+len(res.Failed))
	assert.GreaterOrEqual(t, res.Efficiency, 0.0)
	assert.LessOrEqual(t, res.Efficiency, 1.0+1e-9)
}
