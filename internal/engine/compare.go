package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/SlabNest/internal/model"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.NestSettings
}

// ComparisonResult holds the nesting result and computed statistics for a
// single scenario.
type ComparisonResult struct {
	Scenario      ComparisonScenario
	Result        model.NestingResult
	SheetsUsed    int
	PlacedCount   int
	WastePercent  float64
	UnplacedCount int
	Err           error
}

// CompareScenarios nests the same parts under each scenario and returns
// the results in scenario order. A scenario that fails records its error
// and the comparison continues; cancellation stops it.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, parts []model.ImportedPart, genetic GeneticConfig) ([]ComparisonResult, error) {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		n := New(scenario.Settings)
		n.Genetic = genetic
		result, err := n.Nest(ctx, parts)

		results = append(results, ComparisonResult{
			Scenario:      scenario,
			Result:        result,
			SheetsUsed:    result.TotalBins,
			PlacedCount:   len(result.Placed),
			WastePercent:  100 * (1 - result.Efficiency),
			UnplacedCount: len(result.Failed),
			Err:           err,
		})
	}

	return results, nil
}

// BuildDefaultScenarios derives what-if alternatives from the current
// settings: every other strategy, half the kerf and no gap.
func BuildDefaultScenarios(base model.NestSettings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:     "Current Settings",
			Settings: base,
		},
	}

	for _, st := range model.Strategies {
		if st == base.Strategy {
			continue
		}
		alt := base
		alt.Strategy = st
		alt.RotationStep = 0
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Strategy %s", st),
			Settings: alt,
		})
	}

	if base.Kerf > 0 {
		half := base
		half.Kerf = base.Kerf * 0.5
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Kerf %.2fmm (half)", half.Kerf),
			Settings: half,
		})
	}

	if base.Gap > 0 {
		noGap := base
		noGap.Gap = 0
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "No Gap",
			Settings: noGap,
		})
	}

	return scenarios
}
