package cli

import (
	"fmt"
	"strconv"

	"github.com/piwi3910/SlabNest/internal/engine"
	"github.com/spf13/cobra"
)

func newCompareCmd(g *globalOptions) *cobra.Command {
	var (
		strategy string
		waste    float64
	)
	cmd := &cobra.Command{
		Use:   "compare <job.yaml>",
		Short: "Compare the job against alternative strategies and clearances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			out := printer{w: cmd.OutOrStdout()}

			lj, err := loadJob(g, logger, args[0], strategy)
			if err != nil {
				return err
			}
			out.Title("SlabNest compare " + lj.job.Name)
			printEstimate(out, lj.parts, lj.settings, waste, lj.price)

			scenarios := engine.BuildDefaultScenarios(lj.settings)
			results, err := engine.CompareScenarios(cmd.Context(), scenarios, lj.parts, lj.genetic)
			if err != nil {
				return fmt.Errorf("compare %s: %w", lj.job.Name, err)
			}

			best := bestScenario(results)
			rows := make([][]string, 0, len(results))
			for i, r := range results {
				name := r.Scenario.Name
				if i == best {
					name += " ★"
				}
				if r.Err != nil {
					rows = append(rows, []string{name, "-", "-", "-", r.Err.Error()})
					continue
				}
				rows = append(rows, []string{
					name,
					strconv.Itoa(r.SheetsUsed),
					strconv.Itoa(r.PlacedCount),
					strconv.Itoa(r.UnplacedCount),
					fmt.Sprintf("%.1f%%", r.WastePercent),
				})
			}
			out.Header("Scenarios")
			out.Table([]string{"Scenario", "Sheets", "Placed", "Unplaced", "Waste"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "strategy of the baseline scenario")
	cmd.Flags().Float64Var(&waste, "waste", 15, "waste allowance in percent for the sheet estimate")
	return cmd
}

// bestScenario returns the index of the successful result with the fewest
// unplaced parts, then the fewest sheets, then the least waste. It returns
// -1 when every scenario failed.
func bestScenario(results []engine.ComparisonResult) int {
	best := -1
	for i, r := range results {
		if r.Err != nil {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := results[best]
		switch {
		case r.UnplacedCount != b.UnplacedCount:
			if r.UnplacedCount < b.UnplacedCount {
				best = i
			}
		case r.SheetsUsed != b.SheetsUsed:
			if r.SheetsUsed < b.SheetsUsed {
				best = i
			}
		case r.WastePercent < b.WastePercent:
			best = i
		}
	}
	return best
}
