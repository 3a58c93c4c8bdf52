package cli

import (
	"errors"
	"fmt"

	"github.com/piwi3910/SlabNest/internal/engine"
	"github.com/piwi3910/SlabNest/internal/project"
	"github.com/spf13/cobra"
)

// ErrInvalidLayout is returned by check when a placement fails validation.
var ErrInvalidLayout = errors.New("layout has invalid placements")

func newCheckCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <run.json>",
		Short: "Re-validate every placement of a saved layout",
		Long: `Re-validate every placement of a layout written with "nest --out".

Each part is checked against the sheet margin, the crop lines and every
other part on its sheet, using the settings stored with the layout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			out := printer{w: cmd.OutOrStdout()}

			run, err := project.LoadRun(args[0])
			if err != nil {
				return err
			}
			out.Title("SlabNest check " + run.Name)

			session := engine.NewSession(run.Settings, run.Parts, run.Result)
			bad := 0
			for _, p := range run.Result.Placed {
				if err := session.Validate(p.UUID); err != nil {
					bad++
					out.Error(fmt.Sprintf("%s (%s) on sheet %d: %v", p.PartID, p.UUID, p.BinID+1, err))
					continue
				}
				logger.Debug("placement ok", "part", p.PartID, "uuid", p.UUID)
			}

			if bad > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidLayout, bad, len(run.Result.Placed))
			}
			out.Success(fmt.Sprintf("%d placements valid on %d sheets", len(run.Result.Placed), run.Result.TotalBins))
			return nil
		},
	}
}
