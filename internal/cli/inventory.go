package cli

import (
	"fmt"

	"github.com/piwi3910/SlabNest/internal/project"
	"github.com/spf13/cobra"
)

func newInventoryCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Show and extend the tool and stock inventory",
		Long: `Show and extend the tools and stock presets a job can refer to by name
with "machining.tool" and "sheet.preset".`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List tools and stock presets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				inv, err := project.LoadInventory(g.inventoryFile())
				if err != nil {
					return err
				}
				out := printer{w: cmd.OutOrStdout()}

				out.Header("Tools")
				rows := make([][]string, 0, len(inv.Tools))
				for _, t := range inv.Tools {
					rows = append(rows, []string{
						t.ID, t.Name,
						fmt.Sprintf("%.3g", t.ToolDiameter),
						fmt.Sprintf("%.0f / %.0f", t.FeedRate, t.PlungeRate),
						fmt.Sprintf("%.1f / %.1f", t.CutDepth, t.PassDepth),
					})
				}
				out.Table([]string{"ID", "Name", "Ø mm", "Feed / plunge", "Depth / pass"}, rows)

				out.Header("Stock")
				rows = rows[:0]
				for _, s := range inv.Stocks {
					price := "-"
					if s.PricePerSheet > 0 {
						price = fmt.Sprintf("%.2f", s.PricePerSheet)
					}
					rows = append(rows, []string{
						s.ID, s.Name, fmt.Sprintf("%.0f x %.0f", s.Width, s.Height), s.Material, price,
					})
				}
				out.Table([]string{"ID", "Name", "Size", "Material", "Price"}, rows)
				return nil
			},
		},
		&cobra.Command{
			Use:   "import <inventory.json>",
			Short: "Merge tools and stock presets from a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				inv, err := project.LoadInventory(g.inventoryFile())
				if err != nil {
					return err
				}
				before := len(inv.Tools) + len(inv.Stocks)
				inv, err = project.ImportInventory(args[0], inv)
				if err != nil {
					return err
				}
				if err := project.SaveInventory(g.inventoryFile(), inv); err != nil {
					return err
				}
				added := len(inv.Tools) + len(inv.Stocks) - before
				printer{w: cmd.OutOrStdout()}.Success(fmt.Sprintf("%d inventory entries imported", added))
				return nil
			},
		},
		&cobra.Command{
			Use:   "export <inventory.json>",
			Short: "Write the inventory to a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				inv, err := project.LoadInventory(g.inventoryFile())
				if err != nil {
					return err
				}
				if err := project.ExportInventory(args[0], inv); err != nil {
					return err
				}
				printer{w: cmd.OutOrStdout()}.Success("inventory written to " + args[0])
				return nil
			},
		},
	)
	return cmd
}
