package cli

import (
	"fmt"
	"strconv"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/project"
	"github.com/spf13/cobra"
)

func newProfilesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage G-code post-processor profiles",
		Long: `Manage the post-processors used by "nest --gcode".

Grbl, Mach3, LinuxCNC and Generic are built in. Custom profiles are kept in
profiles.json next to the config file.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List built-in and custom profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				set, err := project.LoadProfileSet(g.profilesFile())
				if err != nil {
					return err
				}
				out := printer{w: cmd.OutOrStdout()}
				rows := make([][]string, 0, len(set.All()))
				for _, p := range set.All() {
					kind := "custom"
					if p.IsBuiltIn {
						kind = "built-in"
					}
					rows = append(rows, []string{p.Name, kind, p.Units, strconv.Itoa(p.DecimalPlaces), p.Description})
				}
				out.Table([]string{"Name", "Kind", "Units", "Decimals", "Description"}, rows)
				return nil
			},
		},
		&cobra.Command{
			Use:   "import <profile.json>",
			Short: "Add or replace a custom profile from a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := project.ImportProfile(args[0])
				if err != nil {
					return err
				}
				if err := updateProfiles(g, func(set *model.ProfileSet) error { return set.Add(p) }); err != nil {
					return err
				}
				printer{w: cmd.OutOrStdout()}.Success("profile " + p.Name + " imported")
				return nil
			},
		},
		&cobra.Command{
			Use:   "export <name> <profile.json>",
			Short: "Write a profile to a file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				set, err := project.LoadProfileSet(g.profilesFile())
				if err != nil {
					return err
				}
				p, ok := set.Find(args[0])
				if !ok {
					return fmt.Errorf("profile %q not found", args[0])
				}
				if err := project.ExportProfile(args[1], p); err != nil {
					return err
				}
				printer{w: cmd.OutOrStdout()}.Success("profile " + p.Name + " written to " + args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Delete a custom profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := updateProfiles(g, func(set *model.ProfileSet) error { return set.Remove(args[0]) }); err != nil {
					return err
				}
				printer{w: cmd.OutOrStdout()}.Success("profile " + args[0] + " removed")
				return nil
			},
		},
	)
	return cmd
}

// updateProfiles loads the custom profiles, applies fn and saves the result.
func updateProfiles(g *globalOptions, fn func(*model.ProfileSet) error) error {
	set, err := project.LoadProfileSet(g.profilesFile())
	if err != nil {
		return err
	}
	if err := fn(&set); err != nil {
		return err
	}
	return project.SaveCustomProfiles(g.profilesFile(), set.Custom)
}
