// Package cli implements the slabnest command line: nesting a job file,
// comparing what-if scenarios and re-validating a saved layout.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/project"
	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	verbose    bool
	configPath string
}

// logger writes structured logs to w. Verbose mode includes debug records.
func (g *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (g *globalOptions) configFile() string {
	if g.configPath != "" {
		return g.configPath
	}
	return project.DefaultConfigPath()
}

// inventoryFile and profilesFile live next to the config file.
func (g *globalOptions) inventoryFile() string {
	return filepath.Join(filepath.Dir(g.configFile()), "inventory.json")
}

func (g *globalOptions) profilesFile() string {
	return filepath.Join(filepath.Dir(g.configFile()), "profiles.json")
}

func (g *globalOptions) appConfig() (model.AppConfig, error) {
	return project.LoadAppConfig(g.configFile())
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:     "slabnest",
		Version: version,
		Short:   "True-shape nesting of CAD parts on stock sheets",
		Long: `slabnest places the parts of a job onto rectangular stock sheets.

Parts come from DXF drawings or plain rectangles listed in a YAML job file;
a CSV or XLSX schedule can override quantities. Layouts are written as JSON,
PDF, XLSX, QR label sheets and per-sheet G-code.

Examples:
  slabnest nest job.yaml --pdf layout.pdf
  slabnest nest job.yaml --strategy nfp-first-fit --out run.json
  slabnest nest job.yaml --gcode out/job.nc --profile Grbl
  slabnest compare job.yaml
  slabnest check run.json
  slabnest profiles list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "application config file (default ~/.slabnest/config.json)")

	root.AddCommand(newNestCmd(g))
	root.AddCommand(newCompareCmd(g))
	root.AddCommand(newCheckCmd(g))
	root.AddCommand(newProfilesCmd(g))
	root.AddCommand(newInventoryCmd(g))
	return root
}

// Execute runs the root command. An interrupt cancels the running job.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}
