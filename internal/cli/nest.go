package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/piwi3910/SlabNest/internal/engine"
	"github.com/piwi3910/SlabNest/internal/export"
	"github.com/piwi3910/SlabNest/internal/gcode"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/project"
	"github.com/piwi3910/SlabNest/internal/worker"
	"github.com/spf13/cobra"
)

const maxRecentJobs = 10

type nestOptions struct {
	strategy string
	result   string
	pdf      string
	workbook string
	labels   string
	gcode    string
	profile  string
	workers  int
	timeout  time.Duration
}

func newNestCmd(g *globalOptions) *cobra.Command {
	opts := &nestOptions{}
	cmd := &cobra.Command{
		Use:   "nest <job.yaml>",
		Short: "Nest the parts of a job file and write the outputs",
		Long: `Nest the parts of a job file onto stock sheets.

Output paths given as flags replace the ones in the job file. With
--timeout the genetic strategy stops early and keeps its best layout.

G-code is written as one program per sheet: --gcode out/job.nc produces
out/job_sheet1.nc, out/job_sheet2.nc and so on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNest(cmd, g, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.strategy, "strategy", "s", "", "guillotine, true-shape-genetic or nfp-first-fit")
	f.StringVarP(&opts.result, "out", "o", "", "write the layout as JSON")
	f.StringVar(&opts.pdf, "pdf", "", "write the layout PDF")
	f.StringVar(&opts.workbook, "xlsx", "", "write the placement workbook")
	f.StringVar(&opts.labels, "labels", "", "write QR label sheets")
	f.StringVar(&opts.gcode, "gcode", "", "write per-sheet G-code programs")
	f.StringVar(&opts.profile, "profile", "", "G-code post-processor (see 'slabnest profiles list')")
	f.IntVar(&opts.workers, "workers", 0, "no-fit polygon workers (0 uses every CPU)")
	f.DurationVar(&opts.timeout, "timeout", 0, "stop the run after this long")
	return cmd
}

func runNest(cmd *cobra.Command, g *globalOptions, opts *nestOptions, path string) error {
	logger := g.logger(cmd.ErrOrStderr())
	out := printer{w: cmd.OutOrStdout()}

	lj, err := loadJob(g, logger, path, opts.strategy)
	if err != nil {
		return err
	}
	out.Title("SlabNest " + lj.job.Name)

	profile := lj.profile
	if opts.profile != "" {
		p, ok := lj.profiles.Find(opts.profile)
		if !ok {
			return fmt.Errorf("unknown G-code profile %q", opts.profile)
		}
		profile = p
	}

	n := engine.New(lj.settings)
	n.Genetic = lj.genetic
	if lj.settings.Strategy == model.StrategyNFP {
		pool := worker.NewPool(opts.workers, logger)
		defer pool.Close()
		n.NFP = pool
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	var runner engine.Runner
	start := time.Now()
	run := runner.Start(ctx, *n, lj.parts, func(p engine.Progress) {
		logger.Debug("generation", "n", p.Generation, "of", p.Generations,
			"fitness", p.BestFitness, "placed", len(p.Best.Placed))
	})
	result, err := run.Wait()
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && lj.settings.Strategy == model.StrategyGenetic:
		out.Warning("time limit reached, keeping the best layout found")
	default:
		return fmt.Errorf("nest %s: %w", lj.job.Name, err)
	}
	logger.Debug("nesting finished", "elapsed", time.Since(start).Round(time.Millisecond))

	job := export.Job{
		Name:          lj.job.Name,
		Settings:      lj.settings,
		Parts:         lj.parts,
		Result:        result,
		PricePerSheet: lj.price,
	}
	printSummary(out, job)

	outputs := lj.job.Output
	override := func(dst *string, flag string) {
		if flag != "" {
			*dst = flag
		}
	}
	override(&outputs.Result, opts.result)
	override(&outputs.PDF, opts.pdf)
	override(&outputs.Workbook, opts.workbook)
	override(&outputs.Labels, opts.labels)
	override(&outputs.GCode, opts.gcode)

	if err := writeOutputs(out, job, outputs, lj.machining, profile); err != nil {
		return err
	}

	lj.config.AddRecentJob(lj.path, maxRecentJobs)
	if err := project.SaveAppConfig(g.configFile(), lj.config); err != nil {
		logger.Warn("could not update recent jobs", "err", err)
	}
	return nil
}

// writeOutputs writes every configured output file. Exporters that need at
// least one sheet are skipped when nothing was placed.
func writeOutputs(out printer, job export.Job, o project.OutputConfig, m model.MachiningSettings, profile model.GCodeProfile) error {
	if o.Result != "" {
		if err := project.SaveRun(o.Result, job.Name, job.Settings, job.Parts, job.Result); err != nil {
			return err
		}
		out.Success("layout saved to " + o.Result)
	}

	if job.Result.TotalBins == 0 {
		if o.PDF != "" || o.Workbook != "" || o.Labels != "" || o.GCode != "" {
			out.Warning("nothing placed, no sheet exports written")
		}
		return nil
	}

	if o.PDF != "" {
		if err := export.ExportPDF(o.PDF, job); err != nil {
			return fmt.Errorf("export pdf: %w", err)
		}
		out.Success("PDF written to " + o.PDF)
	}
	if o.Workbook != "" {
		if err := export.ExportWorkbook(o.Workbook, job); err != nil {
			return fmt.Errorf("export workbook: %w", err)
		}
		out.Success("workbook written to " + o.Workbook)
	}
	if o.Labels != "" {
		if err := export.ExportLabels(o.Labels, job); err != nil {
			return fmt.Errorf("export labels: %w", err)
		}
		out.Success("labels written to " + o.Labels)
	}
	if o.GCode != "" {
		for _, w := range export.ToolpathWarnings(job, m) {
			out.Warning(w)
		}
		written, err := export.ExportGCode(o.GCode, job, m, profile)
		if err != nil {
			return fmt.Errorf("export gcode: %w", err)
		}
		out.Success(fmt.Sprintf("%d G-code programs written (%s, %s)", len(written), profile.Name, written[0]))
		for i, path := range written {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			e := gcode.EstimateMoves(gcode.ParseGCode(string(data)))
			out.KeyValue(fmt.Sprintf("Sheet %d", i+1), fmt.Sprintf("%.1f m cut, %d plunges, %s at feed",
				e.CutLength/1000, e.Plunges, e.CutTime.Round(time.Second)))
		}
	}
	return nil
}
