package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/piwi3910/SlabNest/internal/engine"
	"github.com/piwi3910/SlabNest/internal/export"
	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/piwi3910/SlabNest/internal/project"
)

// loadedJob is a job file resolved against the application config.
type loadedJob struct {
	path     string
	config   model.AppConfig
	job      *project.JobFile
	settings model.NestSettings
	genetic  engine.GeneticConfig
	parts    []model.ImportedPart

	machining model.MachiningSettings
	profile   model.GCodeProfile
	profiles  model.ProfileSet
	price     float64 // per sheet, from the stock preset
}

// loadJob reads the job at path, applies the saved defaults beneath it and
// imports its parts. Import warnings are logged.
func loadJob(g *globalOptions, logger *slog.Logger, path, strategy string) (*loadedJob, error) {
	cfg, err := g.appConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	job, err := project.NewLoader().Load(path)
	if err != nil {
		return nil, err
	}

	inv, err := project.LoadInventory(g.inventoryFile())
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	profiles, err := project.LoadProfileSet(g.profilesFile())
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	base := model.DefaultSettings()
	cfg.ApplyToSettings(&base)
	stock, err := job.Stock(inv)
	if err != nil {
		return nil, err
	}
	var price float64
	if stock != nil {
		stock.ApplyToSettings(&base)
		price = stock.PricePerSheet
	}
	settings, err := job.Settings(base, strategy)
	if err != nil {
		return nil, err
	}

	machining, profile, err := job.MachiningSettings(model.DefaultMachiningSettings(), inv, profiles)
	if err != nil {
		return nil, err
	}

	genetic := engine.DefaultGeneticConfig()
	if cfg.Population > 0 {
		genetic.PopulationSize = cfg.Population
	}
	if cfg.Generations > 0 {
		genetic.Generations = cfg.Generations
	}
	genetic = job.GeneticConfig(genetic)

	set, err := job.LoadParts()
	if err != nil {
		return nil, err
	}
	for _, w := range set.Warnings {
		logger.Warn("import", "msg", w)
	}
	logger.Debug("job loaded", "job", job.Name, "parts", len(set.Parts), "instances", set.TotalQuantity(), "strategy", settings.Strategy)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &loadedJob{
		path:     abs,
		config:   cfg,
		job:      job,
		settings: settings,
		genetic:  genetic,
		parts:    set.Parts,

		machining: machining,
		profile:   profile,
		profiles:  profiles,
		price:     price,
	}, nil
}

// printSummary renders the outcome of a run.
func printSummary(p printer, job export.Job) {
	res := job.Result
	total := len(res.Placed) + len(res.Failed)

	p.Header("Result")
	p.KeyValue("Strategy", string(job.Settings.Strategy))
	p.KeyValue("Sheets", strconv.Itoa(res.TotalBins))
	p.KeyValue("Placed", fmt.Sprintf("%d / %d", len(res.Placed), total))
	p.KeyValue("Efficiency", fmt.Sprintf("%.1f%%", res.Efficiency*100))

	if stats := export.SheetStats(job); len(stats) > 0 {
		rows := make([][]string, 0, len(stats))
		for _, st := range stats {
			rows = append(rows, []string{
				strconv.Itoa(st.Index + 1),
				strconv.Itoa(st.Parts),
				fmt.Sprintf("%.0f", st.UsedArea),
				fmt.Sprintf("%.1f%%", st.Efficiency*100),
				strconv.Itoa(len(st.Offcuts)),
			})
		}
		p.Table([]string{"Sheet", "Parts", "Used mm²", "Efficiency", "Offcuts"}, rows)

		var offcuts []model.Offcut
		for _, st := range stats {
			offcuts = append(offcuts, st.Offcuts...)
		}
		if len(offcuts) > 0 {
			p.KeyValue("Reusable offcuts", fmt.Sprintf("%d, %.0f mm²", len(offcuts), model.TotalOffcutArea(offcuts)))
		}
	}

	order, counts := export.FailedCounts(res)
	for _, id := range order {
		p.Warning(fmt.Sprintf("%s: %d not placed", id, counts[id]))
	}
	for _, d := range res.Diagnostics {
		p.Info(d)
	}
}

// printEstimate renders the area-based sheet estimate for the job's parts.
func printEstimate(p printer, parts []model.ImportedPart, s model.NestSettings, wastePercent, price float64) {
	est := model.CalculatePurchaseEstimate(parts, s, wastePercent, price)
	p.Header("Purchase estimate")
	p.KeyValue("Part area", fmt.Sprintf("%.0f mm² (%.2f board ft)", est.TotalPartArea, est.TotalBoardFeet))
	p.KeyValue("Sheets", fmt.Sprintf("%.2f exact, %d minimum, %d with %.0f%% waste",
		est.SheetsNeededExact, est.SheetsNeededMin, est.SheetsWithWaste, est.WastePercent))
	if est.EstimatedCost > 0 {
		p.KeyValue("Cost", fmt.Sprintf("%.2f", est.EstimatedCost))
	}
}
