package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/SlabNest/internal/engine"
	"github.com/piwi3910/SlabNest/internal/importer"
	"github.com/piwi3910/SlabNest/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidJob is returned when a job file fails validation.
var ErrInvalidJob = errors.New("invalid job file")

// JobFile is the YAML description of a nesting job.
type JobFile struct {
	Name      string           `yaml:"name"`
	Strategy  string           `yaml:"strategy,omitempty"`
	Sheet     SheetConfig      `yaml:"sheet"`
	Genetic   *GeneticSection  `yaml:"genetic,omitempty"`
	CropLines []model.CropLine `yaml:"crop_lines,omitempty"`
	Parts     []PartEntry      `yaml:"parts"`
	Schedule  string           `yaml:"schedule,omitempty"` // CSV or XLSX quantity schedule
	Machining *MachiningConfig `yaml:"machining,omitempty"`
	Output    OutputConfig     `yaml:"output,omitempty"`
}

// SheetConfig describes the stock sheet. Omitted values keep the defaults
// the job is resolved against.
type SheetConfig struct {
	Preset       string   `yaml:"preset,omitempty"` // Stock preset name or id from the inventory
	Width        float64  `yaml:"width"`
	Height       float64  `yaml:"height"`
	Margin       *float64 `yaml:"margin,omitempty"`
	Gap          *float64 `yaml:"gap,omitempty"`
	Kerf         *float64 `yaml:"kerf,omitempty"`
	RotationStep *float64 `yaml:"rotation_step,omitempty"`
	MaxBins      int      `yaml:"max_bins,omitempty"`
}

// GeneticSection overrides the genetic search budget.
type GeneticSection struct {
	Population   int     `yaml:"population,omitempty"`
	Generations  *int    `yaml:"generations,omitempty"`
	MutationRate float64 `yaml:"mutation_rate,omitempty"`
	GridStep     float64 `yaml:"grid_step,omitempty"`
	Seed         *int64  `yaml:"seed,omitempty"`
}

// MachiningConfig selects the tool and post-processor for G-code output.
// A named tool is applied first; explicit values override it.
type MachiningConfig struct {
	Tool         string   `yaml:"tool,omitempty"`
	Profile      string   `yaml:"profile,omitempty"`
	ToolDiameter float64  `yaml:"tool_diameter,omitempty"`
	FeedRate     float64  `yaml:"feed_rate,omitempty"`
	PlungeRate   float64  `yaml:"plunge_rate,omitempty"`
	SpindleSpeed int      `yaml:"spindle_speed,omitempty"`
	SafeZ        float64  `yaml:"safe_z,omitempty"`
	CutDepth     float64  `yaml:"cut_depth,omitempty"`
	PassDepth    float64  `yaml:"pass_depth,omitempty"`
	TabWidth     float64  `yaml:"tab_width,omitempty"`
	TabHeight    *float64 `yaml:"tab_height,omitempty"`
	Tabs         *int     `yaml:"tabs,omitempty"`
	LeadInRadius *float64 `yaml:"lead_in_radius,omitempty"`
	Climb        *bool    `yaml:"climb,omitempty"`
}

// PartEntry is either a DXF drawing or a plain rectangle.
type PartEntry struct {
	DXF      string  `yaml:"dxf,omitempty"`
	ID       string  `yaml:"id,omitempty"`
	Label    string  `yaml:"label,omitempty"`
	Width    float64 `yaml:"width,omitempty"`
	Height   float64 `yaml:"height,omitempty"`
	Quantity *int    `yaml:"quantity,omitempty"` // Applies to every part of a drawing
}

// OutputConfig names the files written after a run. Empty entries are skipped.
type OutputConfig struct {
	Result   string `yaml:"result,omitempty"`
	PDF      string `yaml:"pdf,omitempty"`
	Workbook string `yaml:"xlsx,omitempty"`
	Labels   string `yaml:"labels,omitempty"`
	GCode    string `yaml:"gcode,omitempty"` // One file per sheet, suffixed _sheetN
}

// Loader handles loading and validating YAML job files.
type Loader struct{}

// NewLoader creates a new job loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads, validates and resolves a job file. Relative paths inside the
// file are taken relative to the file's directory.
func (l *Loader) Load(jobPath string) (*JobFile, error) {
	data, err := os.ReadFile(jobPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var job JobFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidJob, err)
	}

	if err := l.Validate(&job, jobPath); err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(filepath.Dir(jobPath))
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path of job directory: %w", err)
	}
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(absDir, *p)
		}
	}
	for i := range job.Parts {
		resolve(&job.Parts[i].DXF)
	}
	resolve(&job.Schedule)
	resolve(&job.Output.Result)
	resolve(&job.Output.PDF)
	resolve(&job.Output.Workbook)
	resolve(&job.Output.Labels)
	resolve(&job.Output.GCode)

	if job.Name == "" {
		job.Name = strings.TrimSuffix(filepath.Base(jobPath), filepath.Ext(jobPath))
	}
	return &job, nil
}

// Validate checks the job for structural errors and missing input files.
func (l *Loader) Validate(job *JobFile, jobPath string) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidJob, fmt.Sprintf(format, args...))
	}

	if job.Strategy != "" {
		if _, err := model.ParseStrategy(job.Strategy); err != nil {
			return invalid("%v", err)
		}
	}
	if job.Sheet.Width < 0 || job.Sheet.Height < 0 {
		return invalid("sheet size must not be negative")
	}
	if job.Sheet.MaxBins < 0 {
		return invalid("max_bins must not be negative")
	}
	if len(job.Parts) == 0 && job.Schedule == "" {
		return invalid("at least one part or a schedule must be defined")
	}

	jobDir := filepath.Dir(jobPath)
	exists := func(p string) bool {
		if !filepath.IsAbs(p) {
			p = filepath.Join(jobDir, p)
		}
		_, err := os.Stat(p)
		return err == nil
	}

	ids := make(map[string]bool)
	for i, part := range job.Parts {
		name := part.ID
		if name == "" {
			name = part.DXF
		}
		if part.Quantity != nil && *part.Quantity < 0 {
			return invalid("part %d (%s): quantity must not be negative", i+1, name)
		}
		switch {
		case part.DXF != "" && (part.Width != 0 || part.Height != 0):
			return invalid("part %d (%s): use either dxf or width/height, not both", i+1, name)
		case part.DXF != "":
			if !exists(part.DXF) {
				return invalid("part %d: file not found: %s", i+1, part.DXF)
			}
		default:
			if part.ID == "" {
				return invalid("part %d: id is required for rectangles", i+1)
			}
			if part.Width <= 0 || part.Height <= 0 {
				return invalid("part %s: width and height must be positive", part.ID)
			}
			key := strings.ToLower(part.ID)
			if ids[key] {
				return invalid("part %s: duplicate id", part.ID)
			}
			ids[key] = true
		}
	}

	if job.Schedule != "" && !exists(job.Schedule) {
		return invalid("schedule not found: %s", job.Schedule)
	}

	if m := job.Machining; m != nil {
		if m.ToolDiameter < 0 || m.FeedRate < 0 || m.PlungeRate < 0 || m.SpindleSpeed < 0 ||
			m.SafeZ < 0 || m.CutDepth < 0 || m.PassDepth < 0 || m.TabWidth < 0 {
			return invalid("machining values must not be negative")
		}
		if m.Tabs != nil && *m.Tabs < 0 {
			return invalid("machining tabs must not be negative")
		}
	}
	return nil
}

// Stock looks up the job's sheet preset. It returns nil when the job names
// none.
func (j *JobFile) Stock(inv model.Inventory) (*model.StockPreset, error) {
	if j.Sheet.Preset == "" {
		return nil, nil
	}
	sp := inv.FindStock(j.Sheet.Preset)
	if sp == nil {
		return nil, fmt.Errorf("%w: unknown stock preset %q", ErrInvalidJob, j.Sheet.Preset)
	}
	return sp, nil
}

// MachiningSettings resolves the machining section against base. The tool
// and profile names are looked up in inv and profiles.
func (j *JobFile) MachiningSettings(base model.MachiningSettings, inv model.Inventory, profiles model.ProfileSet) (model.MachiningSettings, model.GCodeProfile, error) {
	s := base
	if m := j.Machining; m != nil {
		if m.Tool != "" {
			tool := inv.FindTool(m.Tool)
			if tool == nil {
				return s, model.GCodeProfile{}, fmt.Errorf("%w: unknown tool %q", ErrInvalidJob, m.Tool)
			}
			tool.ApplyToMachining(&s)
		}
		if m.Profile != "" {
			s.Profile = m.Profile
		}
		setIf := func(dst *float64, v float64) {
			if v > 0 {
				*dst = v
			}
		}
		setIf(&s.ToolDiameter, m.ToolDiameter)
		setIf(&s.FeedRate, m.FeedRate)
		setIf(&s.PlungeRate, m.PlungeRate)
		setIf(&s.SafeZ, m.SafeZ)
		setIf(&s.CutDepth, m.CutDepth)
		setIf(&s.PassDepth, m.PassDepth)
		setIf(&s.TabWidth, m.TabWidth)
		if m.SpindleSpeed > 0 {
			s.SpindleSpeed = m.SpindleSpeed
		}
		if m.TabHeight != nil {
			s.TabHeight = *m.TabHeight
		}
		if m.Tabs != nil {
			s.TabsPerContour = *m.Tabs
		}
		if m.LeadInRadius != nil {
			s.LeadInRadius = *m.LeadInRadius
		}
		if m.Climb != nil {
			s.UseClimb = *m.Climb
		}
	}

	profile, ok := profiles.Find(s.Profile)
	if !ok {
		return s, model.GCodeProfile{}, fmt.Errorf("%w: unknown G-code profile %q", ErrInvalidJob, s.Profile)
	}
	if err := s.Validate(); err != nil {
		return s, model.GCodeProfile{}, err
	}
	return s, profile, nil
}

// Settings resolves the sheet configuration against base and validates it.
// A strategy override takes precedence over the job's own strategy.
func (j *JobFile) Settings(base model.NestSettings, override string) (model.NestSettings, error) {
	s := base
	if j.Strategy != "" {
		s.Strategy = model.Strategy(j.Strategy)
	}
	if override != "" {
		st, err := model.ParseStrategy(override)
		if err != nil {
			return model.NestSettings{}, fmt.Errorf("%w: %v", model.ErrInvalidSettings, err)
		}
		s.Strategy = st
	}
	if j.Sheet.Width > 0 {
		s.BinWidth = j.Sheet.Width
	}
	if j.Sheet.Height > 0 {
		s.BinHeight = j.Sheet.Height
	}
	if j.Sheet.Margin != nil {
		s.Margin = *j.Sheet.Margin
	}
	if j.Sheet.Gap != nil {
		s.Gap = *j.Sheet.Gap
	}
	if j.Sheet.Kerf != nil {
		s.Kerf = *j.Sheet.Kerf
	}
	if j.Sheet.RotationStep != nil {
		s.RotationStep = *j.Sheet.RotationStep
	}
	if j.Sheet.MaxBins > 0 {
		s.MaxBins = j.Sheet.MaxBins
	}
	s.CropLines = append([]model.CropLine(nil), j.CropLines...)

	if err := s.Validate(); err != nil {
		return model.NestSettings{}, err
	}
	return s, nil
}

// GeneticConfig applies the job's genetic section to base.
func (j *JobFile) GeneticConfig(base engine.GeneticConfig) engine.GeneticConfig {
	g := j.Genetic
	if g == nil {
		return base
	}
	if g.Population > 0 {
		base.PopulationSize = g.Population
	}
	if g.Generations != nil {
		base.Generations = *g.Generations
	}
	if g.MutationRate > 0 {
		base.MutationRate = g.MutationRate
	}
	if g.GridStep > 0 {
		base.GridStep = g.GridStep
	}
	if g.Seed != nil {
		base.Seed = *g.Seed
	}
	return base
}

// PartSet holds the parts of a job after import and schedule merging.
type PartSet struct {
	Parts    []model.ImportedPart
	Warnings []string
}

// TotalQuantity returns the number of instances to place.
func (ps PartSet) TotalQuantity() int {
	n := 0
	for _, p := range ps.Parts {
		n += p.Quantity
	}
	return n
}

// LoadParts imports every part the job names and applies the schedule.
// Import errors abort; warnings are collected with the source they came from.
func (j *JobFile) LoadParts() (PartSet, error) {
	var set PartSet
	seen := make(map[string]string)
	add := func(p model.ImportedPart, source string) error {
		key := strings.ToLower(p.ID)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%w: part id %q from %s already defined by %s", ErrInvalidJob, p.ID, source, prev)
		}
		seen[key] = source
		set.Parts = append(set.Parts, p)
		return nil
	}

	for _, entry := range j.Parts {
		qty := 1
		if entry.Quantity != nil {
			qty = *entry.Quantity
		}

		if entry.DXF == "" {
			p := model.NewRectanglePart(entry.ID, entry.Width, entry.Height, qty)
			if entry.Label != "" {
				p.Label = entry.Label
			}
			if err := add(p, "rectangle "+entry.ID); err != nil {
				return PartSet{}, err
			}
			continue
		}

		source := filepath.Base(entry.DXF)
		res := importer.ImportDXF(entry.DXF)
		if len(res.Errors) > 0 {
			return PartSet{}, fmt.Errorf("import %s: %s", source, strings.Join(res.Errors, "; "))
		}
		for _, w := range res.Warnings {
			set.Warnings = append(set.Warnings, source+": "+w)
		}
		for _, p := range res.Parts {
			p.Quantity = qty
			if entry.Label != "" && len(res.Parts) == 1 {
				p.Label = entry.Label
			}
			if err := add(p, source); err != nil {
				return PartSet{}, err
			}
		}
	}

	if j.Schedule != "" {
		source := filepath.Base(j.Schedule)
		sched := importer.ImportSchedule(j.Schedule)
		if len(sched.Errors) > 0 {
			return PartSet{}, fmt.Errorf("schedule %s: %s", source, strings.Join(sched.Errors, "; "))
		}
		for _, w := range sched.Warnings {
			set.Warnings = append(set.Warnings, source+": "+w)
		}
		parts, warnings := importer.ApplySchedule(set.Parts, sched.Entries)
		set.Parts = parts
		for _, w := range warnings {
			set.Warnings = append(set.Warnings, source+": "+w)
		}
	}

	if len(set.Parts) == 0 {
		return PartSet{}, fmt.Errorf("%w: no parts to nest", ErrInvalidJob)
	}
	return set, nil
}
