package model

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	// Default sheet and clearance settings applied to new jobs
	DefaultStrategy     Strategy `json:"default_strategy"`
	DefaultBinWidth     float64  `json:"default_bin_width"`
	DefaultBinHeight    float64  `json:"default_bin_height"`
	DefaultMargin       float64  `json:"default_margin"`
	DefaultGap          float64  `json:"default_gap"`
	DefaultKerf         float64  `json:"default_kerf"`
	DefaultRotationStep float64  `json:"default_rotation_step"`
	DefaultMaxBins      int      `json:"default_max_bins"`

	// Genetic search budget
	Population  int `json:"population"`
	Generations int `json:"generations"`

	// Application preferences
	RecentJobs []string `json:"recent_jobs"`
	Verbose    bool     `json:"verbose"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults
// matching the values from DefaultSettings().
func DefaultAppConfig() AppConfig {
	defaults := DefaultSettings()
	return AppConfig{
		DefaultStrategy:     defaults.Strategy,
		DefaultBinWidth:     defaults.BinWidth,
		DefaultBinHeight:    defaults.BinHeight,
		DefaultMargin:       defaults.Margin,
		DefaultGap:          defaults.Gap,
		DefaultKerf:         defaults.Kerf,
		DefaultRotationStep: defaults.RotationStep,
		DefaultMaxBins:      defaults.MaxBins,
		Population:          20,
		Generations:         40,
		RecentJobs:          []string{},
	}
}

// ApplyToSettings copies the default values from AppConfig into a NestSettings struct.
// This is used when creating a new job so it inherits the user's saved defaults.
func (c AppConfig) ApplyToSettings(s *NestSettings) {
	if c.DefaultStrategy != "" {
		s.Strategy = c.DefaultStrategy
	}
	s.BinWidth = c.DefaultBinWidth
	s.BinHeight = c.DefaultBinHeight
	s.Margin = c.DefaultMargin
	s.Gap = c.DefaultGap
	s.Kerf = c.DefaultKerf
	s.RotationStep = c.DefaultRotationStep
	s.MaxBins = c.DefaultMaxBins
}

// AddRecentJob moves path to the front of the recent list, keeping at most max entries.
func (c *AppConfig) AddRecentJob(path string, max int) {
	jobs := []string{path}
	for _, j := range c.RecentJobs {
		if j != path {
			jobs = append(jobs, j)
		}
	}
	if max > 0 && len(jobs) > max {
		jobs = jobs[:max]
	}
	c.RecentJobs = jobs
}
