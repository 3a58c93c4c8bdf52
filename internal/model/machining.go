package model

import (
	"errors"
	"fmt"
	"strings"
)

// MachiningSettings holds the CNC parameters used to turn a layout into
// contour toolpaths.
type MachiningSettings struct {
	ToolDiameter float64 `json:"tool_diameter" yaml:"tool_diameter"` // End mill diameter in mm
	FeedRate     float64 `json:"feed_rate" yaml:"feed_rate"`         // Cutting feed rate mm/min
	PlungeRate   float64 `json:"plunge_rate" yaml:"plunge_rate"`     // Plunge feed rate mm/min
	SpindleSpeed int     `json:"spindle_speed" yaml:"spindle_speed"` // RPM
	SafeZ        float64 `json:"safe_z" yaml:"safe_z"`               // Safe retract height mm
	CutDepth     float64 `json:"cut_depth" yaml:"cut_depth"`         // Total material thickness mm
	PassDepth    float64 `json:"pass_depth" yaml:"pass_depth"`       // Depth per pass mm

	// Holding tabs keep parts attached to the sheet on the final pass
	TabWidth       float64 `json:"tab_width" yaml:"tab_width"`
	TabHeight      float64 `json:"tab_height" yaml:"tab_height"`
	TabsPerContour int     `json:"tabs_per_contour" yaml:"tabs_per_contour"`

	LeadInRadius float64 `json:"lead_in_radius" yaml:"lead_in_radius"` // 0 disables lead-in/out arcs
	UseClimb     bool    `json:"use_climb" yaml:"use_climb"`           // Climb vs conventional milling

	Profile string `json:"profile" yaml:"profile"` // Name of the GCode profile to use
}

// DefaultMachiningSettings returns settings for a 6mm end mill in 18mm stock.
func DefaultMachiningSettings() MachiningSettings {
	return MachiningSettings{
		ToolDiameter: 6.0,
		FeedRate:     1500.0,
		PlungeRate:   500.0,
		SpindleSpeed: 18000,
		SafeZ:        5.0,
		CutDepth:     18.0,
		PassDepth:    6.0,
		TabWidth:     8.0,
		TabHeight:    2.0,
		UseClimb:     true,
		Profile:      "Generic",
	}
}

// ErrInvalidMachining is returned by MachiningSettings.Validate.
var ErrInvalidMachining = errors.New("invalid machining settings")

// Validate rejects settings the generator cannot cut with.
func (m MachiningSettings) Validate() error {
	if m.ToolDiameter <= 0 {
		return fmt.Errorf("%w: tool diameter must be positive", ErrInvalidMachining)
	}
	if m.CutDepth <= 0 || m.PassDepth <= 0 {
		return fmt.Errorf("%w: cut depth and pass depth must be positive", ErrInvalidMachining)
	}
	if m.FeedRate <= 0 || m.PlungeRate <= 0 {
		return fmt.Errorf("%w: feed and plunge rates must be positive", ErrInvalidMachining)
	}
	if m.TabsPerContour < 0 || m.TabWidth < 0 || m.TabHeight < 0 || m.LeadInRadius < 0 {
		return fmt.Errorf("%w: tab and lead-in values must not be negative", ErrInvalidMachining)
	}
	return nil
}

// Passes returns the number of depth passes.
func (m MachiningSettings) Passes() int {
	n := int(m.CutDepth / m.PassDepth)
	if float64(n)*m.PassDepth < m.CutDepth-1e-9 {
		n++
	}
	return max(n, 1)
}

// GCodeProfile defines a post-processor configuration for different CNC controllers.
type GCodeProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsBuiltIn   bool   `json:"-"`
	Units       string `json:"units"` // "mm" or "inches"

	// Startup codes
	StartCode    []string `json:"start_code"`
	SpindleStart string   `json:"spindle_start"` // Spindle on command (e.g., "M3 S%d")
	SpindleStop  string   `json:"spindle_stop"`

	// Motion settings
	RapidMove string `json:"rapid_move"` // G0 or equivalent
	FeedMove  string `json:"feed_move"`  // G1 or equivalent
	ArcCW     string `json:"arc_cw"`     // G2 or equivalent
	ArcCCW    string `json:"arc_ccw"`    // G3 or equivalent

	// End codes; [SafeZ] is replaced by the retract height
	EndCode []string `json:"end_code"`

	// Comment style
	CommentPrefix string `json:"comment_prefix"`
	CommentSuffix string `json:"comment_suffix"` // e.g. ")" for Fanuc style

	DecimalPlaces int `json:"decimal_places"`
}

// GCodeProfiles lists the built-in post-processors. Generic is last and is
// the fallback for unknown names.
var GCodeProfiles = []GCodeProfile{
	{
		Name:          "Grbl",
		Description:   "Standard Grbl configuration (Arduino CNC shields)",
		IsBuiltIn:     true,
		Units:         "mm",
		StartCode:     []string{"G90", "G21", "G17"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0", "M2"},
		CommentPrefix: ";",
		DecimalPlaces: 3,
	},
	{
		Name:          "Mach3",
		Description:   "Mach3 CNC control software",
		IsBuiltIn:     true,
		Units:         "mm",
		StartCode:     []string{"G90", "G21", "G17", "G94"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		EndCode:       []string{"G0 Z[SafeZ]", "G28 X0 Y0", "M30"},
		CommentPrefix: "(",
		CommentSuffix: ")",
		DecimalPlaces: 4,
	},
	{
		Name:          "LinuxCNC",
		Description:   "LinuxCNC (formerly EMC2)",
		IsBuiltIn:     true,
		Units:         "mm",
		StartCode:     []string{"G90", "G21", "G17", "G94", "G64 P0.01"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0", "M2"},
		CommentPrefix: ";",
		DecimalPlaces: 4,
	},
	{
		Name:          "Generic",
		Description:   "Generic standard GCode",
		IsBuiltIn:     true,
		Units:         "mm",
		StartCode:     []string{"G90", "G21"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0", "M2"},
		CommentPrefix: ";",
		DecimalPlaces: 3,
	},
}

// GetProfile returns a built-in profile by name, or Generic if not found.
func GetProfile(name string) GCodeProfile {
	for _, p := range GCodeProfiles {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return GCodeProfiles[len(GCodeProfiles)-1]
}

func isBuiltInProfile(name string) bool {
	for _, p := range GCodeProfiles {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// NewCustomProfile returns a copy of the Generic profile under a new name.
func NewCustomProfile(name string) GCodeProfile {
	p := GetProfile("Generic")
	p.Name = name
	p.Description = "Custom profile"
	p.IsBuiltIn = false
	p.StartCode = append([]string(nil), p.StartCode...)
	p.EndCode = append([]string(nil), p.EndCode...)
	return p
}

// ProfileSet holds the user's custom post-processors on top of the built-in ones.
type ProfileSet struct {
	Custom []GCodeProfile
}

// All returns the built-in profiles followed by the custom ones.
func (s *ProfileSet) All() []GCodeProfile {
	all := make([]GCodeProfile, 0, len(GCodeProfiles)+len(s.Custom))
	all = append(all, GCodeProfiles...)
	return append(all, s.Custom...)
}

// Names lists every profile name in All order.
func (s *ProfileSet) Names() []string {
	var names []string
	for _, p := range s.All() {
		names = append(names, p.Name)
	}
	return names
}

// Find looks a profile up by name, case-insensitively.
func (s *ProfileSet) Find(name string) (GCodeProfile, bool) {
	for _, p := range s.All() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return GCodeProfile{}, false
}

// Add inserts a custom profile or replaces the one with the same name.
// Built-in names are reserved.
func (s *ProfileSet) Add(p GCodeProfile) error {
	if p.Name == "" {
		return errors.New("profile has no name")
	}
	if isBuiltInProfile(p.Name) {
		return fmt.Errorf("cannot overwrite built-in profile %q", p.Name)
	}
	p.IsBuiltIn = false
	for i := range s.Custom {
		if strings.EqualFold(s.Custom[i].Name, p.Name) {
			s.Custom[i] = p
			return nil
		}
	}
	s.Custom = append(s.Custom, p)
	return nil
}

// Remove deletes a custom profile.
func (s *ProfileSet) Remove(name string) error {
	if isBuiltInProfile(name) {
		return fmt.Errorf("cannot remove built-in profile %q", name)
	}
	for i := range s.Custom {
		if strings.EqualFold(s.Custom[i].Name, name) {
			s.Custom = append(s.Custom[:i], s.Custom[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("profile %q not found", name)
}
