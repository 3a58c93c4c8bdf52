package model

import (
	"errors"
	"testing"
)

func TestProfileSetAllIncludesBuiltInAndCustom(t *testing.T) {
	var set ProfileSet

	builtInCount := len(GCodeProfiles)
	if got := len(set.All()); got != builtInCount {
		t.Errorf("expected %d profiles with no custom, got %d", builtInCount, got)
	}

	set.Custom = []GCodeProfile{{Name: "Custom1", Description: "Test custom"}}
	if got := len(set.All()); got != builtInCount+1 {
		t.Errorf("expected %d profiles with 1 custom, got %d", builtInCount+1, got)
	}
}

func TestProfileSetFindsCustomCaseInsensitive(t *testing.T) {
	set := ProfileSet{Custom: []GCodeProfile{
		{Name: "MyCustom", Description: "Custom profile", RapidMove: "G0", FeedMove: "G1"},
	}}

	p, ok := set.Find("mycustom")
	if !ok || p.Name != "MyCustom" {
		t.Errorf("expected MyCustom, got %q (found=%v)", p.Name, ok)
	}
	if _, ok := set.Find("grbl"); !ok {
		t.Error("expected built-in Grbl to be found")
	}
	if _, ok := set.Find("Nope"); ok {
		t.Error("unexpected profile for unknown name")
	}
}

func TestGetProfileFallsBackToGeneric(t *testing.T) {
	p := GetProfile("NonExistent")
	if p.Name != "Generic" {
		t.Errorf("expected Generic fallback, got %s", p.Name)
	}
}

func TestProfileNamesIncludesCustom(t *testing.T) {
	set := ProfileSet{Custom: []GCodeProfile{{Name: "CustomA"}, {Name: "CustomB"}}}

	found := map[string]bool{}
	for _, n := range set.Names() {
		found[n] = true
	}
	for _, want := range []string{"Grbl", "Mach3", "CustomA", "CustomB"} {
		if !found[want] {
			t.Errorf("missing profile %s", want)
		}
	}
}

func TestAddCustomProfile(t *testing.T) {
	var set ProfileSet
	if err := set.Add(GCodeProfile{Name: "NewProfile", Description: "New", IsBuiltIn: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Custom) != 1 {
		t.Fatalf("expected 1 custom profile, got %d", len(set.Custom))
	}
	if set.Custom[0].IsBuiltIn {
		t.Error("added profile must not be marked built-in")
	}
}

func TestAddCustomProfileRejectsBuiltInAndEmptyName(t *testing.T) {
	var set ProfileSet
	if err := set.Add(GCodeProfile{Name: "grbl"}); err == nil {
		t.Fatal("expected error when adding profile with built-in name")
	}
	if err := set.Add(GCodeProfile{}); err == nil {
		t.Fatal("expected error when adding profile without a name")
	}
}

func TestAddCustomProfileUpdatesExisting(t *testing.T) {
	var set ProfileSet
	_ = set.Add(GCodeProfile{Name: "MyProfile", Description: "Version 1"})
	_ = set.Add(GCodeProfile{Name: "MyProfile", Description: "Version 2"})

	if len(set.Custom) != 1 {
		t.Fatalf("expected 1 custom profile after update, got %d", len(set.Custom))
	}
	if set.Custom[0].Description != "Version 2" {
		t.Errorf("expected updated description, got %s", set.Custom[0].Description)
	}
}

func TestRemoveCustomProfile(t *testing.T) {
	set := ProfileSet{Custom: []GCodeProfile{{Name: "ToRemove"}}}

	if err := set.Remove("ToRemove"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Custom) != 0 {
		t.Error("profile was not removed")
	}
	if err := set.Remove("Grbl"); err == nil {
		t.Error("expected error when removing built-in profile")
	}
	if err := set.Remove("NonExistent"); err == nil {
		t.Error("expected error when removing non-existent profile")
	}
}

func TestNewCustomProfile(t *testing.T) {
	p := NewCustomProfile("Test Custom")
	if p.Name != "Test Custom" {
		t.Errorf("expected name 'Test Custom', got %s", p.Name)
	}
	if p.IsBuiltIn {
		t.Error("custom profile should not be built-in")
	}
	if p.RapidMove != "G0" {
		t.Errorf("expected G0 rapid move from Generic, got %s", p.RapidMove)
	}

	p.StartCode[0] = "G91"
	if GetProfile("Generic").StartCode[0] != "G90" {
		t.Error("editing a custom profile must not touch the built-in one")
	}
}

func TestBuiltInProfilesMarkedCorrectly(t *testing.T) {
	for _, p := range GCodeProfiles {
		if !p.IsBuiltIn {
			t.Errorf("built-in profile %s should have IsBuiltIn=true", p.Name)
		}
	}
}

func TestMachiningSettingsValidate(t *testing.T) {
	if err := DefaultMachiningSettings().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*MachiningSettings)
	}{
		{"zero tool", func(m *MachiningSettings) { m.ToolDiameter = 0 }},
		{"zero pass depth", func(m *MachiningSettings) { m.PassDepth = 0 }},
		{"zero feed", func(m *MachiningSettings) { m.FeedRate = 0 }},
		{"negative tabs", func(m *MachiningSettings) { m.TabsPerContour = -1 }},
		{"negative lead-in", func(m *MachiningSettings) { m.LeadInRadius = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultMachiningSettings()
			tt.mutate(&m)
			if err := m.Validate(); !errors.Is(err, ErrInvalidMachining) {
				t.Errorf("expected ErrInvalidMachining, got %v", err)
			}
		})
	}
}

func TestMachiningPasses(t *testing.T) {
	tests := []struct {
		depth, pass float64
		want        int
	}{
		{18, 6, 3},
		{18, 5, 4},
		{3, 6, 1},
	}
	for _, tt := range tests {
		m := MachiningSettings{CutDepth: tt.depth, PassDepth: tt.pass}
		if got := m.Passes(); got != tt.want {
			t.Errorf("Passes(%v/%v) = %d, want %d", tt.depth, tt.pass, got, tt.want)
		}
	}
}
