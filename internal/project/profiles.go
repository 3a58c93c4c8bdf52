package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/SlabNest/internal/model"
)

// DefaultProfilesPath returns ~/.slabnest/profiles.json.
func DefaultProfilesPath() string {
	return filepath.Join(DefaultConfigDir(), "profiles.json")
}

// SaveCustomProfiles writes the user's post-processors to path.
func SaveCustomProfiles(path string, profiles []model.GCodeProfile) error {
	return writeJSON(path, profiles)
}

// LoadCustomProfiles reads the profiles saved at path, or none if the file
// does not exist. Loaded profiles are never built in.
func LoadCustomProfiles(path string) ([]model.GCodeProfile, error) {
	profiles := []model.GCodeProfile{}
	if _, err := readJSON(path, &profiles); err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i].IsBuiltIn = false
	}
	return profiles, nil
}

// LoadProfileSet wraps the custom profiles stored at path.
func LoadProfileSet(path string) (model.ProfileSet, error) {
	custom, err := LoadCustomProfiles(path)
	if err != nil {
		return model.ProfileSet{}, fmt.Errorf("load profiles: %w", err)
	}
	return model.ProfileSet{Custom: custom}, nil
}

// ExportProfile writes a single profile for sharing.
func ExportProfile(path string, profile model.GCodeProfile) error {
	profile.IsBuiltIn = false
	return writeJSON(path, profile)
}

// ImportProfile reads a profile written by ExportProfile.
func ImportProfile(path string) (model.GCodeProfile, error) {
	var profile model.GCodeProfile
	found, err := readJSON(path, &profile)
	if err == nil && !found {
		err = os.ErrNotExist
	}
	if err != nil {
		return model.GCodeProfile{}, fmt.Errorf("import profile: %w", err)
	}
	if profile.Name == "" {
		return model.GCodeProfile{}, errors.New("imported profile has no name")
	}
	profile.IsBuiltIn = false
	return profile, nil
}
