package dpexport

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile carries the data model constants stamped into exported packages.
type Profile struct {
	Author            string `yaml:"author"`
	ModelName         string `yaml:"model_name"`
	ModelVersion      string `yaml:"model_version"`
	UpdateCycle       int    `yaml:"update_cycle"`
	CalculationPeriod int    `yaml:"calculation_period"`
	DefaultNamingRule string `yaml:"default_naming_rule"`
}

// DefaultProfile returns the built-in hs4 profile.
func DefaultProfile() Profile {
	return Profile{
		Author:            "Uangel",
		ModelName:         "hs4_profile",
		ModelVersion:      "1.0",
		UpdateCycle:       15,
		CalculationPeriod: 3600,
		DefaultNamingRule: "hs4sd_v1",
	}
}

// LoadProfile reads a YAML profile from path. An empty path returns the
// built-in defaults; fields absent from the file keep their defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("dpexport: read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("dpexport: parse profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return profile, err
	}
	return profile, nil
}

// Validate checks the profile fields.
func (p Profile) Validate() error {
	if p.Author == "" {
		return fmt.Errorf("dpexport: profile without author")
	}
	if p.ModelName == "" || p.ModelVersion == "" {
		return fmt.Errorf("dpexport: profile without model identity")
	}
	if p.UpdateCycle <= 0 || p.CalculationPeriod <= 0 {
		return fmt.Errorf("dpexport: profile cycle values must be positive")
	}
	return nil
}
