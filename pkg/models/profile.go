package models

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// PanelProfile describes a physical panel type the device can drive
type PanelProfile struct {
	Type       int    `yaml:"type" json:"type"`
	Name       string `yaml:"name" json:"name"`
	Controller string `yaml:"controller" json:"controller"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
}

type profileFile struct {
	Panels []PanelProfile `yaml:"panels"`
}

// ParseProfiles decodes a YAML panel catalog
func ParseProfiles(data []byte) ([]PanelProfile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse panel profiles: %w", err)
	}

	for i, p := range file.Panels {
		if p.Type <= 0 {
			return nil, fmt.Errorf("panel profile %d: type must be positive, got %d", i, p.Type)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("panel profile %d: name is required", i)
		}
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("panel profile %s: invalid size %dx%d", p.Name, p.Width, p.Height)
		}
	}

	return file.Panels, nil
}

// LoadProfiles loads a YAML panel catalog from disk
func LoadProfiles(path string) ([]PanelProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read panel profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ProfileRegistry indexes panel profiles by display type
type ProfileRegistry struct {
	profiles map[int]*PanelProfile
}

// NewProfileRegistry creates a registry holding the built-in catalog
func NewProfileRegistry() *ProfileRegistry {
	r := &ProfileRegistry{
		profiles: make(map[int]*PanelProfile),
	}

	builtin, err := ParseProfiles(defaultProfiles)
	if err != nil {
		panic(fmt.Sprintf("models: built-in panel profiles are invalid: %v", err))
	}
	r.Add(builtin...)

	return r
}

// Add registers profiles, replacing any existing entry of the same type
func (r *ProfileRegistry) Add(profiles ...PanelProfile) {
	for i := range profiles {
		p := profiles[i]
		r.profiles[p.Type] = &p
	}
}

// LoadFile merges the profiles in a YAML file into the registry
func (r *ProfileRegistry) LoadFile(path string) error {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return err
	}
	r.Add(profiles...)
	return nil
}

// Get returns the profile for a display type
func (r *ProfileRegistry) Get(displayType int) (*PanelProfile, bool) {
	p, exists := r.profiles[displayType]
	return p, exists
}

// List returns all profiles ordered by type
func (r *ProfileRegistry) List() []*PanelProfile {
	profiles := make([]*PanelProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Type < profiles[j].Type
	})
	return profiles
}
