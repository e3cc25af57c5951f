package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/durjog/durjog-map/internal/domain"
	"gopkg.in/yaml.v3"
)

type profilesFile struct {
	Views []domain.ViewProfile `yaml:"views"`
}

// LoadViewProfiles returns the built-in view profiles, or the profiles listed
// in the YAML file at path when path is non-empty. Every profile is validated
// and names must be unique.
func LoadViewProfiles(path string) ([]domain.ViewProfile, error) {
	if path == "" {
		return domain.DefaultProfiles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read view profiles: %w", err)
	}
	return ParseViewProfiles(data)
}

// ParseViewProfiles decodes a YAML document of the form:
//
//	views:
//	  - name: heatmap
//	    precision: 3
//	    partition_by_type: false
//	    color_mode: intensity
//	    scale: {base_radius: 10, growth_factor: 6, reference_count: 6}
func ParseViewProfiles(data []byte) ([]domain.ViewProfile, error) {
	var f profilesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode view profiles: %w", err)
	}
	if len(f.Views) == 0 {
		return nil, errors.New("view profiles file lists no views")
	}

	seen := make(map[string]bool, len(f.Views))
	for _, p := range f.Views {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate view %q", domain.ErrInvalidProfile, p.Name)
		}
		seen[p.Name] = true
	}
	return f.Views, nil
}
