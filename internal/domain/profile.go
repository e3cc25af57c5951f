package domain

import (
	"fmt"
)

// ColorMode selects how markers of a view are colored.
type ColorMode string

const (
	// ColorByUrgencyMode colors a marker by its representative urgency.
	ColorByUrgencyMode ColorMode = "urgency"
	// ColorByIntensityMode colors a marker on the heat ramp by its count.
	ColorByIntensityMode ColorMode = "intensity"
)

// ViewProfile is the clustering and styling configuration of one map view.
type ViewProfile struct {
	Name            string    `json:"name" yaml:"name"`
	Precision       int       `json:"precision" yaml:"precision"`
	PartitionByType bool      `json:"partitionByType" yaml:"partition_by_type"`
	ColorMode       ColorMode `json:"colorMode" yaml:"color_mode"`
	Scale           Scale     `json:"scale" yaml:"scale"`
}

const (
	HeatmapView = "heatmap"
	MarkersView = "markers"
)

// DefaultProfiles returns the built-in views: a merged heatmap on a ~111 m
// grid and per-type markers on a ~11 m grid.
func DefaultProfiles() []ViewProfile {
	return []ViewProfile{
		{
			Name:            HeatmapView,
			Precision:       3,
			PartitionByType: false,
			ColorMode:       ColorByIntensityMode,
			Scale:           HeatmapScale,
		},
		{
			Name:            MarkersView,
			Precision:       4,
			PartitionByType: true,
			ColorMode:       ColorByUrgencyMode,
			Scale:           MarkerScale,
		},
	}
}

// Validate checks that the profile can be used for aggregation.
func (p ViewProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if err := checkPrecision(p.Precision); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidProfile, p.Name, err)
	}
	if p.Scale.BaseRadius < 0 || p.Scale.GrowthFactor < 0 {
		return fmt.Errorf("%w: %s: radius constants must not be negative", ErrInvalidProfile, p.Name)
	}
	switch p.ColorMode {
	case ColorByUrgencyMode, ColorByIntensityMode:
	default:
		return fmt.Errorf("%w: %s: unknown color mode %q", ErrInvalidProfile, p.Name, p.ColorMode)
	}
	return nil
}

// Aggregate clusters reports with the profile's precision and partitioning.
func (p ViewProfile) Aggregate(reports []EmergencyReport) ([]Cluster, error) {
	return Aggregate(reports, p.Precision, p.PartitionByType)
}

// FindProfile returns the profile with the given name.
func FindProfile(profiles []ViewProfile, name string) (ViewProfile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return ViewProfile{}, false
}
