package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMarkers_MarkersView(t *testing.T) {
	p, ok := FindProfile(DefaultProfiles(), MarkersView)
	require.True(t, ok)

	clusters, err := p.Aggregate(exampleReports())
	require.NoError(t, err)

	markers := BuildMarkers(clusters, p)
	require.Len(t, markers, 2)

	flood := markers[0]
	assert.Equal(t, "23.7925_90.4155|flood", flood.Key)
	assert.Equal(t, TypeFlood, flood.Type)
	assert.Equal(t, 2, flood.Count)
	assert.Equal(t, UrgencyCritical, flood.Urgency)
	assert.Equal(t, "#ff0000", flood.Color)
	assert.Equal(t, "🌊", flood.Icon)
	assert.InDelta(t, 6+1.4142135*4, flood.Radius, 1e-6)
	assert.InDelta(t, 2.0/6, flood.Intensity, 1e-9)
	assert.Len(t, flood.Preview, 2)
	assert.Equal(t, 0, flood.More)

	fire := markers[1]
	assert.Equal(t, "#ffabab", fire.Color)
	assert.Equal(t, "🔥", fire.Icon)
}

func TestBuildMarkers_HeatmapView(t *testing.T) {
	p, ok := FindProfile(DefaultProfiles(), HeatmapView)
	require.True(t, ok)

	reports := make([]EmergencyReport, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		reports = append(reports, report(id, 23.7925, 90.4155, TypeFlood, UrgencyLow))
	}
	reports = append(reports, report("g", 23.7925, 90.4155, TypeFire, UrgencyLow))

	clusters, err := p.Aggregate(reports)
	require.NoError(t, err)
	markers := BuildMarkers(clusters, p)
	require.Len(t, markers, 1)

	m := markers[0]
	assert.Equal(t, "23.793_90.416", m.Key)
	assert.Equal(t, TypeFlood, m.Type, "dominant member type")
	assert.Equal(t, 7, m.Count)
	assert.Equal(t, 1.0, m.Intensity)
	assert.Equal(t, "rgba(255, 0, 0, 0.9)", m.Color)
	assert.Len(t, m.Preview, PopupLimit)
	assert.Equal(t, 4, m.More)
	assert.Equal(t, "a", m.Preview[0].ID)
}

func TestBuildMarkers_Empty(t *testing.T) {
	markers := BuildMarkers(nil, DefaultProfiles()[0])
	assert.NotNil(t, markers)
	assert.Empty(t, markers)
}

func TestViewProfile_Validate(t *testing.T) {
	for _, p := range DefaultProfiles() {
		assert.NoError(t, p.Validate(), p.Name)
	}

	tests := []struct {
		name   string
		mutate func(p *ViewProfile)
	}{
		{"no name", func(p *ViewProfile) { p.Name = "" }},
		{"negative precision", func(p *ViewProfile) { p.Precision = -2 }},
		{"precision too fine", func(p *ViewProfile) { p.Precision = 1 << 33 }},
		{"negative radius", func(p *ViewProfile) { p.Scale.BaseRadius = -1 }},
		{"unknown color mode", func(p *ViewProfile) { p.ColorMode = "rainbow" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfiles()[1]
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
		})
	}

	p := DefaultProfiles()[0]
	p.Precision = -1
	assert.ErrorIs(t, p.Validate(), ErrInvalidPrecision)
	p.Precision = MaxPrecision + 1
	assert.ErrorIs(t, p.Validate(), ErrInvalidPrecision)
}

func TestFindProfile(t *testing.T) {
	_, ok := FindProfile(DefaultProfiles(), "satellite")
	assert.False(t, ok)

	p, ok := FindProfile(DefaultProfiles(), HeatmapView)
	require.True(t, ok)
	assert.Equal(t, 3, p.Precision)
	assert.False(t, p.PartitionByType)
}
