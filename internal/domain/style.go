package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Scale holds the constants that turn a cluster count into marker size and
// heat intensity.
type Scale struct {
	BaseRadius     float64 `json:"baseRadius" yaml:"base_radius"`
	GrowthFactor   float64 `json:"growthFactor" yaml:"growth_factor"`
	ReferenceCount float64 `json:"referenceCount" yaml:"reference_count"`
}

var (
	// HeatmapScale sizes the translucent density circles.
	HeatmapScale = Scale{BaseRadius: 10, GrowthFactor: 6, ReferenceCount: 6}

	// MarkerScale sizes the lighter report markers.
	MarkerScale = Scale{BaseRadius: 6, GrowthFactor: 4, ReferenceCount: 6}
)

// Radius returns BaseRadius + sqrt(count)*GrowthFactor. Negative counts are
// treated as zero.
func (s Scale) Radius(count int) float64 {
	if count < 0 {
		count = 0
	}
	return s.BaseRadius + math.Sqrt(float64(count))*s.GrowthFactor
}

// Intensity returns count/ReferenceCount clamped to [0, 1]. When
// ReferenceCount is not positive, maxCountInSet is used as the reference;
// with no usable reference the intensity is 0.
func (s Scale) Intensity(count, maxCountInSet int) float64 {
	ref := s.ReferenceCount
	if ref <= 0 {
		ref = float64(maxCountInSet)
	}
	if ref <= 0 {
		return 0
	}
	return clamp01(float64(count) / ref)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// IntensityColor interpolates the heat ramp from orange (0) to red (1):
// rgba(255, round(100*(1-i)), 0, 0.6+0.3*i).
func IntensityColor(intensity float64) string {
	i := clamp01(intensity)
	green := int(math.Round(100 * (1 - i)))
	alpha := math.Round((0.6+0.3*i)*100) / 100
	return fmt.Sprintf("rgba(255, %d, 0, %s)", green, strconv.FormatFloat(alpha, 'f', -1, 64))
}

// FallbackColor is used for missing or unrecognized urgencies.
const FallbackColor = "#ff7b7b"

// ColorByUrgency maps an urgency to its marker color.
func ColorByUrgency(u Urgency) string {
	switch u {
	case UrgencyCritical:
		return "#ff0000"
	case UrgencyHigh:
		return "#ff5252"
	case UrgencyMedium:
		return "#ff7b7b"
	case UrgencyLow:
		return "#ffabab"
	default:
		return FallbackColor
	}
}

// FallbackIcon is used for unrecognized report types.
const FallbackIcon = "⚠️"

// IconByType maps a report type to its marker glyph.
func IconByType(t ReportType) string {
	switch t {
	case TypeFlood:
		return "🌊"
	case TypeEarthquake:
		return "🌋"
	case TypeFire:
		return "🔥"
	case TypeMedical:
		return "🚑"
	case TypeBlood:
		return "💉"
	default:
		return FallbackIcon
	}
}

// PopupLimit is how many members a cluster popup lists before "+N more".
const PopupLimit = 3

// Preview returns the first PopupLimit members of c and the number left out.
func Preview(c Cluster) (shown []EmergencyReport, more int) {
	n := min(len(c.Members), PopupLimit)
	shown = c.Members[:n:n]
	return shown, len(c.Members) - n
}
