package domain

import "time"

// ReportSummary is the popup line for one cluster member.
type ReportSummary struct {
	ID          string     `json:"id"`
	Type        ReportType `json:"type"`
	Urgency     Urgency    `json:"urgency,omitempty"`
	Description string     `json:"description,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Marker is a styled cluster ready to be drawn.
type Marker struct {
	Key       string          `json:"key"`
	Lat       float64         `json:"lat"`
	Lng       float64         `json:"lng"`
	Type      ReportType      `json:"type"`
	Count     int             `json:"count"`
	Urgency   Urgency         `json:"urgency"`
	Radius    float64         `json:"radius"`
	Intensity float64         `json:"intensity"`
	Color     string          `json:"color"`
	Icon      string          `json:"icon"`
	Preview   []ReportSummary `json:"preview"`
	More      int             `json:"more"`
	Label     string          `json:"label,omitempty"`
}

// BuildMarkers styles clusters for the given view. Output order follows
// clusters.
func BuildMarkers(clusters []Cluster, p ViewProfile) []Marker {
	maxCount := 0
	for _, c := range clusters {
		maxCount = max(maxCount, c.Count)
	}

	markers := make([]Marker, 0, len(clusters))
	for _, c := range clusters {
		shown, more := Preview(c)
		preview := make([]ReportSummary, 0, len(shown))
		for _, r := range shown {
			preview = append(preview, ReportSummary{
				ID:          r.ID,
				Type:        r.Type,
				Urgency:     r.Urgency,
				Description: r.Description,
				Timestamp:   r.Timestamp,
			})
		}

		intensity := p.Scale.Intensity(c.Count, maxCount)
		color := ColorByUrgency(c.RepresentativeUrgency)
		if p.ColorMode == ColorByIntensityMode {
			color = IntensityColor(intensity)
		}
		typ := c.DominantType()

		markers = append(markers, Marker{
			Key:       c.Key,
			Lat:       c.Lat,
			Lng:       c.Lng,
			Type:      typ,
			Count:     c.Count,
			Urgency:   c.RepresentativeUrgency,
			Radius:    p.Scale.Radius(c.Count),
			Intensity: intensity,
			Color:     color,
			Icon:      IconByType(typ),
			Preview:   preview,
			More:      more,
		})
	}
	return markers
}
