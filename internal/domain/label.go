package domain

import (
	"context"
	"log/slog"
)

// LabelMarkers sets each marker's Label to the reverse-geocoded place name of
// its rounded location. Markers are modified in place. A nil geocoder is a
// no-op; lookup failures leave the label empty and are logged.
//
// Labelling stops early when ctx is done. It returns the number of markers
// that received a label.
func LabelMarkers(ctx context.Context, markers []Marker, geocoder Geocoder, logger *slog.Logger) int {
	if geocoder == nil {
		return 0
	}

	labelled := 0
	for i := range markers {
		if ctx.Err() != nil {
			break
		}
		m := &markers[i]
		result, err := geocoder.ReverseGeocode(ctx, m.Lat, m.Lng)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"cluster_key", m.Key,
				"lat", m.Lat,
				"lng", m.Lng,
				"error", err,
			)
			continue
		}
		switch {
		case result.PlaceName != "":
			m.Label = result.PlaceName
		case result.FormattedAddress != "":
			m.Label = result.FormattedAddress
		default:
			continue
		}
		labelled++
	}
	return labelled
}
