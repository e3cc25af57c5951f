package http

import (
	"time"

	"github.com/durjog/durjog-map/internal/domain"
)

type featureCollection struct {
	Type     string         `json:"type"`
	Features []feature      `json:"features"`
	Meta     collectionMeta `json:"meta"`
}

type collectionMeta struct {
	SnapshotID string    `json:"snapshotId"`
	TakenAt    time.Time `json:"takenAt"`
	View       string    `json:"view"`
}

type feature struct {
	Type       string        `json:"type"`
	ID         string        `json:"id"`
	Geometry   pointGeometry `json:"geometry"`
	Properties domain.Marker `json:"properties"`
}

type pointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// toFeatureCollection renders markers as GeoJSON points. Coordinates are in
// [lng, lat] order.
func toFeatureCollection(snap *domain.Snapshot, view string, markers []domain.Marker) featureCollection {
	features := make([]feature, 0, len(markers))
	for _, m := range markers {
		features = append(features, feature{
			Type: "Feature",
			ID:   m.Key,
			Geometry: pointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{m.Lng, m.Lat},
			},
			Properties: m,
		})
	}
	return featureCollection{
		Type:     "FeatureCollection",
		Features: features,
		Meta: collectionMeta{
			SnapshotID: snap.ID,
			TakenAt:    snap.TakenAt,
			View:       view,
		},
	}
}
