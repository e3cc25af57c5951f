package domain

// Cluster is a group of reports sharing a rounded location, and in
// type-partitioned mode, a report type.
type Cluster struct {
	Key                   string            `json:"key"`
	Lat                   float64           `json:"lat"`
	Lng                   float64           `json:"lng"`
	Type                  ReportType        `json:"type,omitempty"` // set only when partitioned by type
	Count                 int               `json:"count"`
	Members               []EmergencyReport `json:"members"`
	RepresentativeUrgency Urgency           `json:"representativeUrgency"`
}

// Aggregate groups reports into clusters on a grid of the given decimal
// precision. When partitionByType is set, reports of different types in the
// same cell form separate clusters.
//
// Invalid reports (see ValidateReport) are skipped silently; callers that want
// to log drops should validate first. Status is not filtered here. Clusters
// are returned in the order their key was first seen, members in input order.
// A precision outside 0..MaxPrecision returns ErrInvalidPrecision.
func Aggregate(reports []EmergencyReport, precision int, partitionByType bool) ([]Cluster, error) {
	if err := checkPrecision(precision); err != nil {
		return nil, err
	}

	clusters := make([]Cluster, 0)
	index := make(map[string]int)

	for _, r := range reports {
		if ValidateReport(r) != nil {
			continue
		}
		lat, lng, _ := r.Coordinates()
		rLat, latKey := roundCoordinate(lat, precision)
		rLng, lngKey := roundCoordinate(lng, precision)

		key := latKey + "_" + lngKey
		if partitionByType {
			key += "|" + string(r.Type)
		}

		i, ok := index[key]
		if !ok {
			c := Cluster{Key: key, Lat: rLat, Lng: rLng}
			if partitionByType {
				c.Type = r.Type
			}
			clusters = append(clusters, c)
			i = len(clusters) - 1
			index[key] = i
		}
		clusters[i].Members = append(clusters[i].Members, r)
	}

	for i := range clusters {
		clusters[i].Count = len(clusters[i].Members)
		clusters[i].RepresentativeUrgency = maxUrgency(clusters[i].Members)
	}
	return clusters, nil
}

// maxUrgency returns the highest effective urgency among members.
func maxUrgency(members []EmergencyReport) Urgency {
	best := Urgency("")
	for _, m := range members {
		u := m.EffectiveUrgency()
		if u.Rank() > best.Rank() {
			best = u
		}
	}
	return best
}

// DominantType returns the most frequent type among a cluster's members,
// breaking ties by first appearance. Partitioned clusters return their Type.
func (c Cluster) DominantType() ReportType {
	if c.Type != "" {
		return c.Type
	}
	counts := make(map[ReportType]int, len(ReportTypes))
	var best ReportType
	for _, m := range c.Members {
		counts[m.Type]++
		if best == "" || counts[m.Type] > counts[best] {
			best = m.Type
		}
	}
	return best
}
