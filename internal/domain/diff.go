package domain

// ClusterDiff lists cluster keys that changed between two aggregation passes.
type ClusterDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// Empty reports whether nothing changed.
func (d ClusterDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffClusters compares two cluster sets by key. A cluster present in both is
// changed when its count or representative urgency differs. Added and Changed
// follow next's order, Removed follows prev's.
func DiffClusters(prev, next []Cluster) ClusterDiff {
	before := make(map[string]Cluster, len(prev))
	for _, c := range prev {
		before[c.Key] = c
	}
	after := make(map[string]struct{}, len(next))

	d := ClusterDiff{Added: []string{}, Removed: []string{}, Changed: []string{}}
	for _, c := range next {
		after[c.Key] = struct{}{}
		old, ok := before[c.Key]
		switch {
		case !ok:
			d.Added = append(d.Added, c.Key)
		case old.Count != c.Count || old.RepresentativeUrgency != c.RepresentativeUrgency:
			d.Changed = append(d.Changed, c.Key)
		}
	}
	for _, c := range prev {
		if _, ok := after[c.Key]; !ok {
			d.Removed = append(d.Removed, c.Key)
		}
	}
	return d
}
