package domain

import (
	"slices"
	"time"
)

// Snapshot is the result of one refresh pass: every view aggregated from the
// same set of reports.
type Snapshot struct {
	ID          string                  `json:"id"`
	Seq         uint64                  `json:"seq"`
	TakenAt     time.Time               `json:"takenAt"`
	ReportCount int                     `json:"reportCount"`
	Dropped     int                     `json:"dropped"`
	Views       map[string]ViewSnapshot `json:"views"`
}

// ViewSnapshot holds the clusters of one view and how they changed since the
// snapshot this one replaced.
type ViewSnapshot struct {
	Profile  ViewProfile `json:"profile"`
	Clusters []Cluster   `json:"clusters"`
	Markers  []Marker    `json:"markers"`
	Diff     ClusterDiff `json:"diff"`
}

// View returns the named view.
func (s *Snapshot) View(name string) (ViewSnapshot, bool) {
	if s == nil {
		return ViewSnapshot{}, false
	}
	v, ok := s.Views[name]
	return v, ok
}

// ChangedViews returns the names of views whose clusters differ from the
// snapshot this one replaced, in name order.
func (s *Snapshot) ChangedViews() []string {
	if s == nil {
		return nil
	}
	changed := make([]string, 0, len(s.Views))
	for name, v := range s.Views {
		if !v.Diff.Empty() {
			changed = append(changed, name)
		}
	}
	slices.Sort(changed)
	return changed
}
