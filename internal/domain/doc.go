// Package domain models citizen emergency reports and the map clusters derived
// from them.
//
// # Reports
//
// Reports are submitted from the Durjog report form (or the ingest topic) and
// stored by the report source. Each carries a point location, a type from a
// fixed set and an optional urgency:
//
//	type:    flood | earthquake | fire | medical | blood | other
//	urgency: low < medium < high < critical   (may be absent)
//	status:  active | resolved | false_alarm
//
// Two historical payload shapes are accepted. The report form sends
// {"location": {"latitude", "longitude"}, "urgency"}; the older emergencies
// route sent {"location": {"lat", "lng"}, "severity"}. Both decode into the
// same [EmergencyReport]. The spelling "false alarm" is read as false_alarm.
//
// A missing urgency is never filled in when a report is written. It is read as
// medium only when a cluster's representative urgency is computed.
//
// # Clustering
//
// [Aggregate] groups reports on a rounded-coordinate grid:
//
//	precision 3  →  ~111 m cells at the equator
//	precision 4  →  ~11 m cells
//
// Rounding is decimal half-away-from-zero on the shortest decimal form of each
// coordinate, so 23.7925 rounds to 23.793 at precision 3 even though the
// nearest float64 sits just below the midpoint. Reports with missing or
// out-of-range coordinates, or an unknown type, are skipped.
//
// Clusters are recomputed from the full report set on every pass and are never
// mutated afterwards. Key order, member order and counts depend only on the
// input order.
//
// # Styling
//
// [Scale] turns cluster counts into marker radii and heat intensity,
// [ColorByUrgency] and [IconByType] map report attributes to display values.
// [ViewProfile] bundles the grid precision, type partitioning, color mode and
// scale for one map view; [DefaultProfiles] holds the heatmap and marker views.
package domain
