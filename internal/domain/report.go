package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ReportType classifies what kind of emergency a report describes.
type ReportType string

const (
	TypeFlood      ReportType = "flood"
	TypeEarthquake ReportType = "earthquake"
	TypeFire       ReportType = "fire"
	TypeMedical    ReportType = "medical"
	TypeBlood      ReportType = "blood"
	TypeOther      ReportType = "other"
)

// ReportTypes lists every valid report type in display order.
var ReportTypes = []ReportType{TypeFlood, TypeEarthquake, TypeFire, TypeMedical, TypeBlood, TypeOther}

// Valid reports whether t is one of the fixed report types.
func (t ReportType) Valid() bool {
	switch t {
	case TypeFlood, TypeEarthquake, TypeFire, TypeMedical, TypeBlood, TypeOther:
		return true
	default:
		return false
	}
}

// Urgency is the ordered criticality of a report.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// DefaultUrgency stands in for a missing urgency when clusters are ranked.
const DefaultUrgency = UrgencyMedium

// Rank orders urgencies low=1 .. critical=4. Unknown values rank 0.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	case UrgencyCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether u is one of the four urgency levels.
func (u Urgency) Valid() bool { return u.Rank() > 0 }

// Status is the lifecycle state of a report.
type Status string

const (
	StatusActive     Status = "active"
	StatusResolved   Status = "resolved"
	StatusFalseAlarm Status = "false_alarm"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusResolved, StatusFalseAlarm:
		return true
	default:
		return false
	}
}

// Location is a WGS-84 point. Either coordinate may be absent in stored data.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NewLocation returns a Location with both coordinates set.
func NewLocation(lat, lng float64) Location {
	return Location{Latitude: &lat, Longitude: &lng}
}

// UnmarshalJSON accepts both {latitude, longitude} and the older {lat, lng}.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Latitude = raw.Latitude
	if l.Latitude == nil {
		l.Latitude = raw.Lat
	}
	l.Longitude = raw.Longitude
	if l.Longitude == nil {
		l.Longitude = raw.Lng
	}
	return nil
}

// EmergencyReport is a single citizen report as supplied by the report source.
type EmergencyReport struct {
	ID          string     `json:"_id"`
	Type        ReportType `json:"type"`
	Location    Location   `json:"location"`
	Urgency     Urgency    `json:"urgency,omitempty"`
	Description string     `json:"description,omitempty"`
	UserID      string     `json:"userId,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Status      Status     `json:"status"`
}

// UnmarshalJSON decodes a report, folding the legacy "severity" field into
// Urgency and normalizing status spelling.
func (r *EmergencyReport) UnmarshalJSON(data []byte) error {
	type plain EmergencyReport
	var raw struct {
		plain
		LegacyID string  `json:"id"`
		Severity Urgency `json:"severity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = EmergencyReport(raw.plain)
	if r.ID == "" {
		r.ID = raw.LegacyID
	}
	if r.Urgency == "" {
		r.Urgency = raw.Severity
	}
	r.Urgency = Urgency(strings.ToLower(strings.TrimSpace(string(r.Urgency))))
	r.Type = ReportType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	r.Status = NormalizeStatus(string(r.Status))
	return nil
}

// NormalizeStatus maps free-form status spellings onto Status values.
// "false alarm" and "false-alarm" become false_alarm; unknown values are kept.
func NormalizeStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return Status(s)
}

// EffectiveUrgency is the urgency used for ranking: the report's own value, or
// DefaultUrgency when it is missing or unrecognized.
func (r EmergencyReport) EffectiveUrgency() Urgency {
	if r.Urgency.Valid() {
		return r.Urgency
	}
	return DefaultUrgency
}

// Coordinates returns the report's latitude and longitude. ok is false when
// either coordinate is absent.
func (r EmergencyReport) Coordinates() (lat, lng float64, ok bool) {
	if r.Location.Latitude == nil || r.Location.Longitude == nil {
		return 0, 0, false
	}
	return *r.Location.Latitude, *r.Location.Longitude, true
}

// ValidateReport checks that a report can be placed on the map: both
// coordinates present, finite and in range, and a known type. The returned
// error wraps ErrInvalidReport.
func ValidateReport(r EmergencyReport) error {
	lat, lng, ok := r.Coordinates()
	if !ok {
		return fmt.Errorf("%w: missing coordinates", ErrInvalidReport)
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return fmt.Errorf("%w: non-finite coordinates", ErrInvalidReport)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %g out of range", ErrInvalidReport, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %g out of range", ErrInvalidReport, lng)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidReport, r.Type)
	}
	return nil
}

// ActiveOnly returns the reports whose status is active, in source order.
func ActiveOnly(reports []EmergencyReport) []EmergencyReport {
	out := make([]EmergencyReport, 0, len(reports))
	for _, r := range reports {
		if r.Status == StatusActive {
			out = append(out, r)
		}
	}
	return out
}
