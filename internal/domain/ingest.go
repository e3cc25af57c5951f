package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawMessage is an unprocessed report submission from the ingest topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseRawReport decodes a submission payload. A report without a timestamp
// takes the message time.
func ParseRawReport(raw RawMessage) (EmergencyReport, error) {
	var r EmergencyReport
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return EmergencyReport{}, fmt.Errorf("parse raw report: %w", err)
	}
	if r.Timestamp.IsZero() && !raw.Timestamp.IsZero() {
		r.Timestamp = raw.Timestamp.UTC()
	}
	return r, nil
}

// PrepareForStorage validates a submitted report and applies write-time
// defaults: status active and timestamp now. Urgency is left as submitted;
// a present urgency must be one of the four levels.
func PrepareForStorage(r EmergencyReport) (EmergencyReport, error) {
	if err := ValidateReport(r); err != nil {
		return EmergencyReport{}, err
	}
	if r.Urgency != "" && !r.Urgency.Valid() {
		return EmergencyReport{}, fmt.Errorf("%w: unknown urgency %q", ErrInvalidReport, r.Urgency)
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	if !r.Status.Valid() {
		return EmergencyReport{}, fmt.Errorf("%w: unknown status %q", ErrInvalidReport, r.Status)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = Now()
	}
	r.Description = strings.TrimSpace(r.Description)
	return r, nil
}

// ReportPatch is a partial update. Nil fields are left unchanged.
type ReportPatch struct {
	Type        *ReportType `json:"type,omitempty"`
	Description *string     `json:"description,omitempty"`
	Urgency     *Urgency    `json:"urgency,omitempty"`
	Status      *Status     `json:"status,omitempty"`
	Location    *Location   `json:"location,omitempty"`
}

// Normalize lowercases enum fields and folds status spellings.
func (p *ReportPatch) Normalize() {
	if p.Type != nil {
		t := ReportType(strings.ToLower(strings.TrimSpace(string(*p.Type))))
		p.Type = &t
	}
	if p.Urgency != nil {
		u := Urgency(strings.ToLower(strings.TrimSpace(string(*p.Urgency))))
		p.Urgency = &u
	}
	if p.Status != nil {
		s := NormalizeStatus(string(*p.Status))
		p.Status = &s
	}
}

// Empty reports whether the patch changes nothing.
func (p ReportPatch) Empty() bool {
	return p.Type == nil && p.Description == nil && p.Urgency == nil && p.Status == nil && p.Location == nil
}

// Validate checks every field the patch sets.
func (p ReportPatch) Validate() error {
	if p.Empty() {
		return fmt.Errorf("%w: empty update", ErrInvalidReport)
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidReport, *p.Type)
	}
	if p.Urgency != nil && !p.Urgency.Valid() {
		return fmt.Errorf("%w: unknown urgency %q", ErrInvalidReport, *p.Urgency)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidReport, *p.Status)
	}
	if p.Location != nil {
		candidate := EmergencyReport{Type: TypeOther, Location: *p.Location}
		if err := ValidateReport(candidate); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns r with the patch's fields set.
func (p ReportPatch) Apply(r EmergencyReport) EmergencyReport {
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if p.Urgency != nil {
		r.Urgency = *p.Urgency
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Location != nil {
		r.Location = *p.Location
	}
	return r
}
