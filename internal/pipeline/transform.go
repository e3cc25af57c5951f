package pipeline

import (
	"context"

	"github.com/durjog/durjog-map/internal/domain"
)

// ReportTransformer implements Transformer for report submissions.
type ReportTransformer struct{}

// NewTransformer creates a ReportTransformer.
func NewTransformer() *ReportTransformer {
	return &ReportTransformer{}
}

// Transform parses and validates a submission. The message key becomes the
// report id when the payload carries none, so a redelivered message maps to
// the same stored document.
func (t *ReportTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.EmergencyReport, error) {
	r, err := domain.ParseRawReport(raw)
	if err != nil {
		return domain.EmergencyReport{}, err
	}
	if r.ID == "" && len(raw.Key) > 0 {
		r.ID = string(raw.Key)
	}
	return domain.PrepareForStorage(r)
}
