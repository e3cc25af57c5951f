package domain

import "errors"

var (
	// ErrInvalidPrecision is returned when a rounding precision is negative or
	// beyond MaxPrecision.
	ErrInvalidPrecision = errors.New("invalid precision")

	// ErrInvalidReport marks a report that cannot be placed on the map or stored.
	ErrInvalidReport = errors.New("invalid report")

	// ErrReportNotFound is returned by report sources for unknown ids.
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidProfile is returned by ViewProfile.Validate.
	ErrInvalidProfile = errors.New("invalid view profile")
)
