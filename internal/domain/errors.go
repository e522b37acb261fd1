package domain

import "errors"

var (
	// ErrMissingSample is returned when a raw soil sample lacks a depth band,
	// or a point reading is not a finite number.
	ErrMissingSample = errors.New("missing sample")

	// ErrSampleOutOfRange is returned when a soil fraction falls outside [0, 1].
	ErrSampleOutOfRange = errors.New("sample out of range")

	// ErrIncompleteProfile is returned when a location profile lacks a required
	// numeric field. Comparison aborts for every region, not just one.
	ErrIncompleteProfile = errors.New("incomplete location profile")

	// ErrInvalidCatalog is returned for an empty or malformed region catalog.
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrInvalidCoordinates is returned for a latitude or longitude outside
	// WGS-84 bounds.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrNoData is returned by point samplers when the coordinates fall outside
	// covered territory or over water.
	ErrNoData = errors.New("no data available for location")
)
