package model

import "errors"

// Sentinel errors shared by the store and service layers. The API layer maps
// them onto HTTP statuses in respond.WriteServiceError; everything else wraps
// them with %w and context.
var (
	// ErrNotFound reports a missing user, task or template.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports a request that fails domain validation, such as
	// an unknown task status or a negative duration.
	ErrValidation = errors.New("validation error")

	// ErrConflict reports a uniqueness violation, in practice a second
	// occurrence materialized for the same (template, date).
	ErrConflict = errors.New("conflict")
)
