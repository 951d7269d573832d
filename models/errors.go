// models/errors.go - Domain error taxonomy
package models

import (
	"errors"
)

// Sentinel errors for the competition engine. Services wrap these with
// context via fmt.Errorf("...: %w", Err...); handlers map them to HTTP
// status codes. Anything not in the taxonomy is treated as a store error
// and surfaced as a 500.
var (
	ErrValidation       = errors.New("validation failed")
	ErrWindowClosed     = errors.New("window closed")
	ErrSelfRegistration = errors.New("organizer cannot register for own competition")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadySubmitted = errors.New("score already submitted")
	ErrQuizInUse        = errors.New("quiz is referenced by a published competition")
)
