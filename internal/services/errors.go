package services

import "errors"

var (
	// ErrValidation marks caller mistakes (bad input, bad state transition)
	// so handlers can map them to 400 instead of 500.
	ErrValidation = errors.New("validation failed")

	// ErrZeroVector is returned when a similarity computation receives a
	// zero-magnitude vector, for which cosine similarity is undefined.
	ErrZeroVector = errors.New("zero-magnitude vector")
)
