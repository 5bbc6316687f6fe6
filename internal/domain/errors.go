package domain

import "errors"

var (
	// ErrInvalidJSON means the request body is not syntactically valid JSON.
	ErrInvalidJSON = errors.New("Invalid JSON input") //nolint:staticcheck // message is part of the CLI output contract

	// ErrInvalidObservation covers well-formed JSON that is not a usable observation.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrUnknownFeature is returned for keys outside the recognised feature set.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrNonFinite is returned for NaN or infinite values.
	ErrNonFinite = errors.New("non-finite value")
)
