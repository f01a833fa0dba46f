package domain

import "errors"

var (
	// ErrMalformedGeometry marks a scan or grid whose dimensions cannot be binned.
	ErrMalformedGeometry = errors.New("malformed geometry")

	// ErrMissingVariable marks a scan file lacking a required array.
	ErrMissingVariable = errors.New("missing variable")

	// ErrNoSuccessfulFiles is returned by reduction when no file produced a histogram.
	ErrNoSuccessfulFiles = errors.New("no successful files")
)
