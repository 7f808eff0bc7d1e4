package services

import "errors"

// Handlers map these onto status codes. Any other error is a backend failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)
