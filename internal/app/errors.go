package app

import "errors"

var (
	// ErrValidation indicates missing or inconsistent submission fields.
	ErrValidation = errors.New("invalid request")
	// ErrInvalidCredentials indicates a failed login or signup credential check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the caller may not act on this resource.
	ErrForbidden = errors.New("forbidden")
)
