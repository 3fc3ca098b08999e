package common

import "errors"

var (
	// ErrValidation marks malformed input: bad credential strings, broken envelopes, bad request fields.
	ErrValidation = errors.New("validation error")

	// ErrIntegrity marks authenticated decryption failures. No plaintext accompanies it.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrConfiguration marks missing or malformed secrets. It is fatal at construction.
	ErrConfiguration = errors.New("configuration error")

	// storage errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// service errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
