package services

import "errors"

// Service error taxonomy. Handlers translate these to HTTP statuses; nothing
// below the handler layer speaks HTTP.
var (
	// ErrNotFound covers a record that is absent, present but owned by
	// someone else, or a failed capability check. The three cases are
	// deliberately indistinguishable so callers cannot probe for existence.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is structurally invalid input: mismatched ids, missing
	// required identifiers.
	ErrBadRequest = errors.New("bad request")

	// ErrConflict is an optimistic version clash. The caller can re-fetch
	// and retry.
	ErrConflict = errors.New("conflict")

	// ErrInternal is a persistence failure after validation passed.
	ErrInternal = errors.New("internal error")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrEmailTaken         = errors.New("email already registered")
)
