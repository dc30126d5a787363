package models

import "errors"

// Error taxonomy shared across the service layers. Storage and broker
// failures are deliberately decoupled: reconciliation errors always surface
// to the caller, delivery failures never do.
var (
	// ErrInvalidAssertion means the inbound identity claims are
	// unverifiable or missing the required email field.
	ErrInvalidAssertion = errors.New("identity assertion invalid")

	// ErrNotFound means an operation referenced a user that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned by the user store when an insert hits
	// the email uniqueness constraint. Reconciliation recovers from it by
	// re-reading the winning record.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrStorageUnavailable wraps transient storage failures. The caller
	// may retry the whole request.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrTokenInvalid means a session token failed signature or subject
	// verification.
	ErrTokenInvalid = errors.New("session token invalid")

	// ErrTokenExpired is the well-formed-but-expired sub-case of an invalid
	// token, kept distinct for logging.
	ErrTokenExpired = errors.New("session token expired")
)
