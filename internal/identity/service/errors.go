package service

import "errors"

// Error taxonomy shared by every service. HTTP handlers map these onto
// status codes; services never touch net/http themselves.
var (
	// ErrUnauthorized covers bad credentials, unknown/expired/revoked
	// refresh tokens and failed ceremonies. Deliberately coarse so callers
	// can't distinguish "wrong password" from "no such user".
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the caller is authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation means the request itself is malformed.
	ErrValidation = errors.New("validation failed")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrRefreshReuse is returned when a refresh token that has already
	// been rotated away is presented against a live session. The session
	// has been revoked by the time the caller sees this.
	ErrRefreshReuse = errors.New("refresh token reuse detected")

	// ErrSignCountRegression is returned when an assertion's sign counter
	// did not advance, which suggests a cloned authenticator.
	ErrSignCountRegression = errors.New("authenticator sign count regression")

	// ErrMFARequired is returned by Login when the account has TOTP
	// enabled and no (or a wrong) code was supplied.
	ErrMFARequired = errors.New("mfa code required")
)
