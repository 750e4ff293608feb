// Package webauthnx implements the pieces of the WebAuthn ceremony the
// identity service needs: client-data checks, authenticator-data parsing,
// attestation-object decoding and assertion signature verification.
//
// State (challenges, credentials, sign counters) deliberately lives with the
// caller; this package only knows how to parse and verify the wire formats.
package webauthnx

import "errors"

var (
	ErrMalformedClientData  = errors.New("webauthnx: malformed client data")
	ErrCeremonyTypeMismatch = errors.New("webauthnx: ceremony type mismatch")
	ErrChallengeMismatch    = errors.New("webauthnx: challenge mismatch")
	ErrOriginMismatch       = errors.New("webauthnx: origin mismatch")

	ErrMalformedAuthData = errors.New("webauthnx: malformed authenticator data")
	ErrRPIDHashMismatch  = errors.New("webauthnx: rpId hash mismatch")
	ErrUserNotPresent    = errors.New("webauthnx: user-present flag not set")
	ErrNoCredentialData  = errors.New("webauthnx: no attested credential data")

	ErrMalformedAttestation = errors.New("webauthnx: malformed attestation object")
	ErrUnsupportedKey       = errors.New("webauthnx: unsupported credential key")
	ErrInvalidSignature     = errors.New("webauthnx: invalid assertion signature")
)

// Ceremony types carried in clientDataJSON.
const (
	CeremonyCreate = "webauthn.create"
	CeremonyGet    = "webauthn.get"
)
