package webauthnx

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"

	"github.com/google/uuid"
)

// Authenticator data flag bits.
const (
	FlagUserPresent        byte = 1 << 0 // UP
	FlagUserVerified       byte = 1 << 2 // UV
	FlagAttestedCredential byte = 1 << 6 // AT
	FlagExtensionData      byte = 1 << 7 // ED
)

// AuthenticatorData is the parsed binary authData structure.
type AuthenticatorData struct {
	RPIDHash  []byte // sha256 of the relying party id
	Flags     byte
	SignCount uint32

	// Attested credential data, only present when FlagAttestedCredential
	// is set (registration ceremonies).
	AAGUID        uuid.UUID
	CredentialID  []byte
	PublicKeyCOSE []byte // raw CBOR, parse with ParseCOSEPublicKey
}

const (
	authDataMinLen  = 32 + 1 + 4
	credentialIDMax = 1023
)

// ParseAuthenticatorData decodes the fixed header and, when present, the
// attested credential data block.
func ParseAuthenticatorData(raw []byte) (AuthenticatorData, error) {
	if len(raw) < authDataMinLen {
		return AuthenticatorData{}, ErrMalformedAuthData
	}

	ad := AuthenticatorData{
		RPIDHash:  raw[:32],
		Flags:     raw[32],
		SignCount: binary.BigEndian.Uint32(raw[33:37]),
	}

	if ad.Flags&FlagAttestedCredential == 0 {
		return ad, nil
	}

	rest := raw[authDataMinLen:]
	if len(rest) < 16+2 {
		return AuthenticatorData{}, ErrMalformedAuthData
	}

	aaguid, err := uuid.FromBytes(rest[:16])
	if err != nil {
		return AuthenticatorData{}, ErrMalformedAuthData
	}
	ad.AAGUID = aaguid

	idLen := int(binary.BigEndian.Uint16(rest[16:18]))
	if idLen == 0 || idLen > credentialIDMax || len(rest) < 18+idLen {
		return AuthenticatorData{}, ErrMalformedAuthData
	}
	ad.CredentialID = rest[18 : 18+idLen]

	// The remainder is the COSE public key (possibly followed by extension
	// data, which the CBOR decoder handles by reading only the first item).
	ad.PublicKeyCOSE = rest[18+idLen:]
	if len(ad.PublicKeyCOSE) == 0 {
		return AuthenticatorData{}, ErrMalformedAuthData
	}

	return ad, nil
}

// VerifyRPIDHash confirms authData was produced for the given relying
// party id.
func (ad AuthenticatorData) VerifyRPIDHash(rpID string) error {
	want := sha256.Sum256([]byte(rpID))
	if subtle.ConstantTimeCompare(ad.RPIDHash, want[:]) != 1 {
		return ErrRPIDHashMismatch
	}
	return nil
}

// VerifyUserPresent checks the UP flag, required by both ceremonies.
func (ad AuthenticatorData) VerifyUserPresent() error {
	if ad.Flags&FlagUserPresent == 0 {
		return ErrUserNotPresent
	}
	return nil
}

// HasAttestedCredential reports whether the attested credential data block
// is present.
func (ad AuthenticatorData) HasAttestedCredential() bool {
	return ad.Flags&FlagAttestedCredential != 0
}
