package webauthnx

import (
	"github.com/fxamacker/cbor/v2"
)

// AttestationObject is the CBOR envelope posted by the browser at the end of
// a registration ceremony.
type AttestationObject struct {
	Format       string          `cbor:"fmt"`
	AttStatement cbor.RawMessage `cbor:"attStmt"`
	AuthData     []byte          `cbor:"authData"`
}

// ParseAttestationObject decodes the attestation envelope. The attestation
// statement itself is kept opaque; the service records the format string and
// trusts the credential on a self-attestation basis ("none" and "packed"
// authenticators both work this way for first-party use).
func ParseAttestationObject(raw []byte) (AttestationObject, error) {
	var obj AttestationObject
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return AttestationObject{}, ErrMalformedAttestation
	}
	if obj.Format == "" || len(obj.AuthData) == 0 {
		return AttestationObject{}, ErrMalformedAttestation
	}
	return obj, nil
}
