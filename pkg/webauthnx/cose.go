package webauthnx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// COSE constants (RFC 9052 / RFC 9053) for the key types and algorithms
// WebAuthn authenticators actually ship.
const (
	coseKtyOKP = 1
	coseKtyEC2 = 2

	coseAlgES256 = -7
	coseAlgEdDSA = -8

	coseCrvP256    = 1
	coseCrvEd25519 = 6
)

type coseKey struct {
	Kty int    `cbor:"1,keyasint"`
	Alg int    `cbor:"3,keyasint,omitempty"`
	Crv int    `cbor:"-1,keyasint,omitempty"`
	X   []byte `cbor:"-2,keyasint,omitempty"`
	Y   []byte `cbor:"-3,keyasint,omitempty"`
}

// ParseCOSEPublicKey decodes a COSE_Key structure into a Go public key.
// Supported: EC2/P-256 (ES256) and OKP/Ed25519 (EdDSA).
func ParseCOSEPublicKey(raw []byte) (any, error) {
	var k coseKey
	if err := cbor.Unmarshal(raw, &k); err != nil {
		return nil, ErrUnsupportedKey
	}

	switch k.Kty {
	case coseKtyEC2:
		if k.Crv != coseCrvP256 || len(k.X) == 0 || len(k.Y) == 0 {
			return nil, ErrUnsupportedKey
		}
		pub := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(k.X),
			Y:     new(big.Int).SetBytes(k.Y),
		}
		if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
			return nil, ErrUnsupportedKey
		}
		return pub, nil

	case coseKtyOKP:
		if k.Crv != coseCrvEd25519 || len(k.X) != ed25519.PublicKeySize {
			return nil, ErrUnsupportedKey
		}
		return ed25519.PublicKey(k.X), nil

	default:
		return nil, ErrUnsupportedKey
	}
}

// MarshalPublicKeyDER converts a parsed credential key to PKIX DER, the
// storage format for credential public keys.
func MarshalPublicKeyDER(pub any) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, ErrUnsupportedKey
	}
	return der, nil
}

// ParsePublicKeyDER is the inverse of MarshalPublicKeyDER.
func ParsePublicKeyDER(der []byte) (any, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, ErrUnsupportedKey
	}
	switch pub.(type) {
	case *ecdsa.PublicKey, ed25519.PublicKey:
		return pub, nil
	default:
		return nil, ErrUnsupportedKey
	}
}
