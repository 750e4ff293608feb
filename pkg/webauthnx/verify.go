package webauthnx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
)

// SignedMessage builds the byte string an authenticator signs during an
// assertion: authData || sha256(clientDataJSON).
func SignedMessage(authData, clientDataJSON []byte) []byte {
	cdHash := sha256.Sum256(clientDataJSON)
	msg := make([]byte, 0, len(authData)+len(cdHash))
	msg = append(msg, authData...)
	msg = append(msg, cdHash[:]...)
	return msg
}

// VerifyAssertionSignature checks the assertion signature against the stored
// credential public key (PKIX DER). ES256 signatures are ASN.1-encoded;
// Ed25519 signs the message directly.
func VerifyAssertionSignature(publicKeyDER, authData, clientDataJSON, sig []byte) error {
	pub, err := ParsePublicKeyDER(publicKeyDER)
	if err != nil {
		return err
	}

	msg := SignedMessage(authData, clientDataJSON)

	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		digest := sha256.Sum256(msg)
		if !ecdsa.VerifyASN1(key, digest[:], sig) {
			return ErrInvalidSignature
		}
		return nil

	case ed25519.PublicKey:
		if !ed25519.Verify(key, msg, sig) {
			return ErrInvalidSignature
		}
		return nil

	default:
		return ErrUnsupportedKey
	}
}
