package webauthnx

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
)

// ClientData is the parsed clientDataJSON the browser produces for both
// registration and authentication ceremonies.
type ClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"` // base64url, unpadded
	Origin    string `json:"origin"`
}

// ParseClientData decodes clientDataJSON bytes.
func ParseClientData(raw []byte) (ClientData, error) {
	var cd ClientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return ClientData{}, ErrMalformedClientData
	}
	if cd.Type == "" || cd.Challenge == "" || cd.Origin == "" {
		return ClientData{}, ErrMalformedClientData
	}
	return cd, nil
}

// Verify checks the ceremony type, that the echoed challenge matches the one
// the server issued, and that the origin is the expected one.
func (cd ClientData) Verify(ceremony string, challenge []byte, origin string) error {
	if cd.Type != ceremony {
		return ErrCeremonyTypeMismatch
	}

	echoed, err := base64.RawURLEncoding.DecodeString(cd.Challenge)
	if err != nil {
		return ErrChallengeMismatch
	}
	if subtle.ConstantTimeCompare(echoed, challenge) != 1 {
		return ErrChallengeMismatch
	}

	if cd.Origin != origin {
		return ErrOriginMismatch
	}
	return nil
}
