package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// KeyManager owns this instance's signing keys and the matching verifier.
// Multiple signing keys distribute signing load and let us retire a key
// without a flag day; keys are selected randomly per signing operation.
type KeyManager struct {
	KeySet   *KeySet
	Verifier *Verifier

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Issuer is the issuer claim (iss) that will be stamped and validated.
	Issuer string

	// Audience is the list of audience values (aud) that will be validated.
	// Empty slice means no audience validation.
	Audience []string

	// NumKeys is how many signing keys to generate. Defaults to 3;
	// clamped to [1, 10].
	NumKeys int
}

// NewEphemeralKeyManager creates a KeyManager with freshly generated
// in-memory Ed25519 keys. Nothing touches disk, which means every token
// becomes invalid when the service restarts - that is the intended
// behaviour for this deployment model.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 3
	}
	if numKeys > 10 {
		numKeys = 10
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, numKeys)

	for i := range numKeys {
		kid, err := generateKID()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		signer, err := NewEphemeralSigner(kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}

		signers = append(signers, signer)

		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
	}

	return &KeyManager{
		KeySet:   keyset,
		Verifier: NewVerifier(keyset, opts.Issuer, opts.Audience),
		signers:  signers,
	}, nil
}

// GetSigner returns a randomly selected signer to distribute signing load.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if len(km.signers) == 1 {
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))]
}
