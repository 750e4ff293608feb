package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/passport/pkg/jwtx"
)

// InitSigningKeys creates the ephemeral KeyManager. Keys are generated on
// startup and held only in memory, so every outstanding token dies with a
// restart - sessions survive because refresh state lives in the database,
// clients just have to log in again.
//
// By default, generates 3 Ed25519 signing keys with random identifiers for
// load distribution. Use IDENTITY_NUM_KEYS to customize.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:   cfg.Issuer,
		Audience: nil, // no audience validation for a single-service deployment
		NumKeys:  cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
	}

	logger.Info("generated ephemeral signing keys",
		"num_keys", cfg.NumKeys,
		"issuer", cfg.Issuer,
	)
	logger.Warn("all existing tokens are now invalid due to key rotation on startup")

	return keyManager, nil
}
