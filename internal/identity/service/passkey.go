package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/store"
	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/aussiebroadwan/passport/pkg/idx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
	"github.com/aussiebroadwan/passport/pkg/webauthnx"
)

const (
	challengeSize       = 32
	defaultChallengeTTL = 5 * time.Minute
)

// PasskeyService runs both WebAuthn ceremonies. Challenges are single-use:
// every verification attempt consumes its challenge, pass or fail.
type PasskeyService struct {
	Store    store.Store
	Sessions *SessionManager

	RPID   string // relying party id, e.g. "example.com"
	RPName string // human-readable, shown by authenticators
	Origin string // expected clientData origin, e.g. "https://example.com"

	// ChallengeTTL bounds how long a ceremony may take. Defaults to 5m.
	ChallengeTTL time.Duration
}

func (s *PasskeyService) challengeTTL() time.Duration {
	if s.ChallengeTTL > 0 {
		return s.ChallengeTTL
	}
	return defaultChallengeTTL
}

// RegistrationOptions is handed to the browser to drive
// navigator.credentials.create().
type RegistrationOptions struct {
	ChallengeID string `json:"challenge_id"`
	Challenge   string `json:"challenge"` // base64url
	RP          struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"rp"`
	User struct {
		ID   string `json:"id"` // base64url user handle
		Name string `json:"name"`
	} `json:"user"`
	ExcludeCredentialIDs []string `json:"exclude_credential_ids,omitempty"` // base64url
	TimeoutMillis        int64    `json:"timeout"`
}

// AuthenticationOptions drives navigator.credentials.get().
type AuthenticationOptions struct {
	ChallengeID        string   `json:"challenge_id"`
	Challenge          string   `json:"challenge"` // base64url
	RPID               string   `json:"rp_id"`
	AllowCredentialIDs []string `json:"allow_credential_ids,omitempty"` // base64url
	TimeoutMillis      int64    `json:"timeout"`
}

// BeginRegistration issues a registration challenge for an existing user.
func (s *PasskeyService) BeginRegistration(ctx context.Context, userID string) (RegistrationOptions, error) {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RegistrationOptions{}, ErrNotFound
		}
		return RegistrationOptions{}, err
	}

	challenge, err := cryptox.GenerateChallenge(challengeSize)
	if err != nil {
		return RegistrationOptions{}, err
	}

	existing, err := s.Store.PasskeyCredentials().ListByUser(ctx, userID)
	if err != nil {
		return RegistrationOptions{}, err
	}

	now := time.Now()
	opts := RegistrationOptions{
		ChallengeID:   idx.New().String(),
		Challenge:     base64.RawURLEncoding.EncodeToString(challenge),
		TimeoutMillis: s.challengeTTL().Milliseconds(),
	}
	opts.RP.ID = s.RPID
	opts.RP.Name = s.RPName
	opts.User.ID = base64.RawURLEncoding.EncodeToString([]byte(user.ID))
	opts.User.Name = user.Username
	for _, cred := range existing {
		opts.ExcludeCredentialIDs = append(opts.ExcludeCredentialIDs,
			base64.RawURLEncoding.EncodeToString(cred.CredentialID))
	}

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return RegistrationOptions{}, err
	}

	err = s.Store.PasskeyChallenges().Create(ctx, domain.PasskeyChallenge{
		ID:          opts.ChallengeID,
		Challenge:   challenge,
		UserID:      userID,
		Type:        domain.ChallengeRegistration,
		OptionsJSON: string(optsJSON),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.challengeTTL()),
	})
	if err != nil {
		return RegistrationOptions{}, err
	}

	return opts, nil
}

// FinishRegistration verifies the attestation response and stores the new
// credential.
func (s *PasskeyService) FinishRegistration(
	ctx context.Context,
	userID, challengeID, name string,
	attestationObject, clientDataJSON []byte,
) (domain.PasskeyCredential, error) {
	challenge, err := s.consumeChallenge(ctx, challengeID, domain.ChallengeRegistration)
	if err != nil {
		return domain.PasskeyCredential{}, err
	}
	if challenge.UserID != userID {
		return domain.PasskeyCredential{}, ErrUnauthorized
	}

	clientData, err := webauthnx.ParseClientData(clientDataJSON)
	if err != nil {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := clientData.Verify(webauthnx.CeremonyCreate, challenge.Challenge, s.Origin); err != nil {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	attestation, err := webauthnx.ParseAttestationObject(attestationObject)
	if err != nil {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	authData, err := webauthnx.ParseAuthenticatorData(attestation.AuthData)
	if err != nil {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := authData.VerifyRPIDHash(s.RPID); err != nil {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err := authData.VerifyUserPresent(); err != nil {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !authData.HasAttestedCredential() {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrValidation, webauthnx.ErrNoCredentialData)
	}

	pub, err := webauthnx.ParseCOSEPublicKey(authData.PublicKeyCOSE)
	if err != nil {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	publicKeyDER, err := webauthnx.MarshalPublicKeyDER(pub)
	if err != nil {
		return domain.PasskeyCredential{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now()
	cred := domain.PasskeyCredential{
		ID:                idx.New().String(),
		UserID:            userID,
		Name:              name,
		CredentialID:      authData.CredentialID,
		PublicKey:         publicKeyDER,
		SignCount:         authData.SignCount,
		AAGUID:            authData.AAGUID,
		UserHandle:        []byte(userID),
		AttestationFormat: attestation.Format,
		RegisteredAt:      now,
	}

	if err := s.Store.PasskeyCredentials().Create(ctx, cred); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.PasskeyCredential{}, fmt.Errorf("%w: credential already registered", ErrConflict)
		}
		return domain.PasskeyCredential{}, err
	}

	slogx.FromContext(ctx).Info("passkey registered",
		"user_id", userID, "credential", cred.ID, "format", attestation.Format)

	return cred, nil
}

// BeginAuthentication issues an authentication challenge. userID may be
// empty for discoverable-credential flows.
func (s *PasskeyService) BeginAuthentication(ctx context.Context, userID string) (AuthenticationOptions, error) {
	challenge, err := cryptox.GenerateChallenge(challengeSize)
	if err != nil {
		return AuthenticationOptions{}, err
	}

	now := time.Now()
	opts := AuthenticationOptions{
		ChallengeID:   idx.New().String(),
		Challenge:     base64.RawURLEncoding.EncodeToString(challenge),
		RPID:          s.RPID,
		TimeoutMillis: s.challengeTTL().Milliseconds(),
	}

	if userID != "" {
		creds, err := s.Store.PasskeyCredentials().ListByUser(ctx, userID)
		if err != nil {
			return AuthenticationOptions{}, err
		}
		for _, cred := range creds {
			opts.AllowCredentialIDs = append(opts.AllowCredentialIDs,
				base64.RawURLEncoding.EncodeToString(cred.CredentialID))
		}
	}

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return AuthenticationOptions{}, err
	}

	err = s.Store.PasskeyChallenges().Create(ctx, domain.PasskeyChallenge{
		ID:          opts.ChallengeID,
		Challenge:   challenge,
		UserID:      userID,
		Type:        domain.ChallengeAuthentication,
		OptionsJSON: string(optsJSON),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.challengeTTL()),
	})
	if err != nil {
		return AuthenticationOptions{}, err
	}

	return opts, nil
}

// FinishAuthentication verifies an assertion and, on success, starts a login
// session for the credential's owner.
func (s *PasskeyService) FinishAuthentication(
	ctx context.Context,
	challengeID string,
	credentialID, authDataRaw, clientDataJSON, signature []byte,
	device domain.DeviceInfo,
) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	challenge, err := s.consumeChallenge(ctx, challengeID, domain.ChallengeAuthentication)
	if err != nil {
		return nil, err
	}

	cred, err := s.Store.PasskeyCredentials().GetByCredentialID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	// A user-bound challenge only authenticates that user's credentials.
	if challenge.UserID != "" && challenge.UserID != cred.UserID {
		return nil, ErrUnauthorized
	}

	clientData, err := webauthnx.ParseClientData(clientDataJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := clientData.Verify(webauthnx.CeremonyGet, challenge.Challenge, s.Origin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	authData, err := webauthnx.ParseAuthenticatorData(authDataRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := authData.VerifyRPIDHash(s.RPID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err := authData.VerifyUserPresent(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if err := webauthnx.VerifyAssertionSignature(cred.PublicKey, authDataRaw, clientDataJSON, signature); err != nil {
		log.Warn("passkey assertion signature invalid",
			"user_id", cred.UserID, "credential", cred.ID)
		return nil, ErrUnauthorized
	}

	// Sign counters must strictly advance when in use. Authenticators that
	// never count report zero on both sides, which is fine.
	if authData.SignCount != 0 || cred.SignCount != 0 {
		if authData.SignCount <= cred.SignCount {
			log.Warn("passkey sign count regression, possible cloned authenticator",
				"user_id", cred.UserID, "credential", cred.ID,
				"stored", cred.SignCount, "presented", authData.SignCount)
			return nil, ErrSignCountRegression
		}
	}

	if err := s.Store.PasskeyCredentials().UpdateSignCount(ctx, cred.ID, authData.SignCount, time.Now()); err != nil {
		return nil, err
	}

	return s.Sessions.StartSession(ctx, cred.UserID, device)
}

// ListCredentials returns the user's registered passkeys.
func (s *PasskeyService) ListCredentials(ctx context.Context, userID string) ([]domain.PasskeyCredential, error) {
	return s.Store.PasskeyCredentials().ListByUser(ctx, userID)
}

// DeleteCredential removes one of the user's passkeys. A foreign credential
// reads as not found.
func (s *PasskeyService) DeleteCredential(ctx context.Context, userID, credentialID string) error {
	cred, err := s.Store.PasskeyCredentials().GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if cred.UserID != userID {
		return ErrNotFound
	}
	return s.Store.PasskeyCredentials().Delete(ctx, credentialID)
}

// consumeChallenge loads and unconditionally deletes a challenge, then
// validates its type and expiry. Deletion happens before validation so a
// failed attempt can't retry against the same challenge.
func (s *PasskeyService) consumeChallenge(
	ctx context.Context,
	id string,
	want domain.ChallengeType,
) (domain.PasskeyChallenge, error) {
	challenge, err := s.Store.PasskeyChallenges().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown or already-consumed id. A present-but-expired
			// challenge is rejected below as unauthorized instead.
			return domain.PasskeyChallenge{}, ErrNotFound
		}
		return domain.PasskeyChallenge{}, err
	}

	if err := s.Store.PasskeyChallenges().Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.PasskeyChallenge{}, err
	}

	if challenge.Type != want || challenge.Expired(time.Now()) {
		return domain.PasskeyChallenge{}, ErrUnauthorized
	}
	if len(bytes.TrimSpace(challenge.Challenge)) == 0 {
		return domain.PasskeyChallenge{}, ErrUnauthorized
	}

	return challenge, nil
}
