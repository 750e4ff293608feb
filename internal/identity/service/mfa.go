package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/passport/internal/identity/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPEnrollment is returned by EnrollTOTP so the client can render a QR
// code. MFA isn't active until the user proves a code via ActivateTOTP.
type TOTPEnrollment struct {
	Secret  string `json:"secret"`
	URL     string `json:"url"` // otpauth:// provisioning URL
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// MFAService manages TOTP enrolment on user accounts. Code checks during
// login happen in SessionManager; this service only handles the enrolment
// lifecycle.
type MFAService struct {
	Store  store.Store
	Issuer string // issuer name shown in authenticator apps
}

// EnrollTOTP generates and stores a TOTP secret for the user. This does NOT
// enable MFA yet - the user must verify a code first via ActivateTOTP.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string) (TOTPEnrollment, error) {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TOTPEnrollment{}, ErrNotFound
		}
		return TOTPEnrollment{}, err
	}
	if user.MFARequired() {
		return TOTPEnrollment{}, fmt.Errorf("%w: mfa already enabled", ErrConflict)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	if err := s.Store.Users().UpdateMFASecret(ctx, userID, key.Secret()); err != nil {
		return TOTPEnrollment{}, err
	}

	return TOTPEnrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Username,
	}, nil
}

// ActivateTOTP enables MFA once the user proves possession of the secret by
// submitting a valid code.
func (s *MFAService) ActivateTOTP(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if user.MFASecret == nil || *user.MFASecret == "" {
		return fmt.Errorf("%w: not enrolled, call EnrollTOTP first", ErrValidation)
	}
	if user.MFARequired() {
		return fmt.Errorf("%w: mfa already enabled", ErrConflict)
	}

	if !totp.Validate(code, *user.MFASecret) {
		return ErrUnauthorized
	}

	return s.Store.Users().EnableMFA(ctx, userID)
}

// DisableTOTP turns MFA off again. A valid current code is required so a
// hijacked session can't silently weaken the account.
func (s *MFAService) DisableTOTP(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !user.MFARequired() {
		return fmt.Errorf("%w: mfa not enabled", ErrValidation)
	}
	if user.MFASecret == nil || !totp.Validate(code, *user.MFASecret) {
		return ErrUnauthorized
	}

	return s.Store.Users().DisableMFA(ctx, userID)
}
