package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func totpCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestTOTPEnrollmentLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	mfa := &MFAService{Store: env.store, Issuer: "test-issuer"}
	ctx := context.Background()
	user := env.register(t, "alice")

	enrollment, err := mfa.EnrollTOTP(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.URL, "otpauth://")
	require.Equal(t, "alice", enrollment.Account)

	t.Run("activation needs a valid code", func(t *testing.T) {
		require.ErrorIs(t, mfa.ActivateTOTP(ctx, user.ID, "000000"), ErrUnauthorized)
	})

	require.NoError(t, mfa.ActivateTOTP(ctx, user.ID, totpCode(t, enrollment.Secret)))

	t.Run("enrolling again conflicts", func(t *testing.T) {
		_, err := mfa.EnrollTOTP(ctx, user.ID)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("login now demands the code", func(t *testing.T) {
		_, err := env.sessions.Login(ctx, "alice", testPassword, "", domain.DeviceInfo{})
		require.ErrorIs(t, err, ErrMFARequired)

		_, err = env.sessions.Login(ctx, "alice", testPassword, "000000", domain.DeviceInfo{})
		require.ErrorIs(t, err, ErrUnauthorized)

		pair, err := env.sessions.Login(ctx, "alice", testPassword,
			totpCode(t, enrollment.Secret), domain.DeviceInfo{})
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
	})

	t.Run("disable needs a valid code too", func(t *testing.T) {
		require.ErrorIs(t, mfa.DisableTOTP(ctx, user.ID, "000000"), ErrUnauthorized)
		require.NoError(t, mfa.DisableTOTP(ctx, user.ID, totpCode(t, enrollment.Secret)))

		_, err := env.sessions.Login(ctx, "alice", testPassword, "", domain.DeviceInfo{})
		require.NoError(t, err)
	})
}

func TestTOTPActivationRequiresEnrollment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	mfa := &MFAService{Store: env.store, Issuer: "test-issuer"}
	ctx := context.Background()
	user := env.register(t, "alice")

	require.ErrorIs(t, mfa.ActivateTOTP(ctx, user.ID, "123456"), ErrValidation)
	require.ErrorIs(t, mfa.DisableTOTP(ctx, user.ID, "123456"), ErrValidation)
	require.ErrorIs(t, mfa.ActivateTOTP(ctx, "no-such-user", "123456"), ErrNotFound)
}
