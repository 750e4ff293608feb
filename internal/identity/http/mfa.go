package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
)

// MFAHandler manages TOTP enrollment for the authenticated user.
type MFAHandler struct {
	MFA *service.MFAService
}

// HandleEnroll handles POST /v1/mfa/totp/enroll
//
//	@Summary		Begin TOTP enrollment
//	@Description	Generates a TOTP secret. MFA is not enforced until activated with a valid code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	service.TOTPEnrollment
//	@Failure		409	{object}	map[string]string	"MFA already enabled"
//	@Router			/v1/mfa/totp/enroll [post]
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	enrollment, err := h.MFA.EnrollTOTP(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, enrollment)
}

type totpCodeRequest struct {
	Code string `json:"code"`
}

// HandleActivate handles POST /v1/mfa/totp/activate
func (h *MFAHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req totpCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	if err := h.MFA.ActivateTOTP(ctx, httpx.UserIDFromContext(ctx), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles POST /v1/mfa/totp/disable
//
// Disabling requires a current valid code, not just a bearer token.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req totpCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	if err := h.MFA.DisableTOTP(ctx, httpx.UserIDFromContext(ctx), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
