package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/metrics"
	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// AuthHandler serves password login, refresh rotation and logout.
type AuthHandler struct {
	Sessions *service.SessionManager
	Metrics  *metrics.Metrics
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	TOTPCode   string `json:"totp_code,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Password login
//	@Description	Authenticates a username/password pair (plus TOTP when enabled) and starts a session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	domain.TokenPair
//	@Failure		400		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Router			/v1/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	pair, err := h.Sessions.Login(ctx, req.Username, req.Password, req.TOTPCode, deviceInfo(r, req.DeviceName))
	if err != nil {
		h.Metrics.RecordLogin("password", "failure")
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordLogin("password", "success")
	slogx.FromContext(ctx).Info("login succeeded", "session_id", pair.SessionID)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a new access/refresh pair. Reuse of a rotated token revokes the session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	true	"Refresh token"
//	@Success		200		{object}	domain.TokenPair
//	@Failure		401		{object}	map[string]string
//	@Router			/v1/auth/refresh [post]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, err := h.Sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if err == service.ErrRefreshReuse {
			h.Metrics.RecordRefreshReuse()
		}
		h.Metrics.RecordRefresh("failure")
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordRefresh("success")
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout handles POST /v1/auth/logout
//
// The refresh token doubles as proof of session ownership, so logout needs
// no bearer auth and works with an expired token.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	if err := h.Sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordSessionRevoked()
	w.WriteHeader(http.StatusNoContent)
}

// deviceInfo gathers per-session client metadata from the request.
func deviceInfo(r *http.Request, name string) domain.DeviceInfo {
	return domain.DeviceInfo{
		Name:      name,
		UserAgent: r.UserAgent(),
		IPAddress: httpx.IPKeyExtractor(r),
	}
}
