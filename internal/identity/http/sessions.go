package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/metrics"
	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
)

// SessionsHandler lets users inspect and revoke their login sessions.
type SessionsHandler struct {
	Sessions *service.SessionManager
	Metrics  *metrics.Metrics
}

type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"device_name,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Current    bool      `json:"current"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func toSessionResponse(s domain.LoginSession, currentSID string) sessionResponse {
	return sessionResponse{
		ID:         s.ID,
		DeviceName: s.DeviceName,
		UserAgent:  s.UserAgent,
		IPAddress:  s.IPAddress,
		Current:    s.ID == currentSID,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
		ExpiresAt:  s.ExpiresAt,
	}
}

// HandleList handles GET /v1/sessions
//
//	@Summary	List active sessions
//	@Tags		Sessions
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}	sessionResponse
//	@Router		/v1/sessions [get]
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.Sessions.ListSessions(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	currentSID := httpx.SessionIDFromContext(ctx)
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s, currentSID))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/sessions/{id}
//
//	@Summary	Inspect one session
//	@Tags		Sessions
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"Session ID"
//	@Success	200	{object}	sessionResponse
//	@Failure	404	{object}	map[string]string
//	@Router		/v1/sessions/{id} [get]
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.Sessions.ValidateSession(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if session.UserID != httpx.UserIDFromContext(ctx) {
		writeServiceError(w, r, service.ErrNotFound)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session, httpx.SessionIDFromContext(ctx)))
}

// HandleRevoke handles DELETE /v1/sessions/{id}
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Sessions.RevokeSession(ctx, httpx.UserIDFromContext(ctx), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordSessionRevoked()
	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeOthers handles POST /v1/sessions/revoke-others
//
// Revokes every session except the caller's own.
func (h *SessionsHandler) HandleRevokeOthers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	revoked, err := h.Sessions.RevokeAllExceptCurrent(ctx,
		httpx.UserIDFromContext(ctx),
		httpx.SessionIDFromContext(ctx),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"revoked": revoked})
}
