package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
)

// TokensHandler exposes non-escalating token derivation and introspection.
type TokensHandler struct {
	Tokens *service.TokenService
}

type mutateRequest struct {
	Token             string            `json:"token"`
	AddPermissions    []string          `json:"add_permissions,omitempty"`
	RemovePermissions []string          `json:"remove_permissions,omitempty"`
	SetExtra          map[string]string `json:"set_extra,omitempty"`
	RemoveExtra       []string          `json:"remove_extra,omitempty"`
	TTLSeconds        int64             `json:"ttl_seconds,omitempty"`
}

// HandleMutate handles POST /v1/tokens/mutate
//
//	@Summary		Derive a narrowed token
//	@Description	Re-signs a token with permissions removed or annotated. Additions must already be covered by the token; escalation is refused.
//	@Tags			Tokens
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mutateRequest	true	"Mutation"
//	@Success		200		{object}	map[string]string
//	@Failure		403		{object}	map[string]string	"Mutation would escalate"
//	@Router			/v1/tokens/mutate [post]
func (h *TokensHandler) HandleMutate(w http.ResponseWriter, r *http.Request) {
	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	derived, err := h.Tokens.Mutate(r.Context(), req.Token, service.Mutation{
		AddPermissions:    req.AddPermissions,
		RemovePermissions: req.RemovePermissions,
		SetExtra:          req.SetExtra,
		RemoveExtra:       req.RemoveExtra,
		TTL:               time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"token": derived})
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active      bool              `json:"active"`
	Subject     string            `json:"sub,omitempty"`
	TokenType   string            `json:"token_type,omitempty"`
	SessionID   string            `json:"sid,omitempty"`
	Permissions []string          `json:"perms,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	ExpiresAt   int64             `json:"exp,omitempty"`
}

// HandleIntrospect handles POST /v1/tokens/introspect
//
// RFC 7662 shape: an invalid or expired token yields {"active": false}
// rather than an error.
func (h *TokensHandler) HandleIntrospect(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	claims, err := h.Tokens.Verify(req.Token)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, introspectResponse{Active: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, introspectResponse{
		Active:      true,
		Subject:     claims.Subject,
		TokenType:   claims.TokenType,
		SessionID:   claims.SID,
		Permissions: claims.Permissions,
		Extra:       claims.Extra,
		ExpiresAt:   claims.ExpiresAt.Unix(),
	})
}
