package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/metrics"
	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
)

// ApiKeysHandler mints, lists and revokes scoped api keys. Only session
// tokens reach these routes: the keys themselves carry deny overlays for the
// whole api-key surface.
type ApiKeysHandler struct {
	Keys    *service.ApiKeyIssuer
	Metrics *metrics.Metrics
}

type createKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	TTLSeconds  int64    `json:"ttl_seconds,omitempty"`
}

type apiKeyResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	Revoked     bool       `json:"revoked"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// Token is only populated on creation; it is never shown again.
	Token string `json:"token,omitempty"`
}

func toApiKeyResponse(g domain.ApiKeyGrant, token string) apiKeyResponse {
	return apiKeyResponse{
		ID:          g.ID,
		Name:        g.Name,
		Permissions: g.Permissions,
		Revoked:     g.Revoked,
		ExpiresAt:   g.ExpiresAt,
		CreatedAt:   g.CreatedAt,
		Token:       token,
	}
}

// HandleCreate handles POST /v1/apikeys
//
//	@Summary		Create an api key
//	@Description	Mints a long-lived token with a snapshot of (a subset of) the caller's current permissions. Omitting permissions snapshots the full set.
//	@Tags			ApiKeys
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		createKeyRequest	true	"Key definition"
//	@Success		201		{object}	apiKeyResponse
//	@Failure		400		{object}	map[string]string	"Live key limit reached"
//	@Failure		403		{object}	map[string]string	"Requested permission exceeds the caller's grants"
//	@Router			/v1/apikeys [post]
func (h *ApiKeysHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	token, grant, err := h.Keys.CreateKey(ctx,
		httpx.UserIDFromContext(ctx),
		req.Name,
		req.Permissions,
		time.Duration(req.TTLSeconds)*time.Second,
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordAPIKeyIssued()
	httpx.WriteJSON(w, http.StatusCreated, toApiKeyResponse(grant, token))
}

// HandleList handles GET /v1/apikeys
func (h *ApiKeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	grants, err := h.Keys.ListKeys(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]apiKeyResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, toApiKeyResponse(g, ""))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke handles DELETE /v1/apikeys/{id}
func (h *ApiKeysHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Keys.RevokeKey(ctx, httpx.UserIDFromContext(ctx), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordAPIKeyRevoked()
	w.WriteHeader(http.StatusNoContent)
}
