package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/metrics"
	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
)

// PasskeysHandler runs the WebAuthn ceremonies over JSON. All binary fields
// travel base64url-encoded, matching what browsers produce.
type PasskeysHandler struct {
	Passkeys *service.PasskeyService
	Users    *service.UserService
	Metrics  *metrics.Metrics
}

// HandleRegisterBegin handles POST /v1/passkeys/register/begin
func (h *PasskeysHandler) HandleRegisterBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts, err := h.Passkeys.BeginRegistration(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, opts)
}

type registerFinishRequest struct {
	ChallengeID       string `json:"challenge_id"`
	Name              string `json:"name,omitempty"`
	AttestationObject string `json:"attestation_object"` // base64url
	ClientDataJSON    string `json:"client_data_json"`   // base64url
}

type passkeyResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name,omitempty"`
	CredentialID      string     `json:"credential_id"` // base64url
	AttestationFormat string     `json:"attestation_format,omitempty"`
	RegisteredAt      time.Time  `json:"registered_at"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
}

func toPasskeyResponse(c domain.PasskeyCredential) passkeyResponse {
	return passkeyResponse{
		ID:                c.ID,
		Name:              c.Name,
		CredentialID:      base64.RawURLEncoding.EncodeToString(c.CredentialID),
		AttestationFormat: c.AttestationFormat,
		RegisteredAt:      c.RegisteredAt,
		LastUsedAt:        c.LastUsedAt,
	}
}

// HandleRegisterFinish handles POST /v1/passkeys/register/finish
//
//	@Summary		Complete passkey registration
//	@Description	Verifies the attestation response and stores the credential.
//	@Tags			Passkeys
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerFinishRequest	true	"Attestation response"
//	@Success		201		{object}	passkeyResponse
//	@Failure		401		{object}	map[string]string	"Challenge invalid or expired"
//	@Failure		404		{object}	map[string]string	"Challenge unknown or already used"
//	@Router			/v1/passkeys/register/finish [post]
func (h *PasskeysHandler) HandleRegisterFinish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerFinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	attestation, err1 := base64.RawURLEncoding.DecodeString(req.AttestationObject)
	clientData, err2 := base64.RawURLEncoding.DecodeString(req.ClientDataJSON)
	if req.ChallengeID == "" || err1 != nil || err2 != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "challenge_id, attestation_object and client_data_json are required")
		return
	}

	cred, err := h.Passkeys.FinishRegistration(ctx,
		httpx.UserIDFromContext(ctx), req.ChallengeID, req.Name, attestation, clientData)
	if err != nil {
		h.Metrics.RecordPasskeyCeremony("registration", "failure")
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordPasskeyCeremony("registration", "success")
	httpx.WriteJSON(w, http.StatusCreated, toPasskeyResponse(cred))
}

type loginBeginRequest struct {
	Username string `json:"username,omitempty"`
}

// HandleLoginBegin handles POST /v1/passkeys/login/begin
//
// Username is optional; without it the challenge works for any discoverable
// credential. An unknown username still gets a challenge so the endpoint
// can't be used to enumerate accounts.
func (h *PasskeysHandler) HandleLoginBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginBeginRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var userID string
	if req.Username != "" {
		user, err := h.Users.GetByUsername(ctx, req.Username)
		if err != nil && !errors.Is(err, service.ErrNotFound) {
			writeServiceError(w, r, err)
			return
		}
		userID = user.ID
	}

	opts, err := h.Passkeys.BeginAuthentication(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, opts)
}

type loginFinishRequest struct {
	ChallengeID       string `json:"challenge_id"`
	CredentialID      string `json:"credential_id"`      // base64url
	AuthenticatorData string `json:"authenticator_data"` // base64url
	ClientDataJSON    string `json:"client_data_json"`   // base64url
	Signature         string `json:"signature"`          // base64url
	DeviceName        string `json:"device_name,omitempty"`
}

// HandleLoginFinish handles POST /v1/passkeys/login/finish
func (h *PasskeysHandler) HandleLoginFinish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginFinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	credentialID, err1 := base64.RawURLEncoding.DecodeString(req.CredentialID)
	authData, err2 := base64.RawURLEncoding.DecodeString(req.AuthenticatorData)
	clientData, err3 := base64.RawURLEncoding.DecodeString(req.ClientDataJSON)
	signature, err4 := base64.RawURLEncoding.DecodeString(req.Signature)
	if req.ChallengeID == "" || err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed assertion fields")
		return
	}

	pair, err := h.Passkeys.FinishAuthentication(ctx,
		req.ChallengeID, credentialID, authData, clientData, signature,
		deviceInfo(r, req.DeviceName))
	if err != nil {
		if errors.Is(err, service.ErrSignCountRegression) {
			h.Metrics.RecordSignCountAnomaly()
		}
		h.Metrics.RecordPasskeyCeremony("authentication", "failure")
		h.Metrics.RecordLogin("passkey", "failure")
		writeServiceError(w, r, err)
		return
	}

	h.Metrics.RecordPasskeyCeremony("authentication", "success")
	h.Metrics.RecordLogin("passkey", "success")
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleList handles GET /v1/passkeys
func (h *PasskeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, err := h.Passkeys.ListCredentials(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]passkeyResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, toPasskeyResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDelete handles DELETE /v1/passkeys/{id}
func (h *PasskeysHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Passkeys.DeleteCredential(ctx, httpx.UserIDFromContext(ctx), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
