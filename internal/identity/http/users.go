package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
)

// UsersHandler serves registration and account self-management.
type UsersHandler struct {
	Users *service.UserService
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	MFAEnabled bool       `json:"mfa_enabled"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUpdate *time.Time `json:"updated_at,omitempty"`
}

// HandleRegister handles POST /v1/users
//
//	@Summary	Register a new account
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		request	body		registerRequest	true	"New account"
//	@Success	201		{object}	userResponse
//	@Failure	400		{object}	map[string]string
//	@Failure	409		{object}	map[string]string
//	@Router		/v1/users [post]
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	user, err := h.Users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

// HandleMe handles GET /v1/users/me
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	user, err := h.Users.Get(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated := user.UpdatedAt
	httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:         user.ID,
		Username:   user.Username,
		MFAEnabled: user.MFARequired(),
		CreatedAt:  user.CreatedAt,
		LastUpdate: &updated,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword handles POST /v1/users/me/password
//
// Every other session is revoked on success; only the caller's survives.
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	err := h.Users.ChangePassword(ctx,
		httpx.UserIDFromContext(ctx),
		req.CurrentPassword,
		req.NewPassword,
		httpx.SessionIDFromContext(ctx),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
