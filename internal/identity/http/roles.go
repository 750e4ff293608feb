package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
)

// RolesHandler administers the role catalog and role assignments. Routes are
// gated on the roles:read / roles:write permissions by the router.
type RolesHandler struct {
	Roles *service.RoleDirectory
}

type roleRequest struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Templates []string `json:"templates"`
}

type roleResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Templates []string  `json:"templates"`
	Static    bool      `json:"static"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func toRoleResponse(role domain.Role) roleResponse {
	templates := make([]string, 0, len(role.Templates))
	for _, tmpl := range role.Templates {
		templates = append(templates, string(tmpl))
	}
	return roleResponse{
		ID:        role.ID,
		Code:      role.Code,
		Name:      role.Name,
		Templates: templates,
		Static:    role.IsStatic,
		CreatedAt: role.CreatedAt,
		UpdatedAt: role.UpdatedAt,
	}
}

func toTemplates(raw []string) []domain.ScopeTemplate {
	out := make([]domain.ScopeTemplate, 0, len(raw))
	for _, s := range raw {
		out = append(out, domain.ScopeTemplate(s))
	}
	return out
}

// HandleList handles GET /v1/roles
//
//	@Summary	List roles
//	@Tags		Roles
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}	roleResponse
//	@Router		/v1/roles [get]
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Roles.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/roles/{id}
func (h *RolesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	role, err := h.Roles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleCreate handles POST /v1/roles
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	role, err := h.Roles.Create(r.Context(), req.Code, req.Name, toTemplates(req.Templates))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toRoleResponse(role))
}

// HandleUpdate handles PUT /v1/roles/{id}
func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	role, err := h.Roles.Update(r.Context(), r.PathValue("id"), req.Code, req.Name, toTemplates(req.Templates))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleDelete handles DELETE /v1/roles/{id}
func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Roles.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	UserID string            `json:"user_id"`
	Params map[string]string `json:"params,omitempty"`
}

// HandleAssign handles POST /v1/roles/{id}/assignments
//
//	@Summary		Assign a role
//	@Description	Grants a role to a user. All placeholders used by the role's scope templates must be supplied in params.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Accept			json
//	@Param			id		path	string			true	"Role id"
//	@Param			request	body	assignRequest	true	"Assignment"
//	@Success		204
//	@Failure		400	{object}	map[string]string	"Missing template parameter"
//	@Router			/v1/roles/{id}/assignments [post]
func (h *RolesHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	if err := h.Roles.Assign(r.Context(), req.UserID, r.PathValue("id"), req.Params); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUnassign handles DELETE /v1/roles/{id}/assignments/{userId}
func (h *RolesHandler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	if err := h.Roles.Unassign(r.Context(), r.PathValue("userId"), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
