package rbac

import (
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

// Permission identifiers. Entries with {userId} are scope templates
// instantiated per assignment; the rest are concrete.
const (
	PermAll = "api:*"

	PermRefreshSelf        = "api:auth:refresh;userId={userId}"
	PermUsersReadSelf      = "api:users:read;userId={userId}"
	PermUsersWriteSelf     = "api:users:write;userId={userId}"
	PermSessionsReadSelf   = "api:sessions:read;userId={userId}"
	PermSessionsRevokeSelf = "api:sessions:revoke;userId={userId}"
	PermPasskeysManageSelf = "api:passkeys:manage;userId={userId}"

	PermUsersAll    = "api:users:*"
	PermSessionsAll = "api:sessions:*"
	PermPasskeysAll = "api:passkeys:*"

	PermAPIKeysCreate = "api:apikeys:create"
	PermAPIKeysList   = "api:apikeys:list"
	PermAPIKeysRevoke = "api:apikeys:revoke"

	PermRolesRead  = "api:roles:read"
	PermRolesWrite = "api:roles:write"
)

// Action names for userId-scoped permissions, instantiated per request with
// SelfScoped.
const (
	ActionUsersRead      = "api:users:read"
	ActionUsersWrite     = "api:users:write"
	ActionSessionsRead   = "api:sessions:read"
	ActionSessionsRevoke = "api:sessions:revoke"
	ActionPasskeysManage = "api:passkeys:manage"
)

// SelfScoped builds the concrete userId-scoped permission for one user, e.g.
// SelfScoped(ActionSessionsRead, id) => "api:sessions:read;userId=<id>".
func SelfScoped(action, userID string) string {
	return action + ";userId=" + userID
}

// RefreshPrefix is shared by every concrete refresh permission. Access and
// API-key tokens must never carry a permission under this prefix.
const RefreshPrefix = "api:auth:refresh"

// RefreshPermission returns the concrete refresh permission scoped to one
// user. A refresh token carries exactly this and nothing else.
func RefreshPermission(userID string) string {
	return RefreshPrefix + ";userId=" + userID
}

// IsRefreshPermission reports whether the permission grants refresh rights
// for any user.
func IsRefreshPermission(perm string) bool {
	return strings.HasPrefix(perm, RefreshPrefix)
}

// Static role identities. These ids never collide with persisted ULIDs
// (different alphabet length) and the codes are reserved.
const (
	StaticRoleOwnerID   = "static-owner"
	StaticRoleAdminID   = "static-admin"
	StaticRoleMemberID  = "static-member"
	StaticRoleAuditorID = "static-auditor"
)

// Catalog is the immutable registry of permission identifiers and static
// roles, built once at startup and keyed by id and by code. Nothing mutates
// it afterwards.
type Catalog struct {
	byID   map[string]domain.Role
	byCode map[string]domain.Role
	list   []domain.Role
}

// NewCatalog builds a catalog from static role definitions, enforcing
// globally unique ids and case-insensitive codes.
func NewCatalog(roles ...domain.Role) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]domain.Role, len(roles)),
		byCode: make(map[string]domain.Role, len(roles)),
		list:   make([]domain.Role, 0, len(roles)),
	}

	for _, r := range roles {
		if r.ID == "" || r.Code == "" {
			return nil, fmt.Errorf("rbac: static role needs id and code: %+v", r)
		}
		code := strings.ToLower(r.Code)
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("rbac: duplicate static role id %q", r.ID)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("rbac: duplicate static role code %q", r.Code)
		}

		r.IsStatic = true
		c.byID[r.ID] = r
		c.byCode[code] = r
		c.list = append(c.list, r)
	}

	return c, nil
}

// MustNewCatalog is NewCatalog for process-init tables, panicking on a bad
// definition.
func MustNewCatalog(roles ...domain.Role) *Catalog {
	c, err := NewCatalog(roles...)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the code-defined static roles.
func Default() *Catalog { return defaultCatalog }

var defaultCatalog = MustNewCatalog(
	domain.Role{
		ID:        StaticRoleOwnerID,
		Code:      "owner",
		Name:      "Owner",
		Templates: []domain.ScopeTemplate{PermAll},
	},
	domain.Role{
		ID:   StaticRoleAdminID,
		Code: "admin",
		Name: "Administrator",
		Templates: []domain.ScopeTemplate{
			PermUsersAll,
			PermSessionsAll,
			PermPasskeysAll,
			PermAPIKeysCreate,
			PermAPIKeysList,
			PermAPIKeysRevoke,
			PermRolesRead,
			PermRefreshSelf,
		},
	},
	domain.Role{
		ID:   StaticRoleMemberID,
		Code: "member",
		Name: "Member",
		Templates: []domain.ScopeTemplate{
			PermUsersReadSelf,
			PermUsersWriteSelf,
			PermSessionsReadSelf,
			PermSessionsRevokeSelf,
			PermPasskeysManageSelf,
			PermAPIKeysCreate,
			PermAPIKeysList,
			PermAPIKeysRevoke,
			PermRefreshSelf,
		},
	},
	domain.Role{
		ID:   StaticRoleAuditorID,
		Code: "auditor",
		Name: "Auditor",
		Templates: []domain.ScopeTemplate{
			"api:users:read",
			"api:sessions:read",
			PermRolesRead,
			PermRefreshSelf,
		},
	},
)

// ByID returns the static role for id, if any.
func (c *Catalog) ByID(id string) (domain.Role, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// ByCode returns the static role for code (case-insensitive), if any.
func (c *Catalog) ByCode(code string) (domain.Role, bool) {
	r, ok := c.byCode[strings.ToLower(code)]
	return r, ok
}

// Contains reports whether id names a static role.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// ContainsCode reports whether code names a static role (case-insensitive).
func (c *Catalog) ContainsCode(code string) bool {
	_, ok := c.byCode[strings.ToLower(code)]
	return ok
}

// List returns a copy of the static role definitions.
func (c *Catalog) List() []domain.Role {
	out := make([]domain.Role, len(c.list))
	copy(out, c.list)
	return out
}

// DefaultAssignment builds the parameter map every user-scoped template
// needs. Assignments created at registration time carry this.
func DefaultAssignment(userID, roleID string, now time.Time) domain.RoleAssignment {
	return domain.RoleAssignment{
		UserID:    userID,
		RoleID:    roleID,
		Params:    map[string]string{"userId": userID},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
