package rbac

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// RoleSource is the persistence collaborator for dynamic roles. Only ids
// not found in the static catalog are ever looked up here.
type RoleSource interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Role, error)
}

// AssignmentSource supplies a user's current role assignments.
type AssignmentSource interface {
	ListByUser(ctx context.Context, userID string) ([]domain.RoleAssignment, error)
}

// Resolver computes a principal's permission set from role assignments.
// Lookups are read-only and safe to run concurrently; results must not be
// memoized across requests, since role changes have to be visible on the
// next refresh or token mutation.
type Resolver struct {
	Catalog     *Catalog
	Roles       RoleSource
	Assignments AssignmentSource
}

func NewResolver(catalog *Catalog, roles RoleSource, assignments AssignmentSource) *Resolver {
	return &Resolver{Catalog: catalog, Roles: roles, Assignments: assignments}
}

// Resolve returns the user's permission set: every assignment's templates
// instantiated against its parameters, deduplicated. Deny overlays are
// preserved in the output; call ApplyDeny (or Allowed) to get effective
// semantics.
func (r *Resolver) Resolve(ctx context.Context, userID string) ([]string, error) {
	assignments, err := r.Assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.ResolveAssignments(ctx, assignments)
}

// ResolveAssignments expands the given assignments. Static roles are
// consulted first and shadow any persisted row sharing the same id; only
// the remaining ids hit the role store, in one batch.
func (r *Resolver) ResolveAssignments(
	ctx context.Context,
	assignments []domain.RoleAssignment,
) ([]string, error) {
	if len(assignments) == 0 {
		return nil, nil
	}

	roles := make(map[string]domain.Role, len(assignments))
	var missing []string
	for _, a := range assignments {
		if _, ok := roles[a.RoleID]; ok {
			continue
		}
		if static, ok := r.Catalog.ByID(a.RoleID); ok {
			roles[a.RoleID] = static
			continue
		}
		missing = append(missing, a.RoleID)
	}

	if len(missing) > 0 {
		dynamic, err := r.Roles.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, role := range dynamic {
			roles[role.ID] = role
		}
	}

	log := slogx.FromContext(ctx)

	var perms []string
	seen := map[string]struct{}{}
	for _, a := range assignments {
		role, ok := roles[a.RoleID]
		if !ok {
			// Assignment to a deleted role; grants nothing.
			log.Warn("role assignment references unknown role",
				"user_id", a.UserID, "role_id", a.RoleID)
			continue
		}

		for _, tmpl := range role.Templates {
			perm, err := Expand(tmpl, a.Params)
			if err != nil {
				if errors.Is(err, ErrUnresolvedPlaceholder) {
					// Misconfigured assignment: fail closed for this
					// template, keep resolving the rest.
					log.Warn("scope template failed to expand",
						"role_id", a.RoleID, "template", string(tmpl), "err", err)
					continue
				}
				return nil, err
			}
			if _, dup := seen[perm]; dup {
				continue
			}
			seen[perm] = struct{}{}
			perms = append(perms, perm)
		}
	}

	return perms, nil
}

// WithoutRefresh strips refresh grants from a resolved set. Access and
// API-key tokens carry the result; only refresh tokens carry refresh grants.
// Deny overlays pass through untouched.
func WithoutRefresh(perms []string) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if IsRefreshPermission(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
