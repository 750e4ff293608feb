package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/internal/identity/store"
	"github.com/aussiebroadwan/passport/pkg/idx"
)

// RoleDirectory merges the static catalog with persisted dynamic roles and
// manages role assignments. Static roles always shadow dynamic ones and are
// immutable at runtime.
type RoleDirectory struct {
	Store   store.Store
	Catalog *rbac.Catalog
}

// List returns static roles first, then dynamic roles sorted by code.
func (d *RoleDirectory) List(ctx context.Context) ([]domain.Role, error) {
	out := d.Catalog.List()

	dynamic, err := d.Store.Roles().List(ctx)
	if err != nil {
		return nil, err
	}
	for _, role := range dynamic {
		// A persisted row sharing a static id or code is shadowed.
		if d.Catalog.Contains(role.ID) || d.Catalog.ContainsCode(role.Code) {
			continue
		}
		out = append(out, role)
	}
	return out, nil
}

// Get returns a role by id, static catalog first.
func (d *RoleDirectory) Get(ctx context.Context, id string) (domain.Role, error) {
	if role, ok := d.Catalog.ByID(id); ok {
		return role, nil
	}
	role, err := d.Store.Roles().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Role{}, ErrNotFound
		}
		return domain.Role{}, err
	}
	return role, nil
}

// Create persists a new dynamic role.
func (d *RoleDirectory) Create(ctx context.Context, code, name string, templates []domain.ScopeTemplate) (domain.Role, error) {
	if err := d.validateDefinition(code, templates); err != nil {
		return domain.Role{}, err
	}

	now := time.Now()
	role := domain.Role{
		ID:        idx.New().String(),
		Code:      code,
		Name:      name,
		Templates: templates,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := d.Store.Roles().Save(ctx, role); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Role{}, fmt.Errorf("%w: role code %q taken", ErrConflict, code)
		}
		return domain.Role{}, err
	}
	return role, nil
}

// Update replaces a dynamic role's definition. Static roles can't be
// changed.
func (d *RoleDirectory) Update(ctx context.Context, id, code, name string, templates []domain.ScopeTemplate) (domain.Role, error) {
	if d.Catalog.Contains(id) {
		return domain.Role{}, fmt.Errorf("%w: static roles are immutable", ErrConflict)
	}
	if err := d.validateDefinition(code, templates); err != nil {
		return domain.Role{}, err
	}

	existing, err := d.Store.Roles().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Role{}, ErrNotFound
		}
		return domain.Role{}, err
	}

	existing.Code = code
	existing.Name = name
	existing.Templates = templates
	existing.UpdatedAt = time.Now()

	if err := d.Store.Roles().Save(ctx, existing); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Role{}, fmt.Errorf("%w: role code %q taken", ErrConflict, code)
		}
		return domain.Role{}, err
	}
	return existing, nil
}

// Delete removes a dynamic role. Assignments referencing it simply stop
// granting anything; the resolver fails closed on unknown role ids.
func (d *RoleDirectory) Delete(ctx context.Context, id string) error {
	if d.Catalog.Contains(id) {
		return fmt.Errorf("%w: static roles cannot be deleted", ErrConflict)
	}
	if err := d.Store.Roles().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Assign grants a role to a user. Every placeholder the role's templates
// reference must be supplied in params, otherwise the assignment would fail
// closed at resolution time and grant nothing.
func (d *RoleDirectory) Assign(ctx context.Context, userID, roleID string, params map[string]string) error {
	role, err := d.Get(ctx, roleID)
	if err != nil {
		return err
	}

	if _, err := d.Store.Users().GetByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	for _, tmpl := range role.Templates {
		for _, name := range tmpl.Placeholders() {
			if params[name] == "" {
				return fmt.Errorf("%w: template %q needs parameter %q", ErrValidation, tmpl, name)
			}
		}
	}

	existing, err := d.Store.RoleAssignments().ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	user := domain.UserRoles{UserID: userID, Assignments: existing}
	assignment := user.AssignRole(roleID, params, time.Now())
	return d.Store.RoleAssignments().Upsert(ctx, assignment)
}

// Unassign removes a role from a user.
func (d *RoleDirectory) Unassign(ctx context.Context, userID, roleID string) error {
	existing, err := d.Store.RoleAssignments().ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	user := domain.UserRoles{UserID: userID, Assignments: existing}
	if !user.RemoveRole(roleID) {
		return ErrNotFound
	}

	if err := d.Store.RoleAssignments().Delete(ctx, userID, roleID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (d *RoleDirectory) validateDefinition(code string, templates []domain.ScopeTemplate) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: role code required", ErrValidation)
	}
	if d.Catalog.ContainsCode(code) {
		return fmt.Errorf("%w: %q is a reserved static role code", ErrConflict, code)
	}
	if len(templates) == 0 {
		return fmt.Errorf("%w: at least one scope template required", ErrValidation)
	}
	for _, tmpl := range templates {
		s := string(tmpl)
		if s == "" || strings.ContainsAny(s, " \t\n") {
			return fmt.Errorf("%w: invalid scope template %q", ErrValidation, s)
		}
		if strings.Count(s, "{") != strings.Count(s, "}") {
			return fmt.Errorf("%w: unbalanced placeholder in template %q", ErrValidation, s)
		}
	}
	return nil
}
