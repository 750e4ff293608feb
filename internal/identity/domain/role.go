package domain

import (
	"strings"
	"time"
)

// ScopeTemplate is a permission-string pattern with named placeholders, e.g.
// "api:auth:refresh;userId={userId}". Placeholders are substituted from a
// RoleAssignment's parameter map at resolution time.
type ScopeTemplate string

// Placeholders returns the distinct {param} names referenced by the template,
// in order of first appearance.
func (t ScopeTemplate) Placeholders() []string {
	s := string(t)
	var names []string
	seen := map[string]struct{}{}

	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			return names
		}
		closing := strings.IndexByte(s[open:], '}')
		if closing < 0 {
			return names
		}

		name := s[open+1 : open+closing]
		if name != "" {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
		s = s[open+closing+1:]
	}
}

// Role is a named bundle of scope templates. Static roles live in the
// in-process catalog and can never be created, updated, or deleted at
// runtime; dynamic roles are persisted. Role codes are globally unique,
// compared case-insensitively.
type Role struct {
	ID        string
	Code      string
	Name      string
	IsStatic  bool
	Templates []ScopeTemplate
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleAssignment grants a role to a user, carrying the parameter map used to
// instantiate the role's scope templates.
type RoleAssignment struct {
	UserID    string
	RoleID    string
	Params    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserRoles is the aggregate of one user's role assignments. Mutation goes
// through AssignRole/RemoveRole so stores never reach into assignment state
// from the outside.
type UserRoles struct {
	UserID      string
	Assignments []RoleAssignment
}

// AssignRole adds or replaces the assignment for roleID and returns the
// resulting row. Replacing keeps the original CreatedAt. Parameters are
// copied so later mutation of the caller's map doesn't leak in.
func (u *UserRoles) AssignRole(roleID string, params map[string]string, now time.Time) RoleAssignment {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}

	for i := range u.Assignments {
		if u.Assignments[i].RoleID == roleID {
			u.Assignments[i].Params = copied
			u.Assignments[i].UpdatedAt = now
			return u.Assignments[i]
		}
	}

	assignment := RoleAssignment{
		UserID:    u.UserID,
		RoleID:    roleID,
		Params:    copied,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.Assignments = append(u.Assignments, assignment)
	return assignment
}

// RemoveRole deletes the assignment for roleID, reporting whether it existed.
func (u *UserRoles) RemoveRole(roleID string) bool {
	for i := range u.Assignments {
		if u.Assignments[i].RoleID == roleID {
			u.Assignments = append(u.Assignments[:i], u.Assignments[i+1:]...)
			return true
		}
	}
	return false
}
