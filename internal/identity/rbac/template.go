package rbac

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/passport/internal/identity/domain"
)

// DenyPrefix marks a permission string as a deny overlay. Deny entries
// remove matching grants when the effective set is computed and always win,
// regardless of what other roles grant.
const DenyPrefix = "deny;"

// ErrUnresolvedPlaceholder means a scope template referenced a parameter the
// assignment didn't supply. That is a configuration error: the template
// fails closed and contributes nothing, rather than emitting a malformed
// wildcard.
var ErrUnresolvedPlaceholder = errors.New("rbac: unresolved template placeholder")

// Expand instantiates a scope template against an assignment's parameter
// map, substituting every {name} placeholder.
func Expand(tmpl domain.ScopeTemplate, params map[string]string) (string, error) {
	s := string(tmpl)
	if !strings.ContainsRune(s, '{') {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))

	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		closing := strings.IndexByte(s[open:], '}')
		if closing < 0 {
			// Dangling brace, treat as unresolvable.
			return "", fmt.Errorf("%w: %q", ErrUnresolvedPlaceholder, s)
		}

		name := s[open+1 : open+closing]
		val, ok := params[name]
		if !ok || val == "" {
			return "", fmt.Errorf("%w: {%s} in %q", ErrUnresolvedPlaceholder, name, tmpl)
		}

		b.WriteString(s[:open])
		b.WriteString(val)
		s = s[open+closing+1:]
	}
}

// Deny wraps a permission string in a deny overlay.
func Deny(perm string) string { return DenyPrefix + perm }

// IsDeny reports whether the permission string is a deny overlay, returning
// the denied pattern.
func IsDeny(perm string) (string, bool) {
	if rest, ok := strings.CutPrefix(perm, DenyPrefix); ok {
		return rest, true
	}
	return "", false
}

// Match reports whether a concrete permission satisfies a pattern. Patterns
// are exact strings, optionally ending in '*' which matches any suffix
// ("api:apikeys:*" covers create/list/revoke).
func Match(pattern, perm string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(perm, prefix)
	}
	return pattern == perm
}

// Allowed reports whether a permission set authorises `want`. A grant must
// match and no deny overlay may match; deny takes precedence unconditionally.
func Allowed(perms []string, want string) bool {
	granted := false
	for _, p := range perms {
		if pattern, deny := IsDeny(p); deny {
			if Match(pattern, want) {
				return false
			}
			continue
		}
		if Match(p, want) {
			granted = true
		}
	}
	return granted
}

// ApplyDeny computes the effective permission set: grants matched by any
// deny overlay are removed, the overlays themselves are dropped, and
// duplicates are eliminated preserving first-seen order.
func ApplyDeny(perms []string) []string {
	var denies []string
	for _, p := range perms {
		if pattern, ok := IsDeny(p); ok {
			denies = append(denies, pattern)
		}
	}

	out := make([]string, 0, len(perms))
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if _, ok := IsDeny(p); ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		denied := false
		for _, d := range denies {
			if Match(d, p) {
				denied = true
				break
			}
		}
		if denied {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
