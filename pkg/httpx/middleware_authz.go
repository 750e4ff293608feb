package httpx

import (
	"net/http"
	"strings"
)

// PermissionChecker reports whether the caller's permission set satisfies a
// single required permission. The identity service plugs in its
// wildcard/deny-aware matcher here; httpx itself stays policy-free.
type PermissionChecker func(have []string, want string) bool

// RequireAnyPermission allows the request through when the caller satisfies
// at least one of the required permissions.
func RequireAnyPermission(check PermissionChecker, required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := PermissionsFromContext(r.Context())

			for _, want := range required {
				if check(have, want) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeBearerPermissionError(w, http.StatusForbidden, required...)
		})
	}
}

// RequireAllPermissions allows the request through only when every required
// permission is satisfied.
func RequireAllPermissions(check PermissionChecker, required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := PermissionsFromContext(r.Context())

			for _, want := range required {
				if !check(have, want) {
					writeBearerPermissionError(w, http.StatusForbidden, required...)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermissionFunc is RequireAnyPermission for permissions that depend
// on the request, e.g. resource-scoped permissions carrying the caller's own
// user id.
func RequirePermissionFunc(check PermissionChecker, want func(r *http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			required := want(r)
			if check(PermissionsFromContext(r.Context()), required) {
				next.ServeHTTP(w, r)
				return
			}
			writeBearerPermissionError(w, http.StatusForbidden, required)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeBearerPermissionError(w http.ResponseWriter, code int, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	w.WriteHeader(code)
	_, _ = w.Write([]byte("insufficient_scope"))
}
