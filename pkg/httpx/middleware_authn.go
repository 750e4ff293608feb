package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// Gate is an extra check run after signature verification, e.g. confirming
// an api-key grant has not been revoked since the token was minted.
type Gate func(ctx context.Context, claims jwtx.Claims) error

// AuthnMiddleware verifies the bearer token and injects the caller's
// identity and permissions into the request context.
//
// Refresh tokens are never valid as bearer credentials; they are only
// accepted by the refresh endpoint itself, in the request body.
func AuthnMiddleware(v *jwtx.Verifier, gates ...Gate) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			if claims.TokenType == jwtx.TokenTypeRefresh {
				writeBearerError(w, "refresh token not usable as bearer credential")
				return
			}

			for _, gate := range gates {
				if err := gate(ctx, claims); err != nil {
					writeBearerError(w, "token no longer valid")
					log.Warn("bearer gate rejected token", "err", err)
					return
				}
			}

			// Inject into context for downstream handlers.
			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeySessionID, c.SID)
	ctx = context.WithValue(ctx, CtxKeyPermissions, c.Permissions)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
