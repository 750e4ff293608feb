package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/pkg/httpx"
	"github.com/aussiebroadwan/passport/pkg/slogx"
)

// writeServiceError maps the service error taxonomy onto HTTP responses.
// Anything unmapped is a 500 with a generic body; internals never leak.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrRefreshReuse):
		// The session was revoked; tell the client the token family is dead.
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_grant", "Refresh token reuse detected; session revoked.")

	case errors.Is(err, service.ErrMFARequired):
		httpx.WriteError(w, http.StatusUnauthorized,
			"mfa_required", "A TOTP code is required for this account.")

	case errors.Is(err, service.ErrSignCountRegression):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_grant", "Authenticator state is inconsistent.")

	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized,
			"unauthorized", "Authentication failed.")

	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden,
			"forbidden", err.Error())

	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", err.Error())

	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound,
			"not_found", "The requested resource does not exist.")

	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(w, http.StatusConflict,
			"conflict", err.Error())

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Something went wrong.")
	}
}
