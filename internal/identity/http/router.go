package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/metrics"
	"github.com/aussiebroadwan/passport/internal/identity/rbac"
	"github.com/aussiebroadwan/passport/internal/identity/service"
	"github.com/aussiebroadwan/passport/internal/identity/store"
	"github.com/aussiebroadwan/passport/pkg/httpx"
	"github.com/aussiebroadwan/passport/pkg/jwtx"
	"github.com/aussiebroadwan/passport/pkg/slogx"

	_ "github.com/aussiebroadwan/passport/api/identity" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     *jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	store          store.Store
	TokenService   *service.TokenService
	SessionManager *service.SessionManager
	UserService    *service.UserService
	RoleDirectory  *service.RoleDirectory
	ApiKeyIssuer   *service.ApiKeyIssuer
	PasskeyService *service.PasskeyService
	MFAService     *service.MFAService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier *jwtx.Verifier,
	buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      m,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSessions()
	r.registerApiKeys()
	r.registerPasskeys()
	r.registerMFA()
	r.registerRoles()
	r.registerTokens()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Passport Identity Service API
//	@version		0.1.0
//	@description	Multi-tenant identity service: session and refresh-token lifecycle with rotation,
//	@description	role-based permission resolution with deny overlays, scoped api keys and
//	@description	WebAuthn passkeys.
//	@description
//	@description				All tokens are signed with EdDSA (Ed25519) and can be verified via the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/passport
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn verifies the bearer token and runs the api-key revocation gate, so a
// revoked key dies immediately even though its JWT is still valid.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.verifier, r.ApiKeyIssuer.CheckClaims)
}

// selfScoped builds the per-request permission "action;userId=<caller>".
// Admin wildcards like "api:sessions:*" cover it via prefix match.
func selfScoped(action string) func(req *http.Request) string {
	return func(req *http.Request) string {
		return rbac.SelfScoped(action, httpx.UserIDFromContext(req.Context()))
	}
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.SessionManager, Metrics: r.metrics}

	// Credential endpoints are public and brute-forceable, so they get the
	// strict per-IP limit.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Logout authenticates with the refresh token in the body, not a bearer
	// header, so an expired access token can still end its session.
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.UserService}

	// Public signup endpoint - strict rate limit by IP
	r.Mux.Handle("POST /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /v1/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionUsersRead)),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/users/me/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionUsersWrite)),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Sessions: r.SessionManager, Metrics: r.metrics}

	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionSessionsRead)),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionSessionsRead)),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionSessionsRevoke)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/sessions/revoke-others",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeOthers),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionSessionsRevoke)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerApiKeys() {
	h := &ApiKeysHandler{Keys: r.ApiKeyIssuer, Metrics: r.metrics}

	// Api-key tokens themselves carry deny overlays for this whole surface,
	// so only session-backed access tokens get through the permission check.
	r.Mux.Handle("POST /v1/apikeys",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.authn(),
			httpx.RequireAnyPermission(rbac.Allowed, rbac.PermAPIKeysCreate),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/apikeys",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn(),
			httpx.RequireAnyPermission(rbac.Allowed, rbac.PermAPIKeysList),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/apikeys/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			r.authn(),
			httpx.RequireAnyPermission(rbac.Allowed, rbac.PermAPIKeysRevoke),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPasskeys() {
	h := &PasskeysHandler{
		Passkeys: r.PasskeyService,
		Users:    r.UserService,
		Metrics:  r.metrics,
	}

	managed := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionPasskeysManage)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/passkeys/register/begin", managed(h.HandleRegisterBegin))
	r.Mux.Handle("POST /v1/passkeys/register/finish", managed(h.HandleRegisterFinish))
	r.Mux.Handle("GET /v1/passkeys", managed(h.HandleList))
	r.Mux.Handle("DELETE /v1/passkeys/{id}", managed(h.HandleDelete))

	// Login ceremony is unauthenticated by definition - strict per-IP limit.
	r.Mux.Handle("POST /v1/passkeys/login/begin",
		httpx.Chain(http.HandlerFunc(h.HandleLoginBegin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/passkeys/login/finish",
		httpx.Chain(http.HandlerFunc(h.HandleLoginFinish),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFA: r.MFAService}

	r.Mux.Handle("POST /v1/mfa/totp/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleEnroll),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionUsersWrite)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Activate/disable verify 6-digit codes - strict limit to stop guessing.
	r.Mux.Handle("POST /v1/mfa/totp/activate",
		httpx.Chain(http.HandlerFunc(h.HandleActivate),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionUsersWrite)),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/mfa/totp/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			r.authn(),
			httpx.RequirePermissionFunc(rbac.Allowed, selfScoped(rbac.ActionUsersWrite)),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerRoles() {
	h := &RolesHandler{Roles: r.RoleDirectory}

	read := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			r.authn(),
			httpx.RequireAnyPermission(rbac.Allowed, rbac.PermRolesRead, rbac.PermRolesWrite),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}
	write := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			r.authn(),
			httpx.RequireAnyPermission(rbac.Allowed, rbac.PermRolesWrite),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/roles", read(h.HandleList))
	r.Mux.Handle("GET /v1/roles/{id}", read(h.HandleGet))
	r.Mux.Handle("POST /v1/roles", write(h.HandleCreate))
	r.Mux.Handle("PUT /v1/roles/{id}", write(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/roles/{id}", write(h.HandleDelete))
	r.Mux.Handle("POST /v1/roles/{id}/assignments", write(h.HandleAssign))
	r.Mux.Handle("DELETE /v1/roles/{id}/assignments/{userId}", write(h.HandleUnassign))
}

func (r *Router) registerTokens() {
	h := &TokensHandler{Tokens: r.TokenService}

	r.Mux.Handle("POST /v1/tokens/mutate",
		httpx.Chain(http.HandlerFunc(h.HandleMutate),
			r.authn(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/tokens/introspect",
		httpx.Chain(http.HandlerFunc(h.HandleIntrospect),
			r.authn(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /metrics", metrics.Handler())
}
