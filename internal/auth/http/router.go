package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/directory"
	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"

	_ "github.com/aussiebroadwan/portalauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// AdminRole is the value of the "roles" attribute that unlocks /v1/auth/revoke.
const AdminRole = "admin"

// Deps are the collaborators the handlers need. All are required.
type Deps struct {
	Pairs     *service.TokenPairService
	Verifier  *service.TokenVerifier
	Issuer    *service.TokenIssuer
	Directory directory.Directory
	Store     store.Revocations

	Version string
	Logger  *slog.Logger
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	deps      Deps
	startTime time.Time
}

func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Router{
		Mux:       http.NewServeMux(),
		deps:      deps,
		startTime: time.Now(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(deps.Logger),
	}
	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerTokens()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Portal Authentication Service API
//	@version		0.1.0
//	@description	Issues, rotates, verifies and revokes the access/refresh token pairs used across the university IT portal.
//	@description
//	@description				Tokens are JWTs. Access tokens are short lived; refresh tokens rotate on every use and are revoked when exchanged.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/portalauth
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
//	@description				JWT access token. Format: "Bearer {token}". The portal_access cookie is accepted too.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn verifies the access token from the Authorization header or cookie.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.deps.Verifier.VerifyAccess, httpx.AuthnOptions[domain.TokenClaims]{
		CookieName: r.deps.Pairs.TransportFor(domain.TokenAccess).Name,
		Subject:    func(c domain.TokenClaims) string { return c.Subject },
		Internal:   func(err error) bool { return errors.Is(err, domain.ErrVerificationFailed) },
	})
}

func isAdmin(req *http.Request) bool {
	claims, ok := httpx.ClaimsFromContext[domain.TokenClaims](req.Context())
	return ok && claims.HasAttr("roles", AdminRole)
}

func (r *Router) registerSession() {
	// Login has two buckets. The per-address one caps how many accounts a
	// single client can try; the address and username one caps guesses
	// against one account. JSON bodies carry no form field and share the
	// per-address bucket in both.
	login := &LoginHandler{Directory: r.deps.Directory, Pairs: r.deps.Pairs}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.ModerateLimit),
			httpx.RateLimitByIPAndField(httpx.StrictLimit, "username"),
		),
	)

	refresh := &RefreshHandler{Pairs: r.deps.Pairs}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	logout := &LogoutHandler{Pairs: r.deps.Pairs}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logout,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(MeHandler(),
			r.authn(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerTokens() {
	revoke := &RevokeHandler{Pairs: r.deps.Pairs}
	r.Mux.Handle("POST /v1/auth/revoke",
		httpx.Chain(revoke,
			r.authn(),
			httpx.Require(isAdmin, "roles:"+AdminRole),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	introspect := &IntrospectHandler{Verifier: r.deps.Verifier}
	r.Mux.Handle("POST /v1/auth/introspect",
		httpx.Chain(introspect,
			r.authn(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.deps.Issuer),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.deps.Version),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.deps.Version, r.deps.Store, r.deps.Issuer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
