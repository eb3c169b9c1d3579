// Package middleware provides the route-level auth guard.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/quillhq/quill/pkg/auth"
	"github.com/quillhq/quill/pkg/config"
	"github.com/quillhq/quill/pkg/contextkeys"
	"github.com/quillhq/quill/pkg/httputil"
	"github.com/quillhq/quill/pkg/observability"
)

// AuthGuard validates bearer tokens on every route except those explicitly
// marked public. Routes are identified by their mux route name, so the
// public set survives path refactors.
type AuthGuard struct {
	tokens  *auth.TokenService
	cfg     config.AuthConfig
	logger  *observability.Logger
	metrics *observability.Metrics
	public  map[string]bool
}

// NewAuthGuard creates an auth guard with an empty public-route set
func NewAuthGuard(tokens *auth.TokenService, cfg config.AuthConfig, logger *observability.Logger, metrics *observability.Metrics) *AuthGuard {
	return &AuthGuard{
		tokens:  tokens,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		public:  make(map[string]bool),
	}
}

// MarkPublic registers route names that bypass token validation
func (g *AuthGuard) MarkPublic(names ...string) {
	for _, name := range names {
		g.public[name] = true
	}
}

// Middleware returns the guard as mux middleware
func (g *AuthGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := g.extractToken(r)
		if !ok {
			g.metrics.TokenFailuresTotal.WithLabelValues("missing").Inc()
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		claims, err := g.tokens.Validate(token)
		if err != nil {
			reason := "invalid"
			if err == auth.ErrExpiredToken {
				reason = "expired"
			}
			g.metrics.TokenFailuresTotal.WithLabelValues(reason).Inc()
			g.logger.WithRequest(r.Context()).WithError(err).Debug("token rejected")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithClaims(r.Context(), claims)
		ctx = contextkeys.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *AuthGuard) isPublic(r *http.Request) bool {
	route := mux.CurrentRoute(r)
	if route == nil {
		return false
	}
	return g.public[route.GetName()]
}

// extractToken pulls the token from the Authorization header, the token
// cookie, or both, depending on the configured transport. When both are
// allowed the header wins.
func (g *AuthGuard) extractToken(r *http.Request) (string, bool) {
	transport := g.cfg.TokenTransport

	if transport == config.TransportHeader || transport == config.TransportBoth {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token != "" {
				return token, true
			}
		}
	}

	if transport == config.TransportCookie || transport == config.TransportBoth {
		cookie, err := r.Cookie(g.cfg.CookieName)
		if err == nil && cookie.Value != "" {
			return cookie.Value, true
		}
	}

	return "", false
}
