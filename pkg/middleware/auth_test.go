package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/pkg/auth"
	"github.com/quillhq/quill/pkg/config"
	"github.com/quillhq/quill/pkg/contextkeys"
	"github.com/quillhq/quill/pkg/observability"
)

func newTestGuard(transport config.TokenTransport) (*AuthGuard, *auth.TokenService) {
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	cfg := config.AuthConfig{
		CookieName:     "access_token",
		TokenTransport: transport,
	}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewAuthGuard(tokens, cfg, logger, metrics), tokens
}

func newGuardedRouter(guard *AuthGuard) *mux.Router {
	router := mux.NewRouter()
	router.Use(guard.Middleware)
	router.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET").Name("test.public")
	router.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User-ID", contextkeys.GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}).Methods("GET").Name("test.protected")
	return router
}

func issueToken(t *testing.T, tokens *auth.TokenService) string {
	t.Helper()
	token, err := tokens.Issue(&auth.User{ID: "user-1", Email: "a@x.com", Role: auth.RoleUser})
	require.NoError(t, err)
	return token
}

func TestAuthGuardPublicRoutes(t *testing.T) {
	guard, _ := newTestGuard(config.TransportBoth)
	guard.MarkPublic("test.public")
	router := newGuardedRouter(guard)

	t.Run("public route passes without a token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/public", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("protected route rejects without a token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthGuardHeaderTransport(t *testing.T) {
	guard, tokens := newTestGuard(config.TransportHeader)
	router := newGuardedRouter(guard)
	token := issueToken(t, tokens)

	t.Run("bearer header accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Header().Get("X-User-ID"))
	})

	t.Run("cookie ignored in header-only mode", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthGuardCookieTransport(t *testing.T) {
	guard, tokens := newTestGuard(config.TransportCookie)
	router := newGuardedRouter(guard)
	token := issueToken(t, tokens)

	t.Run("cookie accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("header ignored in cookie-only mode", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthGuardRejectsBadTokens(t *testing.T) {
	guard, _ := newTestGuard(config.TransportBoth)
	router := newGuardedRouter(guard)

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := auth.NewTokenService([]byte("test-secret"), -time.Minute)
		token, err := expired.Issue(&auth.User{ID: "user-1"})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := auth.NewTokenService([]byte("other-secret"), time.Hour)
		token, err := other.Issue(&auth.User{ID: "user-1"})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthGuardHeaderWinsOverCookie(t *testing.T) {
	guard, tokens := newTestGuard(config.TransportBoth)
	router := newGuardedRouter(guard)
	token := issueToken(t, tokens)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "stale-garbage"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
