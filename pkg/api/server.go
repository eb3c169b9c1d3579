// Package api assembles the HTTP surface: router, middleware chain, and
// handler groups.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quillhq/quill/pkg/auth"
	"github.com/quillhq/quill/pkg/config"
	"github.com/quillhq/quill/pkg/httputil"
	"github.com/quillhq/quill/pkg/middleware"
	"github.com/quillhq/quill/pkg/notes"
	"github.com/quillhq/quill/pkg/observability"
	"github.com/quillhq/quill/pkg/todos"
)

// Server is the assembled API server
type Server struct {
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Deps carries everything the server needs wired in
type Deps struct {
	Config      *config.Config
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	AuthService *auth.Service
	Tokens      *auth.TokenService
	NoteService *notes.Service
	TodoService *todos.Service
}

// NewServer builds the router: middleware chain first, then the handler
// groups, then the public-route exemptions on the auth guard.
func NewServer(deps Deps) *Server {
	router := mux.NewRouter()

	guard := middleware.NewAuthGuard(deps.Tokens, deps.Config.Auth, deps.Logger, deps.Metrics)
	guard.MarkPublic(auth.RouteRegister, auth.RouteLogin)

	// Order matters: request IDs come first so logging and recovery can
	// tag their output, the guard runs last so rejected requests still
	// get logged and counted.
	router.Use(httputil.RequestIDMiddleware)
	router.Use(httputil.LoggingMiddleware(deps.Logger))
	router.Use(httputil.RecoveryMiddleware(deps.Logger))
	router.Use(deps.Metrics.Middleware)
	if len(deps.Config.Server.CORSAllowedOrigins) > 0 {
		router.Use(httputil.CORSMiddleware(deps.Config.Server.CORSAllowedOrigins))
	}
	router.Use(guard.Middleware)

	authHandlers := auth.NewHandlers(deps.AuthService, deps.Config.Auth, deps.Config.IsProduction(), deps.Metrics)
	authHandlers.RegisterRoutes(router)

	noteHandlers := notes.NewHandlers(deps.NoteService, deps.Logger)
	noteHandlers.RegisterRoutes(router)

	todoHandlers := todos.NewHandlers(deps.TodoService, deps.Logger)
	todoHandlers.RegisterRoutes(router)

	return &Server{
		router:  router,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// NewHealthRouter builds the internal router serving liveness,
// readiness, and metrics. It carries no auth guard and is meant to be
// bound to a non-public port.
func NewHealthRouter(checker *observability.HealthChecker, metrics *observability.Metrics) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", checker.Liveness).Methods("GET")
	router.HandleFunc("/readyz", checker.Readiness).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	return router
}
