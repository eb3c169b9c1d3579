package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quillhq/quill/pkg/config"
	"github.com/quillhq/quill/pkg/httputil"
	"github.com/quillhq/quill/pkg/observability"
)

// Route names used by the auth guard's public-route table
const (
	RouteRegister = "auth.register"
	RouteLogin    = "auth.login"
	RouteLogout   = "auth.logout"
	RouteMe       = "auth.me"
)

// Handlers serves the authentication endpoints
type Handlers struct {
	service *Service
	cfg     config.AuthConfig
	secure  bool
	metrics *observability.Metrics
}

// NewHandlers creates the auth handler group. secure controls the Secure
// flag on the token cookie (on in production).
func NewHandlers(service *Service, cfg config.AuthConfig, secure bool, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		service: service,
		cfg:     cfg,
		secure:  secure,
		metrics: metrics,
	}
}

// RegisterRoutes registers authentication routes. Register and login are
// public; logout and me require a valid token.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.register).Methods("POST").Name(RouteRegister)
	router.HandleFunc("/auth/login", h.login).Methods("POST").Name(RouteLogin)
	router.HandleFunc("/auth/logout", h.logout).Methods("POST").Name(RouteLogout)
	router.HandleFunc("/auth/me", h.me).Methods("GET").Name(RouteMe)
}

// register handles POST /auth/register
func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "password is required")
		return
	}
	if req.Role != "" && !req.Role.Valid() {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.metrics.RegistrationsTotal.WithLabelValues("failure").Inc()
		if errors.Is(err, ErrDuplicateEmail) {
			httputil.WriteBadRequest(w, ErrDuplicateEmail.Error())
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to register user"))
		return
	}

	h.metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	httputil.WriteCreated(w, user)
}

// login handles POST /auth/login. On success the token travels back as an
// httpOnly cookie; the body carries only the identity view.
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
			// One message for both cases so the response does not
			// disclose which of email/password was wrong.
			httputil.WriteUnauthorized(w, "invalid credentials")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to log in"))
		return
	}

	http.SetCookie(w, h.tokenCookie(token, h.cfg.TokenTTL))
	h.metrics.LoginsTotal.WithLabelValues("success").Inc()
	httputil.WriteSuccess(w, map[string]interface{}{"user": user})
}

// logout handles POST /auth/logout: clears the token cookie with matching
// attributes. Always succeeds.
func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	cookie := h.tokenCookie("", 0)
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
	httputil.WriteSuccess(w, map[string]string{"message": "Logged out successfully"})
}

// me handles GET /auth/me: returns the claim-set view of the caller
func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	httputil.WriteSuccess(w, MeResponse{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	})
}

func (h *Handlers) tokenCookie(token string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	}
	return cookie
}
