package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/msomdec/agro-iam/internal/clientip"
	"github.com/msomdec/agro-iam/internal/domain"
	"github.com/msomdec/agro-iam/internal/service"
)

// Dependencies holds everything NewRouter wires into handlers.
type Dependencies struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Locations domain.LocationResolver
	// Limiter guards sign-up and sign-in; nil disables rate limiting.
	Limiter service.Limiter
	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler

	AllowedOrigins []string
	TokenTTL       time.Duration
	CookieSecure   bool
}

// NewRouter builds the HTTP handler for the whole API.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	// cors treats an empty origin list as "*", so only install it when configured.
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(clientip.Middleware)

	r.Get("/healthz", HandleHealthz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	users := NewUserHandler(deps.Auth, deps.Users, deps.Locations, deps.TokenTTL, deps.CookieSecure)
	requireAuth := func(next http.Handler) http.Handler {
		return RequireAuth(deps.Auth, next)
	}

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(deps.Limiter))
			r.Post("/sign-up", users.HandleSignUp)
			r.Post("/sign-in", users.HandleSignIn)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{id}", users.HandleGet)
			r.Put("/{id}/profile", users.HandleUpdateProfile)
			r.Put("/{id}/password", users.HandleUpdatePassword)
			r.Delete("/{id}", users.HandleDelete)
		})
	})

	return r
}
