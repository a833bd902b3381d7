package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/tempus/internal/api/auth"
	"github.com/good-yellow-bee/tempus/internal/api/entries"
	"github.com/good-yellow-bee/tempus/internal/api/middleware"
	"github.com/good-yellow-bee/tempus/internal/api/projects"
	"github.com/good-yellow-bee/tempus/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret: s.config.JWTSecret,
		Issuer: s.config.JWTIssuer,
		TTL:    s.config.TokenTTL,
	})

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, &Error{
			Code:    ErrCodeBadRequest,
			Message: "method not allowed",
			Status:  http.StatusMethodNotAllowed,
		})
	})

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(s.storage, jwtService)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))

			r.Route("/projects", func(r chi.Router) {
				projectHandler := projects.NewHandler(s.storage)
				r.Get("/", projectHandler.List)
				r.Post("/", projectHandler.Create)
				r.Get("/{id}", projectHandler.GetByID)
				r.Put("/{id}", projectHandler.Update)
				r.Delete("/{id}", projectHandler.Delete)
			})

			r.Route("/time-entries", func(r chi.Router) {
				entryHandler := entries.NewHandler(s.storage)
				r.Post("/start", entryHandler.Start)
				r.Put("/{id}/stop", entryHandler.Stop)
				r.Get("/active", entryHandler.Active)
				r.Get("/", entryHandler.List)
				r.Post("/", entryHandler.Create)
				r.Patch("/{id}", entryHandler.Patch)
				r.Delete("/{id}", entryHandler.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				userHandler := users.NewHandler(s.storage)
				r.Get("/me", userHandler.Me)
			})
		})
	})

	// Health checks (public)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
