package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/irfansh/bugtracker/internal/auth"
	"github.com/irfansh/bugtracker/internal/authz"
	"github.com/irfansh/bugtracker/internal/bug"
	"github.com/irfansh/bugtracker/internal/project"
	"github.com/irfansh/bugtracker/internal/transport/middleware"
	"github.com/irfansh/bugtracker/internal/transport/swagger"
	"github.com/irfansh/bugtracker/internal/user"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, userHandler *user.Handler, projectHandler *project.Handler, bugHandler *bug.Handler, uploadsDir string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Swagger UI and spec live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	// Screenshot files are served straight off disk; references stored on
	// bugs resolve to /public/<name>.
	fileServer := http.StripPrefix("/public/", http.FileServer(http.Dir(uploadsDir)))
	router.Get("/public/*", fileServer.ServeHTTP)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", authHandler.Register)
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Post("/auth/logout", authHandler.Logout)

			pr.Route("/users", func(ur chi.Router) {
				// Listing every account is admin-only; the remaining user
				// routes decide per resource in the service.
				ur.With(auth.RequireRole(authz.RoleAdmin)).Get("/", userHandler.List)
				ur.Get("/{id}", userHandler.Get)
				ur.Patch("/{id}", userHandler.Update)
				ur.Delete("/{id}", userHandler.Delete)
			})

			pr.Route("/projects", func(prr chi.Router) {
				prr.Post("/", projectHandler.Create)
				prr.Get("/", projectHandler.List)
				prr.Get("/{id}", projectHandler.Get)
				prr.Patch("/{id}", projectHandler.Update)
				prr.Delete("/{id}", projectHandler.Delete)
			})

			pr.Route("/bugs", func(br chi.Router) {
				br.Post("/", bugHandler.Create)
				br.Get("/", bugHandler.List)
				br.Get("/{id}", bugHandler.Get)
				br.Patch("/{id}", bugHandler.Update)
				br.Delete("/{id}", bugHandler.Delete)
			})
		})
	})
}
