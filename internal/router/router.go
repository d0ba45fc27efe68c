package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-auth-service/internal/config"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Health *handler.HealthHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
	h Handlers,
) http.Handler {
	r := chi.NewRouter()
	admins := middleware.Roles(model.RoleAdmin)

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)

	r.Route("/api", func(api chi.Router) {
		api.Use(rateLimit.Handler)
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(authMiddleware.RequireAuth)

			users.With(authMiddleware.RequireRoles(admins)).Get("/", h.User.List)
			users.With(authMiddleware.RequireRoles(admins)).Post("/", h.User.Create)
			users.Get("/{id}", h.User.Get)
			users.With(authMiddleware.RequireRoles(admins)).Patch("/{id}", h.User.Update)
			users.With(authMiddleware.RequireRoles(admins)).Delete("/{id}", h.User.Delete)
		})
	})

	return r
}
