// Package imaps предоставляет маршруты для основного приложения.
package imaps

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	loginhandler "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/auth/login"
	logouthandler "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/auth/logout"
	registerhandler "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/auth/register"
	categorycreate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/category/create"
	categorylist "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/category/list"
	categoryremove "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/category/remove"
	categoryupdate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/category/update"
	healthhandler "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/health"
	iconcreate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/icon/create"
	iconlist "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/icon/list"
	iconremove "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/icon/remove"
	layeractivate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/layer/activate"
	layercreate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/layer/create"
	layerlist "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/layer/list"
	layerremove "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/layer/remove"
	notecreate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/note/create"
	notelist "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/note/list"
	noteremove "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/note/remove"
	noteupdate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/note/update"
	planupdate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/plan/update"
	poicreate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/poi/create"
	poilist "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/poi/list"
	poiremove "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/poi/remove"
	poiupdate "github.com/magabrotheeeer/imaps-backend/internal/http/handlers/poi/update"
	"github.com/magabrotheeeer/imaps-backend/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/imaps-backend/internal/services/auth"
	categoryservice "github.com/magabrotheeeer/imaps-backend/internal/services/category"
	iconservice "github.com/magabrotheeeer/imaps-backend/internal/services/icon"
	layerservice "github.com/magabrotheeeer/imaps-backend/internal/services/layer"
	noteservice "github.com/magabrotheeeer/imaps-backend/internal/services/note"
	poiservice "github.com/magabrotheeeer/imaps-backend/internal/services/poi"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
)

// Services перечисляет сервисы, обслуживающие маршруты приложения.
type Services struct {
	Auth       *authservice.Service
	Sessions   *session.Manager
	Categories *categoryservice.Service
	POIs       *poiservice.Service
	Notes      *noteservice.Service
	Icons      *iconservice.Service
	Layers     *layerservice.Service
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", registerhandler.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/login", loginhandler.New(logger, s.Auth).ServeHTTP)
		r.Get("/health", healthhandler.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/auth/logout", logouthandler.New(logger, s.Auth).ServeHTTP)

			r.Get("/categories", categorylist.New(logger, s.Categories).ServeHTTP)
			r.Post("/categories", categorycreate.New(logger, s.Categories).ServeHTTP)
			r.Patch("/categories/{id}", categoryupdate.New(logger, s.Categories).ServeHTTP)
			r.Delete("/categories/{id}", categoryremove.New(logger, s.Categories).ServeHTTP)

			r.Get("/pois", poilist.New(logger, s.POIs).ServeHTTP)
			r.Post("/pois", poicreate.New(logger, s.POIs).ServeHTTP)
			r.Patch("/pois/{id}", poiupdate.New(logger, s.POIs).ServeHTTP)
			r.Delete("/pois/{id}", poiremove.New(logger, s.POIs).ServeHTTP)

			r.Get("/notes", notelist.New(logger, s.Notes).ServeHTTP)
			r.Post("/notes", notecreate.New(logger, s.Notes).ServeHTTP)
			r.Patch("/notes/{id}", noteupdate.New(logger, s.Notes).ServeHTTP)
			r.Delete("/notes/{id}", noteremove.New(logger, s.Notes).ServeHTTP)

			r.Get("/icons", iconlist.New(logger, s.Icons).ServeHTTP)
			r.Post("/icons", iconcreate.New(logger, s.Icons).ServeHTTP)
			r.Delete("/icons/{id}", iconremove.New(logger, s.Icons).ServeHTTP)

			r.Get("/layers", layerlist.New(logger, s.Layers).ServeHTTP)
			r.Post("/layers", layercreate.New(logger, s.Layers).ServeHTTP)
			r.Post("/layers/{id}/activate", layeractivate.New(logger, s.Layers).ServeHTTP)
			r.Delete("/layers/{id}", layerremove.New(logger, s.Layers).ServeHTTP)

			r.Put("/users/plan", planupdate.New(logger, s.Sessions).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
