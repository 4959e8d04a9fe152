// Package imaps собирает приложение: хранилище, кэш сессий, брокер событий,
// сервисы и HTTP-сервер с graceful shutdown.
package imaps

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/imaps-backend/internal/cache"
	"github.com/magabrotheeeer/imaps-backend/internal/config"
	"github.com/magabrotheeeer/imaps-backend/internal/events"
	jwtlib "github.com/magabrotheeeer/imaps-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/sl"
	"github.com/magabrotheeeer/imaps-backend/internal/migrations"
	authservice "github.com/magabrotheeeer/imaps-backend/internal/services/auth"
	categoryservice "github.com/magabrotheeeer/imaps-backend/internal/services/category"
	iconservice "github.com/magabrotheeeer/imaps-backend/internal/services/icon"
	layerservice "github.com/magabrotheeeer/imaps-backend/internal/services/layer"
	noteservice "github.com/magabrotheeeer/imaps-backend/internal/services/note"
	poiservice "github.com/magabrotheeeer/imaps-backend/internal/services/poi"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
	"github.com/magabrotheeeer/imaps-backend/internal/storage"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

// App хранит собранные зависимости сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	events events.Publisher
}

// New инициализирует все зависимости и возвращает готовое приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPConnectionString != "" {
		amqpPublisher, err := events.Connect(cfg.AMQPConnectionString)
		if err != nil {
			logger.Warn("event broker unavailable, events disabled", sl.Err(err))
		} else {
			publisher = amqpPublisher
		}
	}

	store := repository.New(db)
	sessions := session.New(store, cacheRedis, cfg.BootstrapAdmin, cfg.TokenTTL)
	jwtMaker := jwtlib.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	services := Services{
		Auth:       authservice.New(sessions, jwtMaker),
		Sessions:   sessions,
		Categories: categoryservice.New(store, sessions, publisher, logger),
		POIs:       poiservice.New(store, sessions, publisher, logger),
		Notes:      noteservice.New(store, sessions, publisher, logger),
		Icons:      iconservice.New(store, sessions, logger),
		Layers:     layerservice.New(store, logger),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		events: publisher,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closer, ok := a.events.(*events.AMQPPublisher); ok {
			if cerr := closer.Close(); cerr != nil {
				a.logger.Warn("failed to close event broker", sl.Err(cerr))
			}
		}
		if dberr := a.db.DB.Close(); dberr != nil {
			a.logger.Warn("failed to close storage", sl.Err(dberr))
		}
		return err
	}
}
