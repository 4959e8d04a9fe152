package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/imaps-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/imaps-backend/internal/http/response"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/sl"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
)

// Handler обрабатывает выход из системы.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса закрытия сессии.
type Service interface {
	Logout(ctx context.Context, actor *models.User) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выйти из системы
// @Description Закрывает сессию действующего пользователя; его JWT перестает приниматься.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Сессия закрыта"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actor, ok := middlewarectx.ActorFromContext(r.Context())
	if !ok {
		log.Error("actor not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Logout(r.Context(), actor); err != nil {
		log.Error("logout failed", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("user logged out", slog.String("user_id", actor.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "logged out",
	}))
}
