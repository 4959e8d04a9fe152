package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/imaps-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/imaps-backend/internal/http/response"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/sl"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
)

// Handler обрабатывает удаление слоя карты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса слоев.
type Service interface {
	Delete(ctx context.Context, actor *models.User, layerID string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить слой карты
// @Description Удаляет пользовательский слой. Встроенные слои удалить нельзя. Доступно только администратору.
// @Tags Layers
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID слоя"
// @Success 200 {object} map[string]any "Слой удален"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Требуется роль администратора"
// @Failure 404 {object} response.ErrorResponse "Слой не найден"
// @Failure 422 {object} response.ErrorResponse "Встроенный слой удалить нельзя"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /layers/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.layer.remove"

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

	layerID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), actor, layerID); err != nil {
		log.Error("failed to delete layer", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("layer deleted", slog.String("layer_id", layerID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted": layerID,
	}))
}
