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

// Handler обрабатывает удаление точки интереса.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса точек интереса.
type Service interface {
	Delete(ctx context.Context, actor *models.User, poiID string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить точку интереса
// @Description Удаляет точку. Пользователь может удалять только свои точки.
// @Tags POIs
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID точки"
// @Success 200 {object} map[string]any "Точка удалена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Точка принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Точка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /pois/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.poi.remove"

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

	poiID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), actor, poiID); err != nil {
		log.Error("failed to delete poi", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("poi deleted", slog.String("poi_id", poiID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted": poiID,
	}))
}
