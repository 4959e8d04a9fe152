package update

import (
	"context"
	"encoding/json"
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

// Handler обрабатывает частичное обновление точки интереса.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса точек интереса.
type Service interface {
	Update(ctx context.Context, actor *models.User, poiID string, patch models.POIPatch) (*models.POI, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Обновить точку интереса
// @Description Применяет частичное обновление к точке. Пользователь может менять только свои точки.
// @Tags POIs
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID точки"
// @Param request body models.POIPatch true "Изменяемые поля"
// @Success 200 {object} map[string]any "Обновленная точка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Точка принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Точка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /pois/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.poi.update"

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

	var patch models.POIPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	poiID := chi.URLParam(r, "id")
	poi, err := h.service.Update(r.Context(), actor, poiID, patch)
	if err != nil {
		log.Error("failed to update poi", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("poi updated", slog.String("poi_id", poi.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"poi": poi,
	}))
}
