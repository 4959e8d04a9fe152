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

// Handler обрабатывает частичное обновление категории.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса категорий.
type Service interface {
	Update(ctx context.Context, actor *models.User, categoryID string, patch models.CategoryPatch) (*models.Category, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Обновить категорию
// @Description Применяет частичное обновление к категории. Снимки иконки и цвета в существующих POI не меняются.
// @Tags Categories
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID категории"
// @Param request body models.CategoryPatch true "Изменяемые поля"
// @Success 200 {object} map[string]any "Обновленная категория"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Категория не найдена"
// @Failure 409 {object} response.ErrorResponse "Имя категории уже занято"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /categories/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.category.update"

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

	var patch models.CategoryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	categoryID := chi.URLParam(r, "id")
	category, err := h.service.Update(r.Context(), actor, categoryID, patch)
	if err != nil {
		log.Error("failed to update category", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("category updated", slog.String("category_id", category.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"category": category,
	}))
}
