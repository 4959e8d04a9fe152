package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/imaps-backend/internal/http/response"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/sl"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
)

// Handler обрабатывает получение списка тайловых слоев.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса слоев.
type Service interface {
	List(ctx context.Context) ([]models.TileLayer, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список слоев карты
// @Description Возвращает все тайловые слои; при первом обращении создается встроенный набор.
// @Tags Layers
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список слоев"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /layers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.layer.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	layers, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list layers", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"layers": layers,
	}))
}
