package activate

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

// Handler обрабатывает активацию слоя карты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса слоев.
type Service interface {
	Activate(ctx context.Context, actor *models.User, layerID string) (*models.TileLayer, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Активировать слой карты
// @Description Делает слой активным; остальные слои деактивируются.
// @Tags Layers
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID слоя"
// @Success 200 {object} map[string]any "Активированный слой"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Слой не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /layers/{id}/activate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.layer.activate"

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
	layer, err := h.service.Activate(r.Context(), actor, layerID)
	if err != nil {
		log.Error("failed to activate layer", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("layer activated", slog.String("layer_id", layer.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"layer": layer,
	}))
}
