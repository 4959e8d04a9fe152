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

// Handler обрабатывает удаление заметки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса заметок.
type Service interface {
	Delete(ctx context.Context, actor *models.User, noteID string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить заметку
// @Description Удаляет заметку. Пользователь может удалять только свои заметки.
// @Tags Notes
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID заметки"
// @Success 200 {object} map[string]any "Заметка удалена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Заметка принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Заметка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /notes/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.note.remove"

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

	noteID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), actor, noteID); err != nil {
		log.Error("failed to delete note", sl.Err(err))
		w.WriteHeader(response.StatusFor(err))
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("note deleted", slog.String("note_id", noteID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted": noteID,
	}))
}
