// Package note реализует реестр заметок на карте. Правила владения те же,
// что и у точек интереса: администратор видит и меняет всё, пользователь —
// только своё. Квоты тарифного плана на заметки не распространяются.
//
// Мутации выполняются через атомарные Update*-операции хранилища, чтобы
// конкурентные запросы не затирали записи друг друга.
package note

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/events"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/sl"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

// Service реализует бизнес-логику работы с заметками.
type Service struct {
	store    *repository.Store
	sessions *session.Manager
	events   events.Publisher
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(store *repository.Store, sessions *session.Manager, pub events.Publisher, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		events:   pub,
		log:      log,
	}
}

// ListForActor возвращает заметки, видимые действующему пользователю.
func (s *Service) ListForActor(ctx context.Context, actor *models.User) ([]models.Note, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	if models.ScopeFor(actor).Admin {
		notes, err := s.store.AdminNotes(ctx)
		if err != nil {
			return nil, err
		}
		users, err := s.store.Users(ctx)
		if err != nil {
			return nil, err
		}
		emails := make([]string, 0, len(users))
		for email := range users {
			emails = append(emails, email)
		}
		sort.Strings(emails)
		for _, email := range emails {
			notes = append(notes, users[email].Notes...)
		}
		return notes, nil
	}

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	return users[actor.Email].Notes, nil
}

// Create создаёт заметку в области действующего пользователя.
func (s *Service) Create(ctx context.Context, actor *models.User, req models.DummyNote) (*models.Note, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: note title must not be blank", errs.ErrValidation)
	}

	now := time.Now().UTC()
	note := models.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   req.Content,
		Position:  models.Position{Lat: req.Lat, Lng: req.Lng},
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    actor.ID,
	}

	if models.ScopeFor(actor).Admin {
		err := s.store.UpdateAdminNotes(ctx, func(notes []models.Note) ([]models.Note, error) {
			return append(notes, note), nil
		})
		if err != nil {
			return nil, err
		}
		if err := s.sessions.Refresh(ctx, actor); err != nil {
			return nil, err
		}
	} else {
		var owner models.User
		err := s.store.UpdateUsers(ctx, func(users map[string]models.User) (map[string]models.User, error) {
			user, exists := users[actor.Email]
			if !exists {
				return nil, fmt.Errorf("%w: user %q", errs.ErrNotFound, actor.Email)
			}
			user.Notes = append(user.Notes, note)
			users[actor.Email] = user
			owner = user
			return users, nil
		})
		if err != nil {
			return nil, err
		}
		if err := s.sessions.Refresh(ctx, &owner); err != nil {
			return nil, err
		}
	}

	s.publish(events.RoutingNoteCreated, actor.ID, note.ID)
	s.log.Info("created note",
		slog.String("note_id", note.ID), slog.String("user_id", actor.ID))
	return &note, nil
}

// Update применяет частичное обновление к заметке.
func (s *Service) Update(ctx context.Context, actor *models.User, noteID string, patch models.NotePatch) (*models.Note, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	loc, err := s.locate(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, loc.note); err != nil {
		return nil, err
	}

	apply := func(n *models.Note) error {
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return fmt.Errorf("%w: note title must not be blank", errs.ErrValidation)
			}
			n.Title = title
		}
		if patch.Content != nil {
			n.Content = *patch.Content
		}
		n.UpdatedAt = time.Now().UTC()
		return nil
	}

	var updated models.Note
	if loc.adminOwned {
		err = s.store.UpdateAdminNotes(ctx, func(notes []models.Note) ([]models.Note, error) {
			for i := range notes {
				if notes[i].ID == noteID {
					if err := apply(&notes[i]); err != nil {
						return nil, err
					}
					updated = notes[i]
					return notes, nil
				}
			}
			return nil, fmt.Errorf("%w: note %q", errs.ErrNotFound, noteID)
		})
		if err != nil {
			return nil, err
		}
		if err := s.sessions.Refresh(ctx, actor); err != nil {
			return nil, err
		}
		return &updated, nil
	}

	var owner models.User
	err = s.store.UpdateUsers(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		user, exists := users[loc.ownerEmail]
		if !exists {
			return nil, fmt.Errorf("%w: note %q", errs.ErrNotFound, noteID)
		}
		for i := range user.Notes {
			if user.Notes[i].ID == noteID {
				if err := apply(&user.Notes[i]); err != nil {
					return nil, err
				}
				updated = user.Notes[i]
				users[loc.ownerEmail] = user
				owner = user
				return users, nil
			}
		}
		return nil, fmt.Errorf("%w: note %q", errs.ErrNotFound, noteID)
	})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Refresh(ctx, &owner); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete удаляет заметку. Чужая заметка возвращает ErrUnauthorized.
func (s *Service) Delete(ctx context.Context, actor *models.User, noteID string) error {
	if actor == nil {
		return errs.ErrUnauthenticated
	}
	loc, err := s.locate(ctx, noteID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, loc.note); err != nil {
		return err
	}

	if loc.adminOwned {
		err = s.store.UpdateAdminNotes(ctx, func(notes []models.Note) ([]models.Note, error) {
			filtered := removeByID(notes, noteID)
			if len(filtered) == len(notes) {
				return nil, fmt.Errorf("%w: note %q", errs.ErrNotFound, noteID)
			}
			return filtered, nil
		})
		if err != nil {
			return err
		}
		if err := s.sessions.Refresh(ctx, actor); err != nil {
			return err
		}
	} else {
		var owner models.User
		err = s.store.UpdateUsers(ctx, func(users map[string]models.User) (map[string]models.User, error) {
			user, exists := users[loc.ownerEmail]
			if !exists {
				return nil, fmt.Errorf("%w: note %q", errs.ErrNotFound, noteID)
			}
			filtered := removeByID(user.Notes, noteID)
			if len(filtered) == len(user.Notes) {
				return nil, fmt.Errorf("%w: note %q", errs.ErrNotFound, noteID)
			}
			user.Notes = filtered
			users[loc.ownerEmail] = user
			owner = user
			return users, nil
		})
		if err != nil {
			return err
		}
		if err := s.sessions.Refresh(ctx, &owner); err != nil {
			return err
		}
	}
	s.publish(events.RoutingNoteRemoved, actor.ID, noteID)
	return nil
}

type location struct {
	note       models.Note
	adminOwned bool
	ownerEmail string
}

// locate находит заметку во всех областях хранения. Снимок используется
// для проверки владения; сама мутация заново ищет заметку под блокировкой.
func (s *Service) locate(ctx context.Context, noteID string) (*location, error) {
	adminNotes, err := s.store.AdminNotes(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range adminNotes {
		if n.ID == noteID {
			return &location{note: n, adminOwned: true}, nil
		}
	}

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	for email, u := range users {
		for _, n := range u.Notes {
			if n.ID == noteID {
				return &location{note: n, ownerEmail: email}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: note %q", errs.ErrNotFound, noteID)
}

func (s *Service) authorize(actor *models.User, n models.Note) error {
	if models.ScopeFor(actor).Admin {
		return nil
	}
	if n.UserID != actor.ID {
		return errs.ErrUnauthorized
	}
	return nil
}

func (s *Service) publish(routingKey, userID, resourceID string) {
	event := events.Event{
		Kind:       routingKey,
		UserID:     userID,
		ResourceID: resourceID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(routingKey, event); err != nil {
		s.log.Warn("failed to publish event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

func removeByID(notes []models.Note, id string) []models.Note {
	filtered := notes[:0:0]
	for _, n := range notes {
		if n.ID != id {
			filtered = append(filtered, n)
		}
	}
	return filtered
}
