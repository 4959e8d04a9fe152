// Package icon реализует реестр пользовательских иконок маркеров.
// Загрузка иконок доступна только на тарифе, где она разрешена;
// пользователь видит глобальные админские иконки вместе со своими.
package icon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/plan"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

// Service реализует бизнес-логику работы с иконками.
type Service struct {
	store    *repository.Store
	sessions *session.Manager
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(store *repository.Store, sessions *session.Manager, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		log:      log,
	}
}

// ListForActor возвращает иконки, доступные действующему пользователю:
// пользователю — глобальные плюс собственные, администратору — все.
func (s *Service) ListForActor(ctx context.Context, actor *models.User) ([]models.CustomIcon, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	icons, err := s.store.AdminIcons(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	if models.ScopeFor(actor).Admin {
		emails := make([]string, 0, len(users))
		for email := range users {
			emails = append(emails, email)
		}
		sort.Strings(emails)
		for _, email := range emails {
			icons = append(icons, users[email].CustomIcons...)
		}
		return icons, nil
	}
	return append(icons, users[actor.Email].CustomIcons...), nil
}

// Add загружает новую иконку в область действующего пользователя.
// На тарифе без пользовательских иконок операция отклоняется.
func (s *Service) Add(ctx context.Context, actor *models.User, req models.DummyIcon) (*models.CustomIcon, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	if !plan.AllowsCustomIcons(plan.Plan(actor.Plan)) {
		return nil, fmt.Errorf("%w: custom icons are not available on plan %q", errs.ErrUnauthorized, actor.Plan)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: icon name must not be blank", errs.ErrValidation)
	}

	icon := models.CustomIcon{
		ID:        uuid.NewString(),
		Name:      name,
		Data:      req.Data,
		CreatedAt: time.Now().UTC(),
		UserID:    actor.ID,
	}

	if models.ScopeFor(actor).Admin {
		err := s.store.UpdateAdminIcons(ctx, func(icons []models.CustomIcon) ([]models.CustomIcon, error) {
			return append(icons, icon), nil
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
			user.CustomIcons = append(user.CustomIcons, icon)
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

	s.log.Info("added custom icon",
		slog.String("icon_id", icon.ID), slog.String("user_id", actor.ID))
	return &icon, nil
}

// Delete удаляет иконку. Пользователь может удалить только свою.
func (s *Service) Delete(ctx context.Context, actor *models.User, iconID string) error {
	if actor == nil {
		return errs.ErrUnauthenticated
	}
	admin := models.ScopeFor(actor).Admin

	icons, err := s.store.AdminIcons(ctx)
	if err != nil {
		return err
	}
	for _, ic := range icons {
		if ic.ID != iconID {
			continue
		}
		if !admin {
			return errs.ErrUnauthorized
		}
		err := s.store.UpdateAdminIcons(ctx, func(icons []models.CustomIcon) ([]models.CustomIcon, error) {
			filtered := icons[:0:0]
			for _, keep := range icons {
				if keep.ID != iconID {
					filtered = append(filtered, keep)
				}
			}
			if len(filtered) == len(icons) {
				return nil, fmt.Errorf("%w: icon %q", errs.ErrNotFound, iconID)
			}
			return filtered, nil
		})
		if err != nil {
			return err
		}
		return s.sessions.Refresh(ctx, actor)
	}

	var owner models.User
	err = s.store.UpdateUsers(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		for email, u := range users {
			for _, ic := range u.CustomIcons {
				if ic.ID != iconID {
					continue
				}
				if !admin && ic.UserID != actor.ID {
					return nil, errs.ErrUnauthorized
				}
				filtered := u.CustomIcons[:0:0]
				for _, keep := range u.CustomIcons {
					if keep.ID != iconID {
						filtered = append(filtered, keep)
					}
				}
				u.CustomIcons = filtered
				users[email] = u
				owner = u
				return users, nil
			}
		}
		return nil, fmt.Errorf("%w: icon %q", errs.ErrNotFound, iconID)
	})
	if err != nil {
		return err
	}
	return s.sessions.Refresh(ctx, &owner)
}
