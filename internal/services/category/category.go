// Package category реализует реестр категорий POI: просмотр, создание,
// обновление и удаление с проверкой квот тарифного плана. Категории живут
// либо в глобальной админской области, либо в приватной области пользователя;
// для обычного пользователя эти области никогда не смешиваются.
package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/events"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/sl"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/plan"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

// Цвет по умолчанию для категории без явного цвета.
const defaultColor = "#9E9E9E"

// Service реализует бизнес-логику работы с категориями.
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

// ListAvailable возвращает категории, доступные действующему пользователю:
// администратору — глобальный список, пользователю — только его приватный.
func (s *Service) ListAvailable(ctx context.Context, actor *models.User) ([]models.Category, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	scope := models.ScopeFor(actor)
	if scope.Admin {
		return s.store.AdminCategories(ctx)
	}
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	return users[actor.Email].UserCategories, nil
}

// CountInScope возвращает число категорий в области действующего пользователя.
func (s *Service) CountInScope(ctx context.Context, actor *models.User) (int, error) {
	categories, err := s.ListAvailable(ctx, actor)
	if err != nil {
		return 0, err
	}
	return len(categories), nil
}

// Create создаёт категорию в области действующего пользователя.
// Имя обязательно и уникально внутри области без учёта регистра;
// число категорий ограничено квотой тарифа.
func (s *Service) Create(ctx context.Context, actor *models.User, req models.DummyCategory) (*models.Category, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name must not be blank", errs.ErrValidation)
	}

	now := time.Now().UTC()
	color := req.Color
	if color == "" {
		color = defaultColor
	}
	category := models.Category{
		ID:           uuid.NewString(),
		Name:         name,
		Color:        color,
		SelectedIcon: req.SelectedIcon,
		CustomIcon:   req.CustomIcon,
		Description:  req.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
		UserID:       actor.ID,
	}

	p := plan.Plan(actor.Plan)
	err := s.updateScope(ctx, actor, func(existing []models.Category) ([]models.Category, error) {
		for _, c := range existing {
			if strings.EqualFold(c.Name, name) {
				return nil, fmt.Errorf("%w: category %q", errs.ErrDuplicateName, name)
			}
		}
		if !plan.CanCreateCategory(p, len(existing)) {
			return nil, &errs.QuotaError{
				Quota:   errs.QuotaCategories,
				Plan:    actor.Plan,
				Current: len(existing),
				Limit:   plan.LimitsFor(p).MaxCategories,
			}
		}
		return append(existing, category), nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.RoutingCategoryCreated, actor.ID, category.ID)
	s.log.Info("created category",
		slog.String("category_id", category.ID), slog.String("user_id", actor.ID))
	return &category, nil
}

// Update применяет частичное обновление к категории в области действующего
// пользователя и обновляет UpdatedAt. Уже созданные POI сохраняют снимок
// прежней иконки и цвета.
func (s *Service) Update(ctx context.Context, actor *models.User, categoryID string, patch models.CategoryPatch) (*models.Category, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	var updated models.Category
	err := s.updateScope(ctx, actor, func(categories []models.Category) ([]models.Category, error) {
		idx := -1
		for i, c := range categories {
			if c.ID == categoryID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("%w: category %q", errs.ErrNotFound, categoryID)
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return nil, fmt.Errorf("%w: category name must not be blank", errs.ErrValidation)
			}
			for i, c := range categories {
				if i != idx && strings.EqualFold(c.Name, name) {
					return nil, fmt.Errorf("%w: category %q", errs.ErrDuplicateName, name)
				}
			}
			categories[idx].Name = name
		}
		if patch.Color != nil {
			categories[idx].Color = *patch.Color
		}
		if patch.SelectedIcon != nil {
			categories[idx].SelectedIcon = *patch.SelectedIcon
		}
		if patch.CustomIcon != nil {
			categories[idx].CustomIcon = *patch.CustomIcon
		}
		if patch.Description != nil {
			categories[idx].Description = *patch.Description
		}
		categories[idx].UpdatedAt = time.Now().UTC()
		updated = categories[idx]
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete удаляет категорию из области действующего пользователя.
// POI, ссылающиеся на неё, не удаляются и сохраняют висячий categoryId
// вместе со снимком иконки и цвета.
func (s *Service) Delete(ctx context.Context, actor *models.User, categoryID string) error {
	if actor == nil {
		return errs.ErrUnauthenticated
	}
	err := s.updateScope(ctx, actor, func(categories []models.Category) ([]models.Category, error) {
		filtered := categories[:0:0]
		for _, c := range categories {
			if c.ID != categoryID {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) == len(categories) {
			return nil, fmt.Errorf("%w: category %q", errs.ErrNotFound, categoryID)
		}
		return filtered, nil
	})
	if err != nil {
		return err
	}
	s.publish(events.RoutingCategoryRemoved, actor.ID, categoryID)
	return nil
}

// updateScope атомарно изменяет список категорий в области действующего
// пользователя: fn выполняется под блокировкой ключа, поэтому проверки
// дубликатов и квот нельзя обойти конкурентными запросами. После записи
// пересобирается сессионная копия владельца.
func (s *Service) updateScope(ctx context.Context, actor *models.User, fn func([]models.Category) ([]models.Category, error)) error {
	if models.ScopeFor(actor).Admin {
		if err := s.store.UpdateAdminCategories(ctx, fn); err != nil {
			return err
		}
		return s.sessions.Refresh(ctx, actor)
	}

	var owner models.User
	err := s.store.UpdateUsers(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		user, exists := users[actor.Email]
		if !exists {
			return nil, fmt.Errorf("%w: user %q", errs.ErrNotFound, actor.Email)
		}
		updated, err := fn(user.UserCategories)
		if err != nil {
			return nil, err
		}
		user.UserCategories = updated
		users[actor.Email] = user
		owner = user
		return users, nil
	})
	if err != nil {
		return err
	}
	return s.sessions.Refresh(ctx, &owner)
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
