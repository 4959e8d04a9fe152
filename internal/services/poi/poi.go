// Package poi реализует реестр точек интереса: просмотр, создание с двойной
// проверкой квот (общий лимит и лимит на категорию), обновление и удаление
// с контролем владения. Иконка и цвет категории копируются в точку в момент
// создания (снимок) и далее живут независимо от категории.
//
// Мутации выполняются через атомарные Update*-операции хранилища: проверка
// квоты и запись происходят под блокировкой ключа, поэтому конкурентные
// запросы не обходят лимиты и не затирают записи друг друга.
package poi

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
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

// Service реализует бизнес-логику работы с точками интереса.
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

// ListForActor возвращает точки, видимые действующему пользователю:
// администратору — объединение глобального списка и точек всех
// пользователей, обычному пользователю — только его собственные.
func (s *Service) ListForActor(ctx context.Context, actor *models.User) ([]models.POI, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	if models.ScopeFor(actor).Admin {
		pois, err := s.store.AdminPOIs(ctx)
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
			pois = append(pois, users[email].POIs...)
		}
		return pois, nil
	}

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	return users[actor.Email].POIs, nil
}

// CountForActor возвращает общее число точек действующего пользователя.
func (s *Service) CountForActor(ctx context.Context, actor *models.User) (int, error) {
	pois, err := s.ListForActor(ctx, actor)
	if err != nil {
		return 0, err
	}
	return len(pois), nil
}

// CountInCategory возвращает число точек действующего пользователя
// в заданной категории.
func (s *Service) CountInCategory(ctx context.Context, actor *models.User, categoryID string) (int, error) {
	pois, err := s.ListForActor(ctx, actor)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, p := range pois {
		if p.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

// Create создаёт точку интереса. Операция атомарна с точки зрения
// вызывающего: либо точка записана со всеми инвариантами, либо операция
// отклонена и ничего не сохранено.
//
// Проверки по порядку: аутентификация, корректность координат и заголовка,
// общий лимит точек тарифа, затем — если указана категория — её наличие
// в области пользователя и лимит точек на категорию. Для обычного
// пользователя все проверки и запись выполняются одним атомарным
// изменением справочника.
func (s *Service) Create(ctx context.Context, actor *models.User, req models.DummyPOI) (*models.POI, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	if !isFinite(req.Lat) || !isFinite(req.Lng) {
		return nil, fmt.Errorf("%w: position must be two finite numbers", errs.ErrValidation)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be blank", errs.ErrValidation)
	}

	p := plan.Plan(actor.Plan)
	now := time.Now().UTC()
	newPOI := models.POI{
		ID:          uuid.NewString(),
		Position:    models.Position{Lat: req.Lat, Lng: req.Lng},
		Coords:      fmt.Sprintf("%.6f, %.6f", req.Lat, req.Lng),
		Title:       title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      actor.ID,
		UserName:    actor.Name,
		UserEmail:   actor.Email,
	}

	if models.ScopeFor(actor).Admin {
		if err := s.createAdmin(ctx, actor, p, req, &newPOI); err != nil {
			return nil, err
		}
	} else {
		if err := s.createOwned(ctx, actor, p, req, &newPOI); err != nil {
			return nil, err
		}
	}

	s.publish(events.RoutingPOICreated, actor.ID, newPOI.ID)
	s.log.Info("created poi",
		slog.String("poi_id", newPOI.ID), slog.String("user_id", actor.ID))
	return &newPOI, nil
}

// createAdmin добавляет точку в глобальный админский список. Тариф
// администратора безлимитный, поэтому проверки квот здесь вакуумные,
// но сохранены на случай нераспознанного тарифа.
func (s *Service) createAdmin(ctx context.Context, actor *models.User, p plan.Plan, req models.DummyPOI, newPOI *models.POI) error {
	total, err := s.CountForActor(ctx, actor)
	if err != nil {
		return err
	}
	if !plan.CanAddPOI(p, total) {
		return &errs.QuotaError{
			Quota:   errs.QuotaTotalPOIs,
			Plan:    actor.Plan,
			Current: total,
			Limit:   plan.LimitsFor(p).TotalPOILimit,
		}
	}
	if req.CategoryID != "" {
		categories, err := s.store.AdminCategories(ctx)
		if err != nil {
			return err
		}
		var category *models.Category
		for i := range categories {
			if categories[i].ID == req.CategoryID {
				category = &categories[i]
				break
			}
		}
		if category == nil {
			return fmt.Errorf("%w: category %q", errs.ErrNotFound, req.CategoryID)
		}
		inCategory, err := s.CountInCategory(ctx, actor, req.CategoryID)
		if err != nil {
			return err
		}
		if !plan.CanAddPOIToCategory(p, inCategory) {
			return &errs.QuotaError{
				Quota:   errs.QuotaCategoryPOIs,
				Plan:    actor.Plan,
				Current: inCategory,
				Limit:   plan.LimitsFor(p).MaxPOIsPerCategory,
			}
		}
		snapshotAppearance(newPOI, *category)
	}

	err = s.store.UpdateAdminPOIs(ctx, func(pois []models.POI) ([]models.POI, error) {
		return append(pois, *newPOI), nil
	})
	if err != nil {
		return err
	}
	return s.sessions.Refresh(ctx, actor)
}

// createOwned добавляет точку в приватный список пользователя. Квоты
// проверяются внутри атомарного изменения справочника, чтобы счётчик
// не устаревал между проверкой и записью.
func (s *Service) createOwned(ctx context.Context, actor *models.User, p plan.Plan, req models.DummyPOI, newPOI *models.POI) error {
	var owner models.User
	err := s.store.UpdateUsers(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		user, exists := users[actor.Email]
		if !exists {
			return nil, fmt.Errorf("%w: user %q", errs.ErrNotFound, actor.Email)
		}
		if !plan.CanAddPOI(p, len(user.POIs)) {
			return nil, &errs.QuotaError{
				Quota:   errs.QuotaTotalPOIs,
				Plan:    actor.Plan,
				Current: len(user.POIs),
				Limit:   plan.LimitsFor(p).TotalPOILimit,
			}
		}
		if req.CategoryID != "" {
			var category *models.Category
			for i := range user.UserCategories {
				if user.UserCategories[i].ID == req.CategoryID {
					category = &user.UserCategories[i]
					break
				}
			}
			if category == nil {
				return nil, fmt.Errorf("%w: category %q", errs.ErrNotFound, req.CategoryID)
			}
			inCategory := 0
			for _, existing := range user.POIs {
				if existing.CategoryID == req.CategoryID {
					inCategory++
				}
			}
			if !plan.CanAddPOIToCategory(p, inCategory) {
				return nil, &errs.QuotaError{
					Quota:   errs.QuotaCategoryPOIs,
					Plan:    actor.Plan,
					Current: inCategory,
					Limit:   plan.LimitsFor(p).MaxPOIsPerCategory,
				}
			}
			snapshotAppearance(newPOI, *category)
		}
		user.POIs = append(user.POIs, *newPOI)
		users[actor.Email] = user
		owner = user
		return users, nil
	})
	if err != nil {
		return err
	}
	return s.sessions.Refresh(ctx, &owner)
}

// Update применяет частичное обновление к точке и обновляет UpdatedAt.
// Администратор может изменить любую точку; пользователь — только свою:
// чужая точка возвращает ErrUnauthorized без побочных эффектов.
func (s *Service) Update(ctx context.Context, actor *models.User, poiID string, patch models.POIPatch) (*models.POI, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	loc, err := s.locate(ctx, poiID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, loc.poi); err != nil {
		return nil, err
	}

	apply := func(p *models.POI) error {
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return fmt.Errorf("%w: title must not be blank", errs.ErrValidation)
			}
			p.Title = title
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.CategoryID != nil {
			p.CategoryID = *patch.CategoryID
		}
		if patch.IconColor != nil {
			p.IconColor = *patch.IconColor
		}
		p.UpdatedAt = time.Now().UTC()
		return nil
	}

	var updated models.POI
	if loc.adminOwned {
		err = s.store.UpdateAdminPOIs(ctx, func(pois []models.POI) ([]models.POI, error) {
			for i := range pois {
				if pois[i].ID == poiID {
					if err := apply(&pois[i]); err != nil {
						return nil, err
					}
					updated = pois[i]
					return pois, nil
				}
			}
			return nil, fmt.Errorf("%w: poi %q", errs.ErrNotFound, poiID)
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
			return nil, fmt.Errorf("%w: poi %q", errs.ErrNotFound, poiID)
		}
		for i := range user.POIs {
			if user.POIs[i].ID == poiID {
				if err := apply(&user.POIs[i]); err != nil {
					return nil, err
				}
				updated = user.POIs[i]
				users[loc.ownerEmail] = user
				owner = user
				return users, nil
			}
		}
		return nil, fmt.Errorf("%w: poi %q", errs.ErrNotFound, poiID)
	})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Refresh(ctx, &owner); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete удаляет точку. Правило владения то же, что и у Update.
func (s *Service) Delete(ctx context.Context, actor *models.User, poiID string) error {
	if actor == nil {
		return errs.ErrUnauthenticated
	}
	loc, err := s.locate(ctx, poiID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, loc.poi); err != nil {
		return err
	}

	if loc.adminOwned {
		err = s.store.UpdateAdminPOIs(ctx, func(pois []models.POI) ([]models.POI, error) {
			filtered := removeByID(pois, poiID)
			if len(filtered) == len(pois) {
				return nil, fmt.Errorf("%w: poi %q", errs.ErrNotFound, poiID)
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
				return nil, fmt.Errorf("%w: poi %q", errs.ErrNotFound, poiID)
			}
			filtered := removeByID(user.POIs, poiID)
			if len(filtered) == len(user.POIs) {
				return nil, fmt.Errorf("%w: poi %q", errs.ErrNotFound, poiID)
			}
			user.POIs = filtered
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
	s.publish(events.RoutingPOIRemoved, actor.ID, poiID)
	return nil
}

// location описывает, где именно лежит найденная точка.
type location struct {
	poi        models.POI
	adminOwned bool
	ownerEmail string
}

// locate находит точку во всех областях хранения. Снимок используется
// для проверки владения; сама мутация заново ищет точку под блокировкой.
func (s *Service) locate(ctx context.Context, poiID string) (*location, error) {
	adminPOIs, err := s.store.AdminPOIs(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range adminPOIs {
		if p.ID == poiID {
			return &location{poi: p, adminOwned: true}, nil
		}
	}

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	for email, u := range users {
		for _, p := range u.POIs {
			if p.ID == poiID {
				return &location{poi: p, ownerEmail: email}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: poi %q", errs.ErrNotFound, poiID)
}

// authorize проверяет право действующего пользователя на точку.
func (s *Service) authorize(actor *models.User, p models.POI) error {
	if models.ScopeFor(actor).Admin {
		return nil
	}
	if p.UserID != actor.ID {
		return errs.ErrUnauthorized
	}
	return nil
}

// snapshotAppearance копирует иконку и цвет категории в точку в момент
// создания; последующие правки категории точку не затрагивают.
func snapshotAppearance(p *models.POI, c models.Category) {
	p.SelectedIcon = c.SelectedIcon
	p.CustomIcon = c.CustomIcon
	p.IconColor = c.Color
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

func removeByID(pois []models.POI, id string) []models.POI {
	filtered := pois[:0:0]
	for _, p := range pois {
		if p.ID != id {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
