// Package session реализует управление учётными записями и сессиями:
// регистрацию, вход с проверкой роли, выход и денормализованную копию
// текущей сессии в Redis. Копия сессии обновляется при каждой мутации
// коллекций пользователя, чтобы не расходиться со справочником.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/imaps-backend/internal/config"
	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/password"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/plan"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

// Cache описывает хранилище сессионных копий (реализуется internal/cache).
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Manager отвечает за справочник пользователей и активные сессии.
type Manager struct {
	store *repository.Store
	cache Cache
	admin config.BootstrapAdmin
	ttl   time.Duration
}

// New создаёт Manager.
func New(store *repository.Store, cache Cache, admin config.BootstrapAdmin, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		cache: cache,
		admin: admin,
		ttl:   ttl,
	}
}

// Register создаёт пользователя с ролью user и тарифом free и сразу
// открывает его сессию (авто-вход). Email должен быть свободен.
func (m *Manager) Register(ctx context.Context, email, rawPassword, name string) (*models.User, error) {
	const op = "session.Register"

	if email == m.admin.Email {
		return nil, errs.ErrDuplicateUser
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   hash,
		Name:           name,
		Role:           models.RoleUser,
		Plan:           "free",
		CreatedAt:      time.Now().UTC(),
		POIs:           []models.POI{},
		Notes:          []models.Note{},
		CustomIcons:    []models.CustomIcon{},
		UserCategories: []models.Category{},
	}
	// Проверка уникальности email и вставка выполняются под блокировкой
	// справочника: два одновременных запроса с одним email не пройдут оба.
	err = m.store.UpdateUsers(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		if _, exists := users[email]; exists {
			return nil, errs.ErrDuplicateUser
		}
		users[email] = user
		return users, nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrDuplicateUser) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := m.put(ctx, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// Login проверяет пару email/пароль и открывает сессию. Если expectedRole
// задан и не совпадает с ролью учётной записи, вход отклоняется с ошибкой,
// указывающей правильную форму входа.
//
// Встроенный администратор аутентифицируется по данным из конфигурации;
// его представление собирается как объединение данных всех пользователей.
func (m *Manager) Login(ctx context.Context, email, rawPassword, expectedRole string) (*models.User, error) {
	const op = "session.Login"

	if m.admin.Email != "" && email == m.admin.Email {
		if err := password.CompareHash(m.admin.PasswordHash, rawPassword); err != nil {
			return nil, errs.ErrInvalidCredentials
		}
		if expectedRole != "" && expectedRole != models.RoleAdmin {
			return nil, &errs.RoleMismatchError{Expected: expectedRole, Actual: models.RoleAdmin}
		}
		admin, err := m.AdminView(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := m.put(ctx, admin); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return admin, nil
	}

	users, err := m.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, exists := users[email]
	if !exists {
		return nil, errs.ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, errs.ErrInvalidCredentials
	}
	if expectedRole != "" && expectedRole != user.Role {
		return nil, &errs.RoleMismatchError{Expected: expectedRole, Actual: user.Role}
	}
	if err := m.put(ctx, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// Current возвращает денормализованную копию сессии пользователя
// либо nil, если сессии нет.
func (m *Manager) Current(ctx context.Context, userID string) (*models.User, error) {
	const op = "session.Current"

	var user models.User
	found, err := m.cache.Get(ctx, sessionKey(userID), &user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// Logout закрывает сессию пользователя. Справочник не изменяется.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	const op = "session.Logout"

	if err := m.cache.Invalidate(ctx, sessionKey(userID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Refresh пересобирает сессионную копию пользователя, если его сессия
// открыта. Вызывается реестрами после каждой мутации коллекций.
func (m *Manager) Refresh(ctx context.Context, user *models.User) error {
	const op = "session.Refresh"

	existing, err := m.Current(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if existing == nil {
		return nil
	}
	if user.Role == models.RoleAdmin {
		admin, err := m.AdminView(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		user = admin
	}
	if err := m.put(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePlan переводит пользователя на другой тариф из закрытого набора.
// Неизвестный тариф отклоняется; тариф администратора изменить нельзя.
func (m *Manager) UpdatePlan(ctx context.Context, actor *models.User, newPlan string) (*models.User, error) {
	const op = "session.UpdatePlan"

	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	if !plan.Known(plan.Plan(newPlan)) {
		return nil, fmt.Errorf("%w: unknown plan %q", errs.ErrValidation, newPlan)
	}
	if actor.Role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin plan is fixed", errs.ErrValidation)
	}

	var user models.User
	err := m.store.UpdateUsers(ctx, func(users map[string]models.User) (map[string]models.User, error) {
		u, exists := users[actor.Email]
		if !exists {
			return nil, fmt.Errorf("%w: user %q", errs.ErrNotFound, actor.Email)
		}
		u.Plan = newPlan
		users[actor.Email] = u
		user = u
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	if err := m.Refresh(ctx, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// AdminView собирает представление администратора: его коллекции POI,
// заметок и иконок — это объединение глобальных админских списков
// и коллекций всех пользователей. Собственных данных у администратора нет.
func (m *Manager) AdminView(ctx context.Context) (*models.User, error) {
	const op = "session.AdminView"

	users, err := m.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	pois, err := m.store.AdminPOIs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	notes, err := m.store.AdminNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	icons, err := m.store.AdminIcons(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	emails := make([]string, 0, len(users))
	for email := range users {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	for _, email := range emails {
		u := users[email]
		pois = append(pois, u.POIs...)
		notes = append(notes, u.Notes...)
		icons = append(icons, u.CustomIcons...)
	}

	return &models.User{
		ID:          "admin",
		Email:       m.admin.Email,
		Name:        m.admin.Name,
		Role:        models.RoleAdmin,
		Plan:        "unlimited",
		POIs:        pois,
		Notes:       notes,
		CustomIcons: icons,
	}, nil
}

func (m *Manager) put(ctx context.Context, user *models.User) error {
	return m.cache.Set(ctx, sessionKey(user.ID), user, m.ttl)
}

func sessionKey(userID string) string {
	return "session:user:" + userID
}
