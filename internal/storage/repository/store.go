// Package repository реализует типизированный слой доступа к данным поверх
// KV-хранилища: справочник пользователей, глобальные админские коллекции
// и список тайловых слоёв. Каждая коллекция живёт под собственным ключом
// и читается/пишется целиком за одну операцию.
//
// Мутации коллекций выполняются через Update*-методы: колбэк получает
// актуальное значение и выполняется под блокировкой ключа, поэтому
// последовательность «прочитать, проверить квоту, записать» не может
// перемешаться между конкурирующими запросами.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/storage"
)

// Ключи коллекций в KV-хранилище.
const (
	keyUsers           = "imaps:users"
	keyAdminCategories = "imaps:admin:categories"
	keyAdminPOIs       = "imaps:admin:pois"
	keyAdminNotes      = "imaps:admin:notes"
	keyAdminIcons      = "imaps:admin:icons"
	keyTileLayers      = "imaps:layers"
)

// Store предоставляет типизированные операции над коллекциями сервиса.
type Store struct {
	kv storage.KV
}

// New создаёт Store поверх переданного KV-хранилища.
func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Users возвращает справочник пользователей, ключ — email.
func (s *Store) Users(ctx context.Context) (map[string]models.User, error) {
	users := make(map[string]models.User)
	if err := s.get(ctx, keyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SaveUsers сохраняет справочник пользователей целиком.
func (s *Store) SaveUsers(ctx context.Context, users map[string]models.User) error {
	return s.set(ctx, keyUsers, users)
}

// UpdateUsers атомарно изменяет справочник пользователей: fn получает
// актуальный справочник под блокировкой ключа и возвращает новый.
// Ошибка из fn отменяет запись.
func (s *Store) UpdateUsers(ctx context.Context, fn func(map[string]models.User) (map[string]models.User, error)) error {
	return update(ctx, s, keyUsers, func(users map[string]models.User) (map[string]models.User, error) {
		if users == nil {
			users = make(map[string]models.User)
		}
		return fn(users)
	})
}

// AdminCategories возвращает глобальный список категорий.
func (s *Store) AdminCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.get(ctx, keyAdminCategories, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// SaveAdminCategories сохраняет глобальный список категорий.
func (s *Store) SaveAdminCategories(ctx context.Context, categories []models.Category) error {
	return s.set(ctx, keyAdminCategories, categories)
}

// UpdateAdminCategories атомарно изменяет глобальный список категорий.
func (s *Store) UpdateAdminCategories(ctx context.Context, fn func([]models.Category) ([]models.Category, error)) error {
	return update(ctx, s, keyAdminCategories, fn)
}

// AdminPOIs возвращает глобальный список точек интереса.
func (s *Store) AdminPOIs(ctx context.Context) ([]models.POI, error) {
	var pois []models.POI
	if err := s.get(ctx, keyAdminPOIs, &pois); err != nil {
		return nil, err
	}
	return pois, nil
}

// SaveAdminPOIs сохраняет глобальный список точек интереса.
func (s *Store) SaveAdminPOIs(ctx context.Context, pois []models.POI) error {
	return s.set(ctx, keyAdminPOIs, pois)
}

// UpdateAdminPOIs атомарно изменяет глобальный список точек интереса.
func (s *Store) UpdateAdminPOIs(ctx context.Context, fn func([]models.POI) ([]models.POI, error)) error {
	return update(ctx, s, keyAdminPOIs, fn)
}

// AdminNotes возвращает глобальный список заметок.
func (s *Store) AdminNotes(ctx context.Context) ([]models.Note, error) {
	var notes []models.Note
	if err := s.get(ctx, keyAdminNotes, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// SaveAdminNotes сохраняет глобальный список заметок.
func (s *Store) SaveAdminNotes(ctx context.Context, notes []models.Note) error {
	return s.set(ctx, keyAdminNotes, notes)
}

// UpdateAdminNotes атомарно изменяет глобальный список заметок.
func (s *Store) UpdateAdminNotes(ctx context.Context, fn func([]models.Note) ([]models.Note, error)) error {
	return update(ctx, s, keyAdminNotes, fn)
}

// AdminIcons возвращает глобальный список пользовательских иконок.
func (s *Store) AdminIcons(ctx context.Context) ([]models.CustomIcon, error) {
	var icons []models.CustomIcon
	if err := s.get(ctx, keyAdminIcons, &icons); err != nil {
		return nil, err
	}
	return icons, nil
}

// SaveAdminIcons сохраняет глобальный список пользовательских иконок.
func (s *Store) SaveAdminIcons(ctx context.Context, icons []models.CustomIcon) error {
	return s.set(ctx, keyAdminIcons, icons)
}

// UpdateAdminIcons атомарно изменяет глобальный список иконок.
func (s *Store) UpdateAdminIcons(ctx context.Context, fn func([]models.CustomIcon) ([]models.CustomIcon, error)) error {
	return update(ctx, s, keyAdminIcons, fn)
}

// TileLayers возвращает сохранённый список тайловых слоёв.
func (s *Store) TileLayers(ctx context.Context) ([]models.TileLayer, error) {
	var layers []models.TileLayer
	if err := s.get(ctx, keyTileLayers, &layers); err != nil {
		return nil, err
	}
	return layers, nil
}

// SaveTileLayers сохраняет список тайловых слоёв.
func (s *Store) SaveTileLayers(ctx context.Context, layers []models.TileLayer) error {
	return s.set(ctx, keyTileLayers, layers)
}

// UpdateTileLayers атомарно изменяет список тайловых слоёв.
func (s *Store) UpdateTileLayers(ctx context.Context, fn func([]models.TileLayer) ([]models.TileLayer, error)) error {
	return update(ctx, s, keyTileLayers, fn)
}

func (s *Store) get(ctx context.Context, key string, dst any) error {
	const op = "repository.get"

	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func update[T any](ctx context.Context, s *Store, key string, fn func(T) (T, error)) error {
	const op = "repository.update"

	return s.kv.Update(ctx, key, func(raw []byte, found bool) ([]byte, error) {
		var value T
		if found {
			if err := json.Unmarshal(raw, &value); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		next, err := fn(value)
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return out, nil
	})
}

func (s *Store) set(ctx context.Context, key string, value any) error {
	const op = "repository.set"

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
