// Package layer реализует реестр тайловых слоёв карты. Встроенные слои
// создаются при первом обращении и не удаляются; в каждый момент ровно
// один слой активен. Добавлять и удалять пользовательские слои может
// только администратор.
package layer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

// Типы слоёв.
const (
	TypeBuiltin = "builtin"
	TypeCustom  = "custom"
)

// Service реализует бизнес-логику работы со слоями карты.
type Service struct {
	store *repository.Store
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(store *repository.Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
	}
}

// defaultLayers возвращает встроенный набор слоёв. Активен первый.
func defaultLayers() []models.TileLayer {
	return []models.TileLayer{
		{
			ID:          "osm",
			Name:        "OpenStreetMap",
			Type:        TypeBuiltin,
			URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenStreetMap contributors",
			IsActive:    true,
			IsDefault:   true,
			MaxZoom:     19,
		},
		{
			ID:          "satellite",
			Name:        "Satellite",
			Type:        TypeBuiltin,
			URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
			Attribution: "© Esri",
			IsDefault:   true,
			MaxZoom:     19,
		},
		{
			ID:          "topo",
			Name:        "Topographic",
			Type:        TypeBuiltin,
			URL:         "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenTopoMap contributors",
			IsDefault:   true,
			MaxZoom:     17,
		},
		{
			ID:          "dark",
			Name:        "Dark",
			Type:        TypeBuiltin,
			URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
			Attribution: "© CARTO",
			IsDefault:   true,
			MaxZoom:     19,
		},
	}
}

// List возвращает все слои, создавая встроенный набор при первом обращении.
// Если по какой-то причине активного слоя нет, активируется первый.
// Посев и починка выполняются атомарно, чтобы два одновременных первых
// обращения не посеяли набор дважды.
func (s *Service) List(ctx context.Context) ([]models.TileLayer, error) {
	layers, err := s.store.TileLayers(ctx)
	if err != nil {
		return nil, err
	}
	if len(layers) > 0 && hasActive(layers) {
		return layers, nil
	}

	var result []models.TileLayer
	err = s.store.UpdateTileLayers(ctx, func(current []models.TileLayer) ([]models.TileLayer, error) {
		if len(current) == 0 {
			current = defaultLayers()
		}
		if !hasActive(current) {
			current[0].IsActive = true
		}
		result = current
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func hasActive(layers []models.TileLayer) bool {
	for _, l := range layers {
		if l.IsActive {
			return true
		}
	}
	return false
}

// Create добавляет пользовательский слой. Доступно только администратору.
func (s *Service) Create(ctx context.Context, actor *models.User, req models.DummyLayer) (*models.TileLayer, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	if !models.ScopeFor(actor).Admin {
		return nil, errs.ErrUnauthorized
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: layer name must not be blank", errs.ErrValidation)
	}

	maxZoom := req.MaxZoom
	if maxZoom == 0 {
		maxZoom = 19
	}
	newLayer := models.TileLayer{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        TypeCustom,
		URL:         req.URL,
		Attribution: req.Attribution,
		MaxZoom:     maxZoom,
	}
	err := s.store.UpdateTileLayers(ctx, func(layers []models.TileLayer) ([]models.TileLayer, error) {
		if len(layers) == 0 {
			layers = defaultLayers()
		}
		for _, l := range layers {
			if strings.EqualFold(l.Name, name) {
				return nil, fmt.Errorf("%w: layer %q", errs.ErrDuplicateName, name)
			}
		}
		return append(layers, newLayer), nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("created tile layer",
		slog.String("layer_id", newLayer.ID), slog.String("user_id", actor.ID))
	return &newLayer, nil
}

// Activate делает слой активным; прочие слои деактивируются.
func (s *Service) Activate(ctx context.Context, actor *models.User, layerID string) (*models.TileLayer, error) {
	if actor == nil {
		return nil, errs.ErrUnauthenticated
	}
	var activated models.TileLayer
	err := s.store.UpdateTileLayers(ctx, func(layers []models.TileLayer) ([]models.TileLayer, error) {
		if len(layers) == 0 {
			layers = defaultLayers()
		}
		idx := -1
		for i, l := range layers {
			if l.ID == layerID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("%w: layer %q", errs.ErrNotFound, layerID)
		}
		for i := range layers {
			layers[i].IsActive = i == idx
		}
		activated = layers[idx]
		return layers, nil
	})
	if err != nil {
		return nil, err
	}
	return &activated, nil
}

// Delete удаляет пользовательский слой. Встроенные слои удалить нельзя.
// Если удалён активный слой, активируется первый оставшийся.
func (s *Service) Delete(ctx context.Context, actor *models.User, layerID string) error {
	if actor == nil {
		return errs.ErrUnauthenticated
	}
	if !models.ScopeFor(actor).Admin {
		return errs.ErrUnauthorized
	}
	return s.store.UpdateTileLayers(ctx, func(layers []models.TileLayer) ([]models.TileLayer, error) {
		if len(layers) == 0 {
			layers = defaultLayers()
		}
		wasActive := false
		filtered := layers[:0:0]
		found := false
		for _, l := range layers {
			if l.ID == layerID {
				if l.IsDefault {
					return nil, fmt.Errorf("%w: builtin layer %q cannot be removed", errs.ErrValidation, layerID)
				}
				found = true
				wasActive = l.IsActive
				continue
			}
			filtered = append(filtered, l)
		}
		if !found {
			return nil, fmt.Errorf("%w: layer %q", errs.ErrNotFound, layerID)
		}
		if wasActive && len(filtered) > 0 {
			filtered[0].IsActive = true
		}
		return filtered, nil
	})
}
