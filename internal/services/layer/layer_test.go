package layer_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/services/layer"
	"github.com/magabrotheeeer/imaps-backend/internal/storage"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

func newService() *layer.Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return layer.New(repository.New(storage.NewMemory()), log)
}

func admin() *models.User {
	return &models.User{ID: "admin", Role: models.RoleAdmin}
}

func user() *models.User {
	return &models.User{ID: "u1", Role: models.RoleUser}
}

func TestListSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	s := newService()

	layers, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, layers, 4)

	active := 0
	for _, l := range layers {
		assert.Equal(t, layer.TypeBuiltin, l.Type)
		assert.True(t, l.IsDefault)
		if l.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, "osm", layers[0].ID)
	assert.True(t, layers[0].IsActive)
}

func TestActivateIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := newService()

	activated, err := s.Activate(ctx, user(), "dark")
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	layers, err := s.List(ctx)
	require.NoError(t, err)
	for _, l := range layers {
		assert.Equal(t, l.ID == "dark", l.IsActive)
	}

	_, err = s.Activate(ctx, user(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateAdminOnly(t *testing.T) {
	ctx := context.Background()
	s := newService()

	req := models.DummyLayer{Name: "Custom", URL: "https://tiles.example.com/{z}/{x}/{y}.png"}

	_, err := s.Create(ctx, user(), req)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	created, err := s.Create(ctx, admin(), req)
	require.NoError(t, err)
	assert.Equal(t, layer.TypeCustom, created.Type)
	assert.Equal(t, 19, created.MaxZoom)

	_, err = s.Create(ctx, admin(), models.DummyLayer{Name: "custom", URL: "https://other.example.com"})
	assert.ErrorIs(t, err, errs.ErrDuplicateName)
}

func TestDeleteRules(t *testing.T) {
	ctx := context.Background()
	s := newService()

	err := s.Delete(ctx, admin(), "osm")
	assert.ErrorIs(t, err, errs.ErrValidation)

	created, err := s.Create(ctx, admin(), models.DummyLayer{Name: "Custom", URL: "https://tiles.example.com"})
	require.NoError(t, err)

	_, err = s.Activate(ctx, admin(), created.ID)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, admin(), created.ID))

	layers, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, layers, 4)
	assert.True(t, layers[0].IsActive)

	err = s.Delete(ctx, user(), "anything")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}
