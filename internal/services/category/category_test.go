package category_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/imaps-backend/internal/config"
	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/events"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/password"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/services/category"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
	"github.com/magabrotheeeer/imaps-backend/internal/storage"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string, result any) (bool, error) {
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, result)
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

type env struct {
	service  *category.Service
	sessions *session.Manager
	store    *repository.Store
	user     *models.User
	admin    *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	adminHash, err := password.GetHash("admin-secret")
	require.NoError(t, err)

	store := repository.New(storage.NewMemory())
	sessions := session.New(store, newFakeCache(), config.BootstrapAdmin{
		Email:        "admin@imaps.local",
		PasswordHash: adminHash,
		Name:         "Administrator",
	}, time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := category.New(store, sessions, events.Noop{}, log)

	user, err := sessions.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	admin, err := sessions.Login(ctx, "admin@imaps.local", "admin-secret", models.RoleAdmin)
	require.NoError(t, err)

	return &env{service: service, sessions: sessions, store: store, user: user, admin: admin}
}

func TestCreateRequiresName(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.service.Create(ctx, e.user, models.DummyCategory{Name: "   "})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCreateDuplicateNameCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.service.Create(ctx, e.user, models.DummyCategory{Name: "Restaurants"})
	require.NoError(t, err)

	_, err = e.service.Create(ctx, e.user, models.DummyCategory{Name: "restaurants"})
	assert.ErrorIs(t, err, errs.ErrDuplicateName)
}

func TestCreateQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	for i := 0; i < 10; i++ {
		_, err := e.service.Create(ctx, e.user, models.DummyCategory{Name: fmt.Sprintf("Category %d", i)})
		require.NoError(t, err)
	}

	_, err := e.service.Create(ctx, e.user, models.DummyCategory{Name: "One Too Many"})
	var quota *errs.QuotaError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, errs.QuotaCategories, quota.Quota)
	assert.Equal(t, "free", quota.Plan)
	assert.Equal(t, 10, quota.Current)
	assert.Equal(t, float64(10), quota.Limit)

	categories, err := e.service.ListAvailable(ctx, e.user)
	require.NoError(t, err)
	assert.Len(t, categories, 10)
}

func TestScopesNeverMix(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.service.Create(ctx, e.admin, models.DummyCategory{Name: "Global"})
	require.NoError(t, err)
	_, err = e.service.Create(ctx, e.user, models.DummyCategory{Name: "Private"})
	require.NoError(t, err)

	userCategories, err := e.service.ListAvailable(ctx, e.user)
	require.NoError(t, err)
	require.Len(t, userCategories, 1)
	assert.Equal(t, "Private", userCategories[0].Name)

	adminCategories, err := e.service.ListAvailable(ctx, e.admin)
	require.NoError(t, err)
	require.Len(t, adminCategories, 1)
	assert.Equal(t, "Global", adminCategories[0].Name)
}

func TestCreateAppliesDefaultColor(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.service.Create(ctx, e.user, models.DummyCategory{Name: "Parks"})
	require.NoError(t, err)
	assert.Equal(t, "#9E9E9E", created.Color)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, e.user.ID, created.UserID)
}

func TestCreateRefreshesSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.service.Create(ctx, e.user, models.DummyCategory{Name: "Parks"})
	require.NoError(t, err)

	current, err := e.sessions.Current(ctx, e.user.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Len(t, current.UserCategories, 1)
	assert.Equal(t, "Parks", current.UserCategories[0].Name)
}

func TestUpdatePatchesFields(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.service.Create(ctx, e.user, models.DummyCategory{Name: "Parks", Color: "#00FF00"})
	require.NoError(t, err)

	newName := "City Parks"
	updated, err := e.service.Update(ctx, e.user, created.ID, models.CategoryPatch{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "City Parks", updated.Name)
	assert.Equal(t, "#00FF00", updated.Color)
	assert.True(t, updated.UpdatedAt.After(created.CreatedAt) || updated.UpdatedAt.Equal(created.CreatedAt))

	_, err = e.service.Update(ctx, e.user, "missing-id", models.CategoryPatch{Name: &newName})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteLeavesPOIsDangling(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.service.Create(ctx, e.user, models.DummyCategory{Name: "Parks"})
	require.NoError(t, err)

	users, err := e.store.Users(ctx)
	require.NoError(t, err)
	u := users[e.user.Email]
	u.POIs = append(u.POIs, models.POI{ID: "poi-1", CategoryID: created.ID, UserID: e.user.ID})
	users[e.user.Email] = u
	require.NoError(t, e.store.SaveUsers(ctx, users))

	require.NoError(t, e.service.Delete(ctx, e.user, created.ID))

	categories, err := e.service.ListAvailable(ctx, e.user)
	require.NoError(t, err)
	assert.Empty(t, categories)

	users, err = e.store.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users[e.user.Email].POIs, 1)
	assert.Equal(t, created.ID, users[e.user.Email].POIs[0].CategoryID)
}
