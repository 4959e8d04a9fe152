package icon_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/imaps-backend/internal/config"
	"github.com/magabrotheeeer/imaps-backend/internal/errs"
	"github.com/magabrotheeeer/imaps-backend/internal/lib/password"
	"github.com/magabrotheeeer/imaps-backend/internal/models"
	"github.com/magabrotheeeer/imaps-backend/internal/services/icon"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
	"github.com/magabrotheeeer/imaps-backend/internal/storage"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

const sampleData = "data:image/png;base64,iVBORw0KGgo="

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

func newEnv(t *testing.T) (*icon.Service, *session.Manager, *models.User, *models.User) {
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

	user, err := sessions.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	admin, err := sessions.Login(ctx, "admin@imaps.local", "admin-secret", models.RoleAdmin)
	require.NoError(t, err)

	return icon.New(store, sessions, log), sessions, user, admin
}

func TestAddRequiresUnlimitedPlan(t *testing.T) {
	ctx := context.Background()
	service, _, user, _ := newEnv(t)

	_, err := service.Add(ctx, user, models.DummyIcon{Name: "Star", Data: sampleData})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestAddOnUnlimitedPlan(t *testing.T) {
	ctx := context.Background()
	service, sessions, user, _ := newEnv(t)

	upgraded, err := sessions.UpdatePlan(ctx, user, "unlimited")
	require.NoError(t, err)

	added, err := service.Add(ctx, upgraded, models.DummyIcon{Name: "Star", Data: sampleData})
	require.NoError(t, err)
	assert.Equal(t, "Star", added.Name)
	assert.Equal(t, upgraded.ID, added.UserID)

	icons, err := service.ListForActor(ctx, upgraded)
	require.NoError(t, err)
	require.Len(t, icons, 1)
}

func TestUserSeesGlobalIcons(t *testing.T) {
	ctx := context.Background()
	service, _, user, admin := newEnv(t)

	_, err := service.Add(ctx, admin, models.DummyIcon{Name: "Global Star", Data: sampleData})
	require.NoError(t, err)

	icons, err := service.ListForActor(ctx, user)
	require.NoError(t, err)
	require.Len(t, icons, 1)
	assert.Equal(t, "Global Star", icons[0].Name)
}

func TestDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	service, sessions, user, admin := newEnv(t)

	global, err := service.Add(ctx, admin, models.DummyIcon{Name: "Global", Data: sampleData})
	require.NoError(t, err)

	err = service.Delete(ctx, user, global.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	upgraded, err := sessions.UpdatePlan(ctx, user, "unlimited")
	require.NoError(t, err)
	own, err := service.Add(ctx, upgraded, models.DummyIcon{Name: "Own", Data: sampleData})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, upgraded, own.ID))
	err = service.Delete(ctx, upgraded, "missing-id")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
