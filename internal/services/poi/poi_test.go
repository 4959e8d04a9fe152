package poi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
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
	"github.com/magabrotheeeer/imaps-backend/internal/services/poi"
	"github.com/magabrotheeeer/imaps-backend/internal/session"
	"github.com/magabrotheeeer/imaps-backend/internal/storage"
	"github.com/magabrotheeeer/imaps-backend/internal/storage/repository"
)

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string, result any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

type env struct {
	pois       *poi.Service
	categories *category.Service
	sessions   *session.Manager
	store      *repository.Store
	alice      *models.User
	bob        *models.User
	admin      *models.User
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

	alice, err := sessions.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	bob, err := sessions.Register(ctx, "bob@example.com", "password123", "Bob")
	require.NoError(t, err)
	admin, err := sessions.Login(ctx, "admin@imaps.local", "admin-secret", models.RoleAdmin)
	require.NoError(t, err)

	return &env{
		pois:       poi.New(store, sessions, events.Noop{}, log),
		categories: category.New(store, sessions, events.Noop{}, log),
		sessions:   sessions,
		store:      store,
		alice:      alice,
		bob:        bob,
		admin:      admin,
	}
}

func TestCreateFormatsCoords(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.pois.Create(ctx, e.alice, models.DummyPOI{
		Lat:   55.7558123456,
		Lng:   37.6172987654,
		Title: "Red Square",
	})
	require.NoError(t, err)
	assert.Equal(t, "55.755812, 37.617299", created.Coords)
	assert.Equal(t, e.alice.ID, created.UserID)
	assert.Equal(t, "Alice", created.UserName)
	assert.Equal(t, "alice@example.com", created.UserEmail)
}

func TestCreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.pois.Create(ctx, e.alice, models.DummyPOI{Lat: math.NaN(), Lng: 0, Title: "X"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = e.pois.Create(ctx, e.alice, models.DummyPOI{Lat: 1, Lng: math.Inf(1), Title: "X"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = e.pois.Create(ctx, e.alice, models.DummyPOI{Lat: 1, Lng: 2, Title: "   "})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = e.pois.Create(ctx, nil, models.DummyPOI{Lat: 1, Lng: 2, Title: "X"})
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestCreateSnapshotsCategoryAppearance(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	cat, err := e.categories.Create(ctx, e.alice, models.DummyCategory{
		Name:         "Parks",
		Color:        "#00FF00",
		SelectedIcon: "tree",
	})
	require.NoError(t, err)

	created, err := e.pois.Create(ctx, e.alice, models.DummyPOI{
		Lat: 1, Lng: 2, Title: "Gorky Park", CategoryID: cat.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "#00FF00", created.IconColor)
	assert.Equal(t, "tree", created.SelectedIcon)

	newColor := "#FF0000"
	_, err = e.categories.Update(ctx, e.alice, cat.ID, models.CategoryPatch{Color: &newColor})
	require.NoError(t, err)

	pois, err := e.pois.ListForActor(ctx, e.alice)
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "#00FF00", pois[0].IconColor)
}

func TestCreateUnknownCategory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.pois.Create(ctx, e.alice, models.DummyPOI{
		Lat: 1, Lng: 2, Title: "X", CategoryID: "missing",
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	pois, err := e.pois.ListForActor(ctx, e.alice)
	require.NoError(t, err)
	assert.Empty(t, pois)
}

func TestCategoryQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	cat, err := e.categories.Create(ctx, e.alice, models.DummyCategory{Name: "Parks"})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := e.pois.Create(ctx, e.alice, models.DummyPOI{
			Lat: float64(i), Lng: float64(i), Title: fmt.Sprintf("POI %d", i), CategoryID: cat.ID,
		})
		require.NoError(t, err)
	}

	_, err = e.pois.Create(ctx, e.alice, models.DummyPOI{
		Lat: 11, Lng: 11, Title: "One Too Many", CategoryID: cat.ID,
	})
	var quota *errs.QuotaError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, errs.QuotaCategoryPOIs, quota.Quota)
	assert.Equal(t, 10, quota.Current)
	assert.Equal(t, float64(10), quota.Limit)

	// Вне категории лимит категории не действует, общий лимит ещё не достигнут.
	_, err = e.pois.Create(ctx, e.alice, models.DummyPOI{Lat: 12, Lng: 12, Title: "Uncategorized"})
	require.NoError(t, err)
}

func TestTotalQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	users, err := e.store.Users(ctx)
	require.NoError(t, err)
	u := users[e.alice.Email]
	for i := 0; i < 100; i++ {
		u.POIs = append(u.POIs, models.POI{ID: fmt.Sprintf("poi-%d", i), UserID: e.alice.ID})
	}
	users[e.alice.Email] = u
	require.NoError(t, e.store.SaveUsers(ctx, users))

	_, err = e.pois.Create(ctx, e.alice, models.DummyPOI{Lat: 1, Lng: 2, Title: "Over The Top"})
	var quota *errs.QuotaError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, errs.QuotaTotalPOIs, quota.Quota)
	assert.Equal(t, 100, quota.Current)
	assert.Equal(t, float64(100), quota.Limit)
}

func TestConcurrentCreatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	const writers = 40
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := e.pois.Create(ctx, e.alice, models.DummyPOI{
				Lat: float64(i), Lng: float64(i), Title: fmt.Sprintf("POI %d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	pois, err := e.pois.ListForActor(ctx, e.alice)
	require.NoError(t, err)
	// Каждое создание читает и перезаписывает документ пользователя целиком:
	// без блокировки ключа параллельные записи затирали бы друг друга.
	assert.Len(t, pois, writers)
}

func TestConcurrentCreatesRespectTotalQuota(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	users, err := e.store.Users(ctx)
	require.NoError(t, err)
	u := users[e.alice.Email]
	for i := 0; i < 95; i++ {
		u.POIs = append(u.POIs, models.POI{ID: fmt.Sprintf("poi-%d", i), UserID: e.alice.ID})
	}
	users[e.alice.Email] = u
	require.NoError(t, e.store.SaveUsers(ctx, users))

	const attempts = 10
	errCh := make(chan error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := e.pois.Create(ctx, e.alice, models.DummyPOI{
				Lat: float64(i), Lng: float64(i), Title: fmt.Sprintf("Late POI %d", i),
			})
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	rejected := 0
	for err := range errCh {
		if err == nil {
			continue
		}
		var quota *errs.QuotaError
		require.ErrorAs(t, err, &quota)
		assert.Equal(t, errs.QuotaTotalPOIs, quota.Quota)
		rejected++
	}
	// Проверка и запись идут под одной блокировкой: лимит нельзя перескочить
	// гонкой двух одновременных созданий.
	assert.Equal(t, 5, rejected)

	pois, err := e.pois.ListForActor(ctx, e.alice)
	require.NoError(t, err)
	assert.Len(t, pois, 100)
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.pois.Create(ctx, e.alice, models.DummyPOI{Lat: 1, Lng: 2, Title: "Alice's"})
	require.NoError(t, err)

	bobPOIs, err := e.pois.ListForActor(ctx, e.bob)
	require.NoError(t, err)
	assert.Empty(t, bobPOIs)

	title := "Hijacked"
	_, err = e.pois.Update(ctx, e.bob, created.ID, models.POIPatch{Title: &title})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	err = e.pois.Delete(ctx, e.bob, created.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	err = e.pois.Delete(ctx, e.bob, "missing-id")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	alicePOIs, err := e.pois.ListForActor(ctx, e.alice)
	require.NoError(t, err)
	require.Len(t, alicePOIs, 1)
	assert.Equal(t, "Alice's", alicePOIs[0].Title)
}

func TestAdminSeesAndManagesEverything(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	alicePOI, err := e.pois.Create(ctx, e.alice, models.DummyPOI{Lat: 1, Lng: 2, Title: "Alice's"})
	require.NoError(t, err)
	_, err = e.pois.Create(ctx, e.bob, models.DummyPOI{Lat: 3, Lng: 4, Title: "Bob's"})
	require.NoError(t, err)
	_, err = e.pois.Create(ctx, e.admin, models.DummyPOI{Lat: 5, Lng: 6, Title: "Global"})
	require.NoError(t, err)

	all, err := e.pois.ListForActor(ctx, e.admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	title := "Renamed By Admin"
	updated, err := e.pois.Update(ctx, e.admin, alicePOI.ID, models.POIPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed By Admin", updated.Title)

	alicePOIs, err := e.pois.ListForActor(ctx, e.alice)
	require.NoError(t, err)
	require.Len(t, alicePOIs, 1)
	assert.Equal(t, "Renamed By Admin", alicePOIs[0].Title)

	require.NoError(t, e.pois.Delete(ctx, e.admin, alicePOI.ID))
	alicePOIs, err = e.pois.ListForActor(ctx, e.alice)
	require.NoError(t, err)
	assert.Empty(t, alicePOIs)
}

func TestDeleteRefreshesOwnerSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.pois.Create(ctx, e.alice, models.DummyPOI{Lat: 1, Lng: 2, Title: "Alice's"})
	require.NoError(t, err)

	require.NoError(t, e.pois.Delete(ctx, e.alice, created.ID))

	current, err := e.sessions.Current(ctx, e.alice.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Empty(t, current.POIs)
}
