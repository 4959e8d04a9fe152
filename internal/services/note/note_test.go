package note_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
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
	"github.com/magabrotheeeer/imaps-backend/internal/services/note"
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

// capturePublisher запоминает ключи маршрутизации опубликованных событий.
type capturePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *capturePublisher) Publish(routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *capturePublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func newEnv(t *testing.T, pub events.Publisher) (*note.Service, *models.User, *models.User, *models.User) {
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

	return note.New(store, sessions, pub, log), alice, bob, admin
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	service, alice, bob, admin := newEnv(t, events.Noop{})

	created, err := service.Create(ctx, alice, models.DummyNote{
		Lat: 55.75, Lng: 37.61, Title: "Meeting point", Content: "At the fountain",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, created.UserID)

	_, err = service.Create(ctx, alice, models.DummyNote{Lat: 1, Lng: 2, Title: "  "})
	assert.ErrorIs(t, err, errs.ErrValidation)

	aliceNotes, err := service.ListForActor(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, aliceNotes, 1)

	bobNotes, err := service.ListForActor(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobNotes)

	adminNotes, err := service.ListForActor(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, adminNotes, 1)
}

func TestUpdateOwnership(t *testing.T) {
	ctx := context.Background()
	service, alice, bob, admin := newEnv(t, events.Noop{})

	created, err := service.Create(ctx, alice, models.DummyNote{Lat: 1, Lng: 2, Title: "Original"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = service.Update(ctx, bob, created.ID, models.NotePatch{Title: &title})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	title = "Renamed"
	updated, err := service.Update(ctx, admin, created.ID, models.NotePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	_, err = service.Update(ctx, alice, "missing-id", models.NotePatch{Title: &title})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	service, alice, bob, _ := newEnv(t, events.Noop{})

	created, err := service.Create(ctx, alice, models.DummyNote{Lat: 1, Lng: 2, Title: "To remove"})
	require.NoError(t, err)

	err = service.Delete(ctx, bob, created.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	require.NoError(t, service.Delete(ctx, alice, created.ID))

	notes, err := service.ListForActor(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestLifecycleEventsPublished(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	service, alice, _, _ := newEnv(t, pub)

	created, err := service.Create(ctx, alice, models.DummyNote{Lat: 1, Lng: 2, Title: "Ephemeral"})
	require.NoError(t, err)
	require.NoError(t, service.Delete(ctx, alice, created.ID))

	assert.Equal(t, []string{events.RoutingNoteCreated, events.RoutingNoteRemoved}, pub.Keys())
}
