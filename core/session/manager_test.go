package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/session"
	"github.com/trezcool/roster/core/user"
	inmemdb "github.com/trezcool/roster/storage/database/inmem"
)

type recorder struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recorder) record(ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []session.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]session.EventType, 0, len(r.events))
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

func setup(t *testing.T, ttl time.Duration) (*session.Manager, user.Repository, session.Store) {
	t.Helper()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, nil, &core.Config{SecretKey: "secret"})
	store := inmemdb.NewSessionStore(db)

	_, err := usrSvc.Create(context.Background(), user.NewUser{Name: "Admin", Email: "admin@test.cd", Password: "Gr8-Roster!"})
	require.NoError(t, err)
	return session.NewManager(store, usrSvc, ttl), usrRepo, store
}

func TestManager_SignIn(t *testing.T) {
	mgr, usrRepo, store := setup(t, time.Hour)
	ctx := context.Background()
	rec := new(recorder)
	mgr.Subscribe(rec.record)

	_, err := mgr.SignIn(ctx, "admin@test.cd", "wrong")
	assert.Equal(t, session.ErrAuthenticationFailed, err)
	_, err = mgr.SignIn(ctx, "nobody@test.cd", "Gr8-Roster!")
	assert.Equal(t, session.ErrAuthenticationFailed, err)
	assert.Empty(t, rec.types())

	s, err := mgr.SignIn(ctx, "admin@test.cd", "Gr8-Roster!")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "admin@test.cd", s.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)
	assert.Equal(t, []session.EventType{session.SignedIn}, rec.types())

	stored, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, stored.UserID)

	usr, err := usrRepo.GetUserByID(ctx, s.UserID)
	require.NoError(t, err)
	assert.NotNil(t, usr.LastLogin)
}

func TestManager_SignIn_deactivated(t *testing.T) {
	mgr, usrRepo, _ := setup(t, time.Hour)
	ctx := context.Background()

	usr, _ := usrRepo.GetUserByEmail(ctx, "admin@test.cd")
	usr.IsActive = false
	_, err := usrRepo.UpdateUser(ctx, usr)
	require.NoError(t, err)

	_, err = mgr.SignIn(ctx, "admin@test.cd", "Gr8-Roster!")
	assert.Equal(t, user.ErrAccountDeactivated, errors.Cause(err))
}

func TestManager_SignOut(t *testing.T) {
	mgr, _, _ := setup(t, time.Hour)
	ctx := context.Background()
	rec := new(recorder)
	unsubscribe := mgr.Subscribe(rec.record)

	s, err := mgr.SignIn(ctx, "admin@test.cd", "Gr8-Roster!")
	require.NoError(t, err)

	require.NoError(t, mgr.SignOut(ctx, s.ID))
	_, err = mgr.Current(ctx, s.ID)
	assert.Equal(t, session.ErrNotFound, errors.Cause(err))
	assert.Equal(t, []session.EventType{session.SignedIn, session.SignedOut}, rec.types())
	assert.Equal(t, s.ID, rec.events[1].Session.ID)

	// signing out twice is a no-op
	require.NoError(t, mgr.SignOut(ctx, s.ID))
	assert.Len(t, rec.types(), 2)

	unsubscribe()
	unsubscribe()
	_, err = mgr.SignIn(ctx, "admin@test.cd", "Gr8-Roster!")
	require.NoError(t, err)
	assert.Len(t, rec.types(), 2)
}

func TestManager_Current_expired(t *testing.T) {
	mgr, _, _ := setup(t, 50*time.Millisecond)
	ctx := context.Background()
	rec := new(recorder)
	mgr.Subscribe(rec.record)

	s, err := mgr.SignIn(ctx, "admin@test.cd", "Gr8-Roster!")
	require.NoError(t, err)

	current, err := mgr.Current(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, current.ID)

	time.Sleep(100 * time.Millisecond)
	_, err = mgr.Current(ctx, s.ID)
	assert.Equal(t, session.ErrExpired, err)
	assert.Equal(t, []session.EventType{session.SignedIn, session.SignedOut}, rec.types())

	_, err = mgr.Current(ctx, s.ID)
	assert.Equal(t, session.ErrNotFound, errors.Cause(err))
}

func TestManager_Touch(t *testing.T) {
	mgr, _, _ := setup(t, 200*time.Millisecond)
	ctx := context.Background()
	rec := new(recorder)
	mgr.Subscribe(rec.record)

	s, err := mgr.SignIn(ctx, "admin@test.cd", "Gr8-Roster!")
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	touched, err := mgr.Touch(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, touched.ID)
	assert.True(t, touched.ExpiresAt.After(s.ExpiresAt))

	// past the original expiry, still live
	time.Sleep(120 * time.Millisecond)
	current, err := mgr.Current(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, touched.ExpiresAt, current.ExpiresAt)
	assert.Equal(t, []session.EventType{session.SignedIn}, rec.types())

	// expired sessions are closed, not extended
	time.Sleep(250 * time.Millisecond)
	_, err = mgr.Touch(ctx, s.ID)
	assert.Equal(t, session.ErrExpired, err)
	assert.Equal(t, []session.EventType{session.SignedIn, session.SignedOut}, rec.types())

	_, err = mgr.Touch(ctx, s.ID)
	assert.Equal(t, session.ErrNotFound, errors.Cause(err))
}
