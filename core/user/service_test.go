package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/roster/core"
)

type mapRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func newMapRepository() *mapRepository {
	return &mapRepository{users: make(map[string]User)}
}

func (repo *mapRepository) CreateUser(_ context.Context, usr User) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *mapRepository) GetUserByID(_ context.Context, id string) (User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	if usr, ok := repo.users[id]; ok {
		return usr, nil
	}
	return User{}, ErrNotFound
}

func (repo *mapRepository) GetUserByEmail(_ context.Context, email string) (User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	for _, usr := range repo.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (repo *mapRepository) UpdateUser(_ context.Context, usr User) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.users[usr.ID]; !ok {
		return User{}, ErrNotFound
	}
	repo.users[usr.ID] = usr
	return usr, nil
}

type outbox struct {
	messages []*core.EmailMessage
}

func (o *outbox) SendMessages(messages ...*core.EmailMessage) {
	o.messages = append(o.messages, messages...)
}

func newTestService(t *testing.T) (*Service, *mapRepository, *outbox) {
	t.Helper()
	repo := newMapRepository()
	mails := new(outbox)
	conf := &core.Config{SecretKey: "secret", PasswordResetTimeoutDelta: 24 * time.Hour}
	return NewService(repo, mails, conf), repo, mails
}

func TestService_Create(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, NewUser{Name: "Admin", Email: "admin@test.cd", Password: "Gr8-Roster!"})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("Gr8-Roster!"))

	_, err = svc.Create(ctx, NewUser{Name: "Other", Email: "admin@test.cd", Password: "Gr8-Roster!"})
	require.Error(t, err)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, []core.FieldError{{Field: "email", Error: ErrEmailExists.Error()}}, vErr.Fields)
}

func TestService_UpdateOrCreate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	usr, err := svc.UpdateOrCreate(ctx, NewUser{Name: "Admin", Email: "admin@test.cd", Password: "Gr8-Roster!"})
	require.NoError(t, err)

	usr.IsActive = false
	_, _ = repo.UpdateUser(ctx, usr)

	updated, err := svc.UpdateOrCreate(ctx, NewUser{Name: "Boss", Email: "admin@test.cd", Password: "N3w-Roster!"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.Equal(t, "Boss", updated.Name)
	assert.True(t, updated.IsActive)
	assert.NoError(t, updated.CheckPassword("N3w-Roster!"))
	assert.Len(t, repo.users, 1)
}

func TestService_EnsureAdmin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	validate, translator := newValidator()
	ctx := context.Background()

	_, err := svc.EnsureAdmin(ctx, validate, "Admin", "admin@school.cd", "12345678")
	assert.Equal(t, map[string]string{"password": "password cannot be entirely numeric"}, core.FieldErrors(err, translator))
	assert.Empty(t, repo.users)

	usr, err := svc.EnsureAdmin(ctx, validate, " Admin ", "Admin@School.cd", "Gr8-Roster!")
	require.NoError(t, err)
	assert.Equal(t, "Admin", usr.Name)
	assert.Equal(t, "admin@school.cd", usr.Email)
	assert.True(t, usr.IsActive)

	// seeding again updates the same admin
	again, err := svc.EnsureAdmin(ctx, validate, "Head Admin", "admin@school.cd", "N3w-Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, again.ID)
	assert.Len(t, repo.users, 1)

	_, err = svc.Authenticate(ctx, "admin@school.cd", "N3w-Passw0rd!")
	assert.NoError(t, err)
}

func TestService_Authenticate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	active, _ := svc.Create(ctx, NewUser{Name: "Admin", Email: "admin@test.cd", Password: "Gr8-Roster!"})
	inactive, _ := svc.Create(ctx, NewUser{Name: "Gone", Email: "gone@test.cd", Password: "Gr8-Roster!"})
	inactive.IsActive = false
	_, _ = repo.UpdateUser(ctx, inactive)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantID  string
		wantErr error
	}{
		{name: "unknown email", email: "lol@test.cd", pwd: "Gr8-Roster!", wantErr: ErrNotFound},
		{name: "wrong password", email: "admin@test.cd", pwd: "lol", wantErr: ErrNotFound},
		{name: "deactivated", email: "gone@test.cd", pwd: "Gr8-Roster!", wantErr: ErrAccountDeactivated},
		{name: "ok (case insensitive email)", email: " ADMIN@test.cd", pwd: "Gr8-Roster!", wantID: active.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, usr.ID)
		})
	}
}

func TestService_PasswordReset(t *testing.T) {
	svc, _, mails := newTestService(t)
	ctx := context.Background()

	usr, _ := svc.Create(ctx, NewUser{Name: "Admin", Email: "admin@test.cd", Password: "Gr8-Roster!"})

	assert.Equal(t, ErrNotFound, errors.Cause(svc.RequestPasswordReset(ctx, "lol@test.cd")))
	require.NoError(t, svc.RequestPasswordReset(ctx, "admin@test.cd"))
	require.Len(t, mails.messages, 1)

	msg := mails.messages[0]
	assert.Equal(t, "admin@test.cd", msg.To[0].Address)
	assert.Equal(t, "password_reset", msg.TemplateName)
	data := msg.TemplateData.(map[string]interface{})
	uid, token := data["UID"].(string), data["Token"].(string)

	_, err := svc.ResetPassword(ctx, ResetUserPassword{UID: uid, Token: "lol-lol", Password: "N3w-Roster!"})
	assert.True(t, core.IsValidationError(err))
	_, err = svc.ResetPassword(ctx, ResetUserPassword{UID: "%%", Token: token, Password: "N3w-Roster!"})
	assert.True(t, core.IsValidationError(err))

	updated, err := svc.ResetPassword(ctx, ResetUserPassword{UID: uid, Token: token, Password: "N3w-Roster!"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.NoError(t, updated.CheckPassword("N3w-Roster!"))

	// the token dies with the old password
	_, err = svc.ResetPassword(ctx, ResetUserPassword{UID: uid, Token: token, Password: "Th3rd-Roster!"})
	assert.True(t, core.IsValidationError(err))
}

func TestService_SetLastLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	usr, _ := svc.Create(ctx, NewUser{Name: "Admin", Email: "admin@test.cd", Password: "Gr8-Roster!"})
	assert.Nil(t, usr.LastLogin)

	usr, err := svc.SetLastLogin(ctx, usr)
	require.NoError(t, err)
	require.NotNil(t, usr.LastLogin)
	assert.WithinDuration(t, time.Now(), *usr.LastLogin, time.Minute)
}
