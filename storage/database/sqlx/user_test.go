package sqlxrepos_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/roster/core/user"
	sqlxrepos "github.com/trezcool/roster/storage/database/sqlx"
	"github.com/trezcool/roster/tests"
)

var testTime = time.Date(2021, time.March, 8, 9, 30, 0, 0, time.UTC)

func TestUserRepository(t *testing.T) {
	repo := sqlxrepos.NewUserRepository(openDB(t))
	ctx := context.Background()

	admin := testutil.CreateUser(t, repo, "Admin", "admin@school.cd", "Gr8-Roster!", true)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetUserByEmail(ctx, "admin@school.cd")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)
		assert.True(t, got.IsActive)
		assert.Nil(t, got.LastLogin)
		assert.NoError(t, got.CheckPassword("Gr8-Roster!"))

		got, err = repo.GetUserByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, "admin@school.cd", got.Email)

		_, err = repo.GetUserByEmail(ctx, "nobody@school.cd")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := admin
		dup.ID = "another-id"
		_, err := repo.CreateUser(ctx, dup)
		assert.Equal(t, user.ErrEmailExists, errors.Cause(err))
	})

	t.Run("update", func(t *testing.T) {
		usr := admin
		usr.Name = "Head Master"
		usr.IsActive = false
		usr.LastLogin = &testTime
		_, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)

		got, err := repo.GetUserByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, "Head Master", got.Name)
		assert.False(t, got.IsActive)
		require.NotNil(t, got.LastLogin)
		assert.True(t, testTime.Equal(*got.LastLogin))

		usr.ID = "unknown"
		usr.Email = "unknown@school.cd"
		_, err = repo.UpdateUser(ctx, usr)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})
}

func TestUserRepository_postgres(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = mockDB.Close() }()
	repo := sqlxrepos.NewUserRepository(sqlx.NewDb(mockDB, "postgres"))
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("admin@school.cd").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "is_active", "created_at", "updated_at", "last_login"}).
			AddRow("u1", "Admin", "admin@school.cd", []byte("hash"), true, testTime, testTime, nil))

	usr, err := repo.GetUserByEmail(ctx, "admin@school.cd")
	require.NoError(t, err)
	assert.Equal(t, user.User{
		ID:           "u1",
		Name:         "Admin",
		Email:        "admin@school.cd",
		PasswordHash: []byte("hash"),
		IsActive:     true,
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}, usr)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))
	_, err = repo.CreateUser(ctx, usr)
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
