package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{
	"id", "email", "password_hash", "password_algo",
	"created_at", "updated_at", "disabled", "roles",
	"last_login_at", "login_attempts", "lockout_until",
}

func setupMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, types.UserStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	xdb := sqlx.NewDb(db, "postgres")
	store, err := NewUserStore(xdb, "users")
	require.NoError(t, err)
	t.Cleanup(func() { _ = xdb.Close() })
	return xdb, mock, store
}

func TestCreateUser_Success(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, mock, store := setupMock(t)

	user := &types.User{
		Email:        "TestUser@Test.com",
		PasswordHash: "hash",
		PasswordAlgo: "argon2id",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		Roles:        []string{"user"},
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE email = \$1`).
		WithArgs("testuser@test.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(
			sqlmock.AnyArg(), // id
			"testuser@test.com",
			"hash",
			"argon2id",
			sqlmock.AnyArg(), // created_at
			sqlmock.AnyArg(), // updated_at
			false,
			pq.Array([]string{"user"}),
			nil, // last_login_at
			0,
			nil, // lockout_until
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.CreateUser(ctx, user)
	assert.NoError(t, err)
	assert.Len(t, user.ID, 32)
	assert.Equal(t, "testuser@test.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_AlreadyExists(t *testing.T) {
	_, mock, store := setupMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE email = \$1`).
		WithArgs("existing@test.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := store.CreateUser(context.Background(), &types.User{Email: "existing@test.com"})
	assert.ErrorIs(t, err, types.ErrUserExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_UniqueViolation(t *testing.T) {
	_, mock, store := setupMock(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateUser(context.Background(), &types.User{Email: "race@test.com"})
	assert.ErrorIs(t, err, types.ErrUserExists)
}

func TestGetUserByEmail_Success(t *testing.T) {
	_, mock, store := setupMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(userColumns).
		AddRow("id-1", "a@b.com", "hash", "argon2id", now, now, false, "{user,admin}", nil, 2, now.Add(time.Minute))
	mock.ExpectQuery(`SELECT id, email, .* FROM users WHERE email = \$1`).
		WithArgs("a@b.com").
		WillReturnRows(rows)

	user, err := store.GetUserByEmail(context.Background(), " A@B.com ")
	require.NoError(t, err)
	assert.Equal(t, "id-1", user.ID)
	assert.Equal(t, []string{"user", "admin"}, user.Roles)
	assert.True(t, user.LastLoginAt.IsZero())
	assert.Equal(t, 2, user.LoginAttempts)
	assert.False(t, user.LockoutUntil.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, mock, store := setupMock(t)

	mock.ExpectQuery(`SELECT id, email, .* FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestUpdateUserLoginStats(t *testing.T) {
	t.Run("with times", func(t *testing.T) {
		_, mock, store := setupMock(t)
		now := time.Now()
		mock.ExpectExec(`UPDATE users SET`).
			WithArgs(sqlmock.AnyArg(), 3, sqlmock.AnyArg(), "id-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.UpdateUserLoginStats(context.Background(), "id-1", now, 3, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero times become NULL", func(t *testing.T) {
		_, mock, store := setupMock(t)
		mock.ExpectExec(`UPDATE users SET`).
			WithArgs(nil, 0, nil, "id-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.UpdateUserLoginStats(context.Background(), "id-1", time.Time{}, 0, time.Time{}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteAllAndIndexes(t *testing.T) {
	_, mock, store := setupMock(t)

	mock.ExpectExec(`DELETE FROM users`).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users\(email\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.DeleteAll(context.Background()))
	require.NoError(t, store.EnsureIndexes(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	xdb := sqlx.NewDb(db, "postgres")
	defer xdb.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, EnsureSchema(context.Background(), xdb, ""))

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnError(errors.New("permission denied"))
	assert.Error(t, EnsureSchema(context.Background(), xdb, "users"))

	assert.Error(t, EnsureSchema(context.Background(), xdb, "users; DROP TABLE x"))
}

func TestNewUserStore_TableName(t *testing.T) {
	_, err := NewUserStore(nil, "Robert'); DROP TABLE students;--")
	assert.Error(t, err)

	store, err := NewUserStore(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "users", store.(*userStore).table)
}
