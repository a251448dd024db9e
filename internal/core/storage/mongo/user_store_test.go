package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_CreateAndGet(t *testing.T) {
	env := setupTestEnv(t)
	s := NewUserStore(env.DB, "")
	ctx := context.Background()
	require.NoError(t, s.EnsureIndexes(ctx))

	user := &types.User{
		Email:        "  TestUser@Test.com ",
		PasswordHash: "hash",
		PasswordAlgo: "argon2id",
		Roles:        []string{"user"},
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.Equal(t, "testuser@test.com", user.Email)
	assert.Equal(t, UserID("testuser@test.com"), user.ID)

	got, err := s.GetUserByEmail(ctx, "TESTUSER@test.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, got.Roles)

	err = s.CreateUser(ctx, &types.User{Email: "testuser@test.com"})
	assert.ErrorIs(t, err, types.ErrUserExists)

	_, err = s.GetUserByEmail(ctx, "nobody@test.com")
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestUserStore_LoginStatsAndDeleteAll(t *testing.T) {
	env := setupTestEnv(t)
	s := NewUserStore(env.DB, "users")
	ctx := context.Background()

	user := &types.User{Email: "a@b.com"}
	require.NoError(t, s.CreateUser(ctx, user))

	lockout := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Millisecond)
	require.NoError(t, s.UpdateUserLoginStats(ctx, user.ID, time.Time{}, 10, lockout))

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.LoginAttempts)
	assert.True(t, lockout.Equal(got.LockoutUntil))

	require.NoError(t, s.DeleteAll(ctx))
	_, err = s.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestUserID_Stable(t *testing.T) {
	assert.Equal(t, UserID("x@y.z"), UserID("x@y.z"))
	assert.NotEqual(t, UserID("x@y.z"), UserID("y@y.z"))
	assert.Len(t, UserID("x@y.z"), 32)
}
