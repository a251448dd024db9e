package authn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/leadflow/leadflow/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	svc, store := setupService(t)

	store.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *User) bool {
		return u.Email == "new@test.com" && u.PasswordAlgo == AlgoArgon2id &&
			len(u.Roles) == 1 && u.Roles[0] == "user"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*User).ID = "uid-1"
	}).Return(nil)

	session, err := svc.Register(context.Background(), Credentials{Email: " New@Test.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "uid-1", session.User.ID)

	claims, err := svc.tokenService.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.Subject)
}

func TestRegister_Validation(t *testing.T) {
	svc, store := setupService(t)

	tests := []struct {
		name  string
		creds Credentials
		msg   string
	}{
		{"missing", Credentials{Email: "", Password: "secret1"}, "Email and password are required"},
		{"bad email", Credentials{Email: "nope", Password: "secret1"}, "Please provide a valid email"},
		{"short password", Credentials{Email: "a@b.com", Password: "12345"}, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.creds)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.msg, ve.Message)
		})
	}
	store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegister_Exists(t *testing.T) {
	svc, store := setupService(t)
	store.On("CreateUser", mock.Anything, mock.Anything).Return(types.ErrUserExists)

	_, err := svc.Register(context.Background(), Credentials{Email: "dup@test.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLogin(t *testing.T) {
	svc, store := setupService(t)
	svc.now = func() time.Time { return fixedNow }
	hash, algo := hashed(t, "test1234")

	user := &User{ID: "uid-1", Email: "testuser@test.com", PasswordHash: hash, PasswordAlgo: algo, LoginAttempts: 2}
	store.On("GetUserByEmail", mock.Anything, "testuser@test.com").Return(user, nil)
	store.On("UpdateUserLoginStats", mock.Anything, "uid-1", fixedNow, 0, time.Time{}).Return(nil)

	session, err := svc.Login(context.Background(), Credentials{Email: "TestUser@test.com", Password: "test1234"})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", session.User.ID)
	assert.Equal(t, 0, session.User.LoginAttempts)
	store.AssertExpectations(t)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, store := setupService(t)
	store.On("GetUserByEmail", mock.Anything, "ghost@test.com").Return(nil, types.ErrUserNotFound)

	_, err := svc.Login(context.Background(), Credentials{Email: "ghost@test.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WrongPasswordAndLockout(t *testing.T) {
	svc, store := setupService(t)
	svc.now = func() time.Time { return fixedNow }
	hash, algo := hashed(t, "test1234")

	t.Run("counts attempt", func(t *testing.T) {
		user := &User{ID: "uid-1", Email: "a@test.com", PasswordHash: hash, PasswordAlgo: algo}
		store.On("GetUserByEmail", mock.Anything, "a@test.com").Return(user, nil).Once()
		store.On("UpdateUserLoginStats", mock.Anything, "uid-1", time.Time{}, 1, time.Time{}).Return(nil).Once()

		_, err := svc.Login(context.Background(), Credentials{Email: "a@test.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("locks at threshold", func(t *testing.T) {
		user := &User{ID: "uid-2", Email: "b@test.com", PasswordHash: hash, PasswordAlgo: algo, LoginAttempts: 2}
		store.On("GetUserByEmail", mock.Anything, "b@test.com").Return(user, nil).Once()
		store.On("UpdateUserLoginStats", mock.Anything, "uid-2", time.Time{}, 0, fixedNow.Add(5*time.Minute)).Return(nil).Once()

		_, err := svc.Login(context.Background(), Credentials{Email: "b@test.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("locked account", func(t *testing.T) {
		user := &User{ID: "uid-3", Email: "c@test.com", PasswordHash: hash, PasswordAlgo: algo, LockoutUntil: fixedNow.Add(time.Minute)}
		store.On("GetUserByEmail", mock.Anything, "c@test.com").Return(user, nil).Once()

		_, err := svc.Login(context.Background(), Credentials{Email: "c@test.com", Password: "test1234"})
		assert.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("stats failure does not change result", func(t *testing.T) {
		user := &User{ID: "uid-4", Email: "d@test.com", PasswordHash: hash, PasswordAlgo: algo}
		store.On("GetUserByEmail", mock.Anything, "d@test.com").Return(user, nil).Once()
		store.On("UpdateUserLoginStats", mock.Anything, "uid-4", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db")).Once()

		_, err := svc.Login(context.Background(), Credentials{Email: "d@test.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	store.AssertExpectations(t)
}

func TestLogin_Disabled(t *testing.T) {
	svc, store := setupService(t)
	hash, algo := hashed(t, "test1234")

	user := &User{ID: "uid-1", Email: "a@test.com", PasswordHash: hash, PasswordAlgo: algo, Disabled: true}
	store.On("GetUserByEmail", mock.Anything, "a@test.com").Return(user, nil)

	_, err := svc.Login(context.Background(), Credentials{Email: "a@test.com", Password: "test1234"})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLogoutAndAuthenticate(t *testing.T) {
	svc, store := setupService(t)
	token, _, err := svc.tokenService.Issue(&User{ID: "uid-1", Email: "a@test.com"})
	require.NoError(t, err)
	claims, err := svc.tokenService.ValidateToken(token)
	require.NoError(t, err)

	store.On("IsRevoked", mock.Anything, claims.ID).Return(false, nil).Once()
	got, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.Subject)

	store.On("RevokeToken", mock.Anything, claims.ID, claims.ExpiresAt.Time).Return(nil).Once()
	require.NoError(t, svc.Logout(context.Background(), token))

	store.On("IsRevoked", mock.Anything, claims.ID).Return(true, nil).Once()
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	store.On("RevokeToken", mock.Anything, claims.ID, mock.Anything).Return(types.ErrTokenAlreadyRevoked).Once()
	assert.NoError(t, svc.Logout(context.Background(), token))

	assert.NoError(t, svc.Logout(context.Background(), "garbage"))
	assert.NoError(t, svc.Logout(context.Background(), ""))

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
	store.AssertExpectations(t)
}

func TestTokenFromRequest(t *testing.T) {
	svc, _ := setupService(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", svc.TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", svc.TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", svc.TokenFromRequest(r), "cookie wins over header")

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", svc.TokenFromRequest(r))
}

func TestSessionCookies(t *testing.T) {
	svc, _ := setupService(t)
	svc.now = func() time.Time { return fixedNow }

	rec := httptest.NewRecorder()
	svc.SetSessionCookie(rec, &Session{Token: "tok", ExpiresAt: fixedNow.Add(time.Hour)})
	c := rec.Result().Cookies()[0]
	assert.Equal(t, "token", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = httptest.NewRecorder()
	svc.ClearSessionCookie(rec)
	c = rec.Result().Cookies()[0]
	assert.Equal(t, "", c.Value)
	assert.Equal(t, -1, c.MaxAge)
}

func TestMiddleware(t *testing.T) {
	svc, store := setupService(t)
	token, _, err := svc.tokenService.Issue(&User{ID: "uid-1", Email: "a@test.com", Roles: []string{"user"}})
	require.NoError(t, err)
	store.On("IsRevoked", mock.Anything, mock.Anything).Return(false, nil)

	var seen *Claims
	h := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		assert.Equal(t, "uid-1", r.Context().Value(ContextKeyUserID))
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not authenticated"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "a@test.com", seen.Email)
}

func TestMe(t *testing.T) {
	svc, store := setupService(t)
	store.On("GetUserByID", mock.Anything, "uid-1").Return(&User{ID: "uid-1"}, nil)

	u, err := svc.Me(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.ID)
}
