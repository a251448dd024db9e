package authn

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leadflow/leadflow/internal/core/identity/config"
	"github.com/leadflow/leadflow/internal/core/storage/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
)

type Service interface {
	// Middleware rejects requests without a valid token with 401
	Middleware(next http.Handler) http.Handler
	Register(ctx context.Context, creds Credentials) (*Session, error)
	Login(ctx context.Context, creds Credentials) (*Session, error)
	// Logout revokes the token; an invalid or expired token is not an error
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, userID string) (*User, error)
	Authenticate(ctx context.Context, token string) (*Claims, error)
	// TokenFromRequest reads the session cookie, then a Bearer header
	TokenFromRequest(r *http.Request) string
	SetSessionCookie(w http.ResponseWriter, s *Session)
	ClearSessionCookie(w http.ResponseWriter)
}

type AuthService struct {
	users        UserStore
	revocations  TokenRevocationStore
	tokenService *TokenService
	credentials  *CredentialsValidator
	cfg          config.AuthNConfig
	now          func() time.Time
}

func NewAuthService(cfg config.AuthNConfig, users UserStore, revocations TokenRevocationStore) (Service, error) {
	tokenService, err := NewTokenService(cfg)
	if err != nil {
		return nil, err
	}
	return newAuthService(cfg, users, revocations, tokenService), nil
}

func newAuthService(cfg config.AuthNConfig, users UserStore, revocations TokenRevocationStore, ts *TokenService) *AuthService {
	return &AuthService{
		users:        users,
		revocations:  revocations,
		tokenService: ts,
		credentials:  NewCredentialsValidator(cfg.MinPasswordLength),
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, creds Credentials) (*Session, error) {
	if err := s.credentials.Validate(&creds); err != nil {
		return nil, err
	}

	hash, algo, err := HashPassword(creds.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &User{
		Email:        creds.Email,
		PasswordHash: hash,
		PasswordAlgo: algo,
		CreatedAt:    now,
		UpdatedAt:    now,
		Roles:        []string{"user"},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, creds Credentials) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if user.LockoutUntil.After(now) {
		return nil, ErrAccountLocked
	}

	valid, err := VerifyPassword(creds.Password, user.PasswordHash, user.PasswordAlgo)
	if err != nil {
		return nil, err
	}

	if !valid {
		attempts := user.LoginAttempts + 1
		lockoutUntil := user.LockoutUntil
		if attempts >= s.cfg.LockoutThreshold {
			lockoutUntil = now.Add(s.cfg.LockoutDuration)
			attempts = 0
		}
		// Login stats are advisory; a failed write does not change the answer.
		if err := s.users.UpdateUserLoginStats(ctx, user.ID, user.LastLoginAt, attempts, lockoutUntil); err != nil {
			slog.Warn("Failed to update login stats for failed attempt",
				"user_id", user.ID,
				"error", err,
			)
		}
		return nil, ErrInvalidCredentials
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	if err := s.users.UpdateUserLoginStats(ctx, user.ID, now, 0, time.Time{}); err != nil {
		slog.Warn("Failed to reset login stats after successful login",
			"user_id", user.ID,
			"error", err,
		)
	}
	user.LastLoginAt = now
	user.LoginAttempts = 0
	user.LockoutUntil = time.Time{}

	return s.issue(user)
}

func (s *AuthService) issue(user *User) (*Session, error) {
	token, expiresAt, err := s.tokenService.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokenService.ValidateToken(token)
	if err != nil {
		return nil
	}
	err = s.revocations.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time)
	if errors.Is(err, types.ErrTokenAlreadyRevoked) {
		return nil
	}
	return err
}

func (s *AuthService) Me(ctx context.Context, userID string) (*User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// Authenticate validates the token signature, expiry and revocation status.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.tokenService.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *AuthService) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (s *AuthService) SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.ExpiresAt.Sub(s.now()).Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: s.cfg.SameSite(),
	})
}

func (s *AuthService) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: s.cfg.SameSite(),
	})
}

func (s *AuthService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.TokenFromRequest(r)
		if token == "" {
			writeUnauthorized(w, "Not authenticated")
			return
		}

		claims, err := s.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrTokenRevoked) {
				slog.Error("Token revocation lookup failed", "error", err)
			}
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClaims stores the authenticated identity in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, claims.Subject)
	ctx = context.WithValue(ctx, ContextKeyEmail, claims.Email)
	ctx = context.WithValue(ctx, ContextKeyRoles, claims.Roles)
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

// ClaimsFromContext returns the claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ContextKeyClaims).(*Claims)
	return c, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
