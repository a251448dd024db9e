package identity

import (
	"github.com/leadflow/leadflow/internal/core/identity/authn"
	"github.com/leadflow/leadflow/internal/core/identity/authz"
	"github.com/leadflow/leadflow/internal/core/identity/config"
	"github.com/leadflow/leadflow/internal/core/storage"
)

// Errors from authn
var (
	ErrInvalidCredentials = authn.ErrInvalidCredentials
	ErrAccountDisabled    = authn.ErrAccountDisabled
	ErrAccountLocked      = authn.ErrAccountLocked
	ErrInvalidToken       = authn.ErrInvalidToken
	ErrTokenRevoked       = authn.ErrTokenRevoked
	ErrUserNotFound       = authn.ErrUserNotFound
	ErrUserExists         = authn.ErrUserExists
)

// Actions evaluated by the authorization engine.
const (
	ActionList   = authz.ActionList
	ActionGet    = authz.ActionGet
	ActionCreate = authz.ActionCreate
	ActionUpdate = authz.ActionUpdate
	ActionDelete = authz.ActionDelete
	ActionExport = authz.ActionExport
)

// AuthN and AuthZ are re-exports of the internal implementations using public types.
type (
	AuthN = authn.Service
	AuthZ = authz.Engine
)

// NewAuthN creates a new authentication service.
func NewAuthN(cfg config.AuthNConfig, users storage.UserStore, revocations storage.TokenRevocationStore) (AuthN, error) {
	return authn.NewAuthService(cfg, users, revocations)
}

// NewAuthZ creates a new authorization engine.
func NewAuthZ(cfg config.AuthZConfig) (AuthZ, error) {
	return authz.NewEngine(cfg)
}

// ClaimsFromContext returns the claims stored by the authentication middleware.
var ClaimsFromContext = authn.ClaimsFromContext

// WithClaims stores an authenticated identity in ctx.
var WithClaims = authn.WithClaims

// RequestFromClaims builds an authorization request for the caller.
func RequestFromClaims(claims *Claims, resource *Resource) AuthzRequest {
	req := AuthzRequest{Resource: resource}
	if claims != nil {
		req.Auth = Auth{UID: claims.Subject, Email: claims.Email, Roles: claims.Roles}
	}
	return req
}
