package authn

import (
	identtypes "github.com/leadflow/leadflow/internal/core/identity/types"
	"github.com/leadflow/leadflow/internal/core/storage/types"
)

// Directly reuse public identity types to avoid duplicate definitions and adapters.
type (
	Claims      = identtypes.Claims
	Credentials = identtypes.Credentials
	Session     = identtypes.Session
	User        = identtypes.User
)

const (
	ContextKeyUserID = identtypes.ContextKeyUserID
	ContextKeyEmail  = identtypes.ContextKeyEmail
	ContextKeyRoles  = identtypes.ContextKeyRoles
	ContextKeyClaims = identtypes.ContextKeyClaims
)

// Keep storage aliases for store interfaces.
type (
	UserStore            = types.UserStore
	TokenRevocationStore = types.TokenRevocationStore
)

var (
	ErrUserNotFound = types.ErrUserNotFound
	ErrUserExists   = types.ErrUserExists
)
