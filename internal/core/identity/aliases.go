package identity

import "github.com/leadflow/leadflow/internal/core/identity/types"

type (
	ContextKey   = types.ContextKey
	Claims       = types.Claims
	Credentials  = types.Credentials
	Session      = types.Session
	RuleSet      = types.RuleSet
	AuthzRequest = types.AuthzRequest
	Auth         = types.Authenticated
	Resource     = types.Resource
	User         = types.User
)

const (
	ContextKeyUserID = types.ContextKeyUserID
	ContextKeyEmail  = types.ContextKeyEmail
	ContextKeyRoles  = types.ContextKeyRoles
	ContextKeyClaims = types.ContextKeyClaims
)
