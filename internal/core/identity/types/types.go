package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	storagetypes "github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/leadflow/leadflow/internal/ctxkeys"
)

// ContextKey is used for storing identity data in the request context.
type ContextKey = ctxkeys.Key

// Context keys shared with authentication middleware.
const (
	ContextKeyUserID = ctxkeys.KeyUserID
	ContextKeyEmail  = ctxkeys.KeyEmail
	ContextKeyRoles  = ctxkeys.KeyRoles
	ContextKeyClaims = ctxkeys.KeyClaims
)

// Claims represents JWT claims returned by token validation.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Credentials is the register and login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is an issued access token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// RuleSet maps actions to CEL conditions. A key may list several actions
// separated by commas; "read" covers get and list, "write" covers create,
// update and delete.
type RuleSet struct {
	Version string            `json:"rules_version" yaml:"rules_version"`
	Allow   map[string]string `json:"allow" yaml:"allow"`
}

// AuthzRequest captures authorization evaluation inputs.
type AuthzRequest struct {
	Auth     Authenticated `json:"auth"`
	Resource *Resource     `json:"resource,omitempty"`
	Time     time.Time     `json:"time"`
}

// Authenticated stores authentication context for authorization evaluation.
type Authenticated struct {
	UID   string   `json:"uid"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

// Resource describes the lead an action targets.
type Resource struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

type User = storagetypes.User
