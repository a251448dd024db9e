package storage

import (
	"github.com/leadflow/leadflow/internal/core/storage/types"
)

type User = types.User
type RevokedToken = types.RevokedToken
type FindOptions = types.FindOptions
type LeadStore = types.LeadStore
type UserStore = types.UserStore
type TokenRevocationStore = types.TokenRevocationStore

var (
	ErrUserNotFound        = types.ErrUserNotFound
	ErrUserExists          = types.ErrUserExists
	ErrTokenAlreadyRevoked = types.ErrTokenAlreadyRevoked
)
