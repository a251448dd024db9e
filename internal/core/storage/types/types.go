package types

import (
	"context"
	"errors"
	"time"

	"github.com/leadflow/leadflow/pkg/model"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrTokenAlreadyRevoked = errors.New("token already revoked")
)

// User represents an account allowed to manage leads
type User struct {
	ID            string    `json:"id" bson:"_id" db:"id"`
	Email         string    `json:"email" bson:"email" db:"email"`
	PasswordHash  string    `json:"-" bson:"password_hash" db:"password_hash"`
	PasswordAlgo  string    `json:"-" bson:"password_algo" db:"password_algo"` // "argon2id" or "bcrypt"
	CreatedAt     time.Time `json:"createdAt" bson:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updated_at" db:"updated_at"`
	Disabled      bool      `json:"disabled" bson:"disabled" db:"disabled"`
	Roles         []string  `json:"roles" bson:"roles" db:"-"`
	LastLoginAt   time.Time `json:"last_login_at" bson:"last_login_at" db:"last_login_at"`
	LoginAttempts int       `json:"login_attempts" bson:"login_attempts" db:"login_attempts"`
	LockoutUntil  time.Time `json:"lockout_until" bson:"lockout_until" db:"lockout_until"`
}

// RevokedToken represents a revoked JWT
type RevokedToken struct {
	JTI       string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	RevokedAt time.Time `bson:"revoked_at"`
}

// FindOptions controls paging of lead queries. Results are always newest first.
type FindOptions struct {
	Skip  int64
	Limit int64
}

// LeadStore persists leads and evaluates filter sets against them
type LeadStore interface {
	// Count returns the number of leads matching the filters
	Count(ctx context.Context, filters model.FilterSet) (int64, error)

	// Find returns one page of matching leads ordered by created_at descending
	Find(ctx context.Context, filters model.FilterSet, opts FindOptions) ([]*model.Lead, error)

	// Get returns a lead by id, model.ErrInvalidID for a malformed id, model.ErrNotFound if absent
	Get(ctx context.Context, id string) (*model.Lead, error)

	// ExistsByEmail reports whether a lead other than excludeID uses the email
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)

	// Create inserts the lead and assigns its id
	Create(ctx context.Context, lead *model.Lead) error

	// Update applies the supplied fields, refreshes updated_at and returns the stored result
	Update(ctx context.Context, id string, input model.LeadInput) (*model.Lead, error)

	// Delete removes a lead permanently
	Delete(ctx context.Context, id string) error

	// InsertMany bulk-inserts leads, used for seeding
	InsertMany(ctx context.Context, leads []*model.Lead) error

	// DeleteAll removes every lead
	DeleteAll(ctx context.Context) error

	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

// UserStore defines the interface for user persistence
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUserLoginStats(ctx context.Context, id string, lastLogin time.Time, attempts int, lockoutUntil time.Time) error
	DeleteAll(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

// TokenRevocationStore defines the interface for token revocation
type TokenRevocationStore interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}
