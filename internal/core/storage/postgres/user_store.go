package postgres

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/lib/pq"
	"github.com/zeebo/blake3"
)

const uniqueViolation = "23505"

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

type userStore struct {
	db    *sqlx.DB
	table string
}

// userRow mirrors the users table; nullable timestamps map to zero times.
type userRow struct {
	ID            string         `db:"id"`
	Email         string         `db:"email"`
	PasswordHash  string         `db:"password_hash"`
	PasswordAlgo  string         `db:"password_algo"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	Disabled      bool           `db:"disabled"`
	Roles         pq.StringArray `db:"roles"`
	LastLoginAt   sql.NullTime   `db:"last_login_at"`
	LoginAttempts int            `db:"login_attempts"`
	LockoutUntil  sql.NullTime   `db:"lockout_until"`
}

func (r *userRow) toUser() *types.User {
	u := &types.User{
		ID:            r.ID,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		PasswordAlgo:  r.PasswordAlgo,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Disabled:      r.Disabled,
		Roles:         []string(r.Roles),
		LoginAttempts: r.LoginAttempts,
	}
	if r.LastLoginAt.Valid {
		u.LastLoginAt = r.LastLoginAt.Time
	}
	if r.LockoutUntil.Valid {
		u.LockoutUntil = r.LockoutUntil.Time
	}
	return u
}

// NewUserStore creates a PostgreSQL-backed UserStore on the given table.
func NewUserStore(db *sqlx.DB, tableName string) (types.UserStore, error) {
	if tableName == "" {
		tableName = "users"
	}
	if !tableNamePattern.MatchString(tableName) {
		return nil, fmt.Errorf("invalid postgres table name %q", tableName)
	}
	return &userStore{db: db, table: tableName}, nil
}

// EnsureSchema creates the users table if it does not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB, tableName string) error {
	if tableName == "" {
		tableName = "users"
	}
	if !tableNamePattern.MatchString(tableName) {
		return fmt.Errorf("invalid postgres table name %q", tableName)
	}
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id              VARCHAR(64) PRIMARY KEY,
    email           VARCHAR(254) NOT NULL,
    password_hash   TEXT NOT NULL,
    password_algo   VARCHAR(32) NOT NULL DEFAULT 'argon2id',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    disabled        BOOLEAN NOT NULL DEFAULT FALSE,
    roles           TEXT[] NOT NULL DEFAULT '{}',
    last_login_at   TIMESTAMPTZ,
    login_attempts  INTEGER NOT NULL DEFAULT 0,
    lockout_until   TIMESTAMPTZ
)`, tableName)
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *userStore) CreateUser(ctx context.Context, user *types.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var count int
	err := s.db.GetContext(ctx, &count, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE email = $1`, s.table), user.Email)
	if err != nil {
		return err
	}
	if count > 0 {
		return types.ErrUserExists
	}

	if user.ID == "" {
		hash := blake3.Sum256([]byte(user.Email))
		user.ID = hex.EncodeToString(hash[:16])
	}

	// NOT NULL array column
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	var lastLoginAt, lockoutUntil *time.Time
	if !user.LastLoginAt.IsZero() {
		lastLoginAt = &user.LastLoginAt
	}
	if !user.LockoutUntil.IsZero() {
		lockoutUntil = &user.LockoutUntil
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, email, password_hash, password_algo,
			created_at, updated_at, disabled, roles,
			last_login_at, login_attempts, lockout_until
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, s.table),
		user.ID, user.Email, user.PasswordHash, user.PasswordAlgo,
		user.CreatedAt, user.UpdatedAt, user.Disabled, pq.Array(roles),
		lastLoginAt, user.LoginAttempts, lockoutUntil,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return types.ErrUserExists
	}
	return err
}

func (s *userStore) selectColumns() string {
	return fmt.Sprintf(`SELECT id, email, password_hash, password_algo,
		created_at, updated_at, disabled, roles,
		last_login_at, login_attempts, lockout_until
		FROM %s`, s.table)
}

func (s *userStore) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.getOne(ctx, s.selectColumns()+` WHERE email = $1`, email)
}

func (s *userStore) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	return s.getOne(ctx, s.selectColumns()+` WHERE id = $1`, id)
}

func (s *userStore) getOne(ctx context.Context, query string, arg any) (*types.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, err
	}
	return row.toUser(), nil
}

func (s *userStore) UpdateUserLoginStats(ctx context.Context, id string, lastLogin time.Time, attempts int, lockoutUntil time.Time) error {
	var lastLoginAt, lockoutUntilPtr *time.Time
	if !lastLogin.IsZero() {
		lastLoginAt = &lastLogin
	}
	if !lockoutUntil.IsZero() {
		lockoutUntilPtr = &lockoutUntil
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET
			last_login_at = $1,
			login_attempts = $2,
			lockout_until = $3
		WHERE id = $4`, s.table),
		lastLoginAt, attempts, lockoutUntilPtr, id)
	return err
}

func (s *userStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table))
	return err
}

func (s *userStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_email ON %[1]s(email)`, s.table))
	return err
}

func (s *userStore) Close(ctx context.Context) error {
	return nil
}
