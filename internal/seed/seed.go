package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadflow/leadflow/internal/core/identity/authn"
	"github.com/leadflow/leadflow/internal/core/storage/types"
)

const (
	DefaultEmail    = "testuser@test.com"
	DefaultPassword = "test1234"
	DefaultLeads    = 150
)

// Options controls a seeding run.
type Options struct {
	Email    string
	Password string
	Leads    int
	Seed     uint64
	Now      time.Time
}

func (o *Options) applyDefaults() {
	if o.Email == "" {
		o.Email = DefaultEmail
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	if o.Leads <= 0 {
		o.Leads = DefaultLeads
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Seed == 0 {
		o.Seed = uint64(o.Now.UnixNano())
	}
}

// Result summarizes what a run wrote.
type Result struct {
	UserID string
	Leads  int
}

// Run wipes users and leads, then creates the demo user and random leads.
func Run(ctx context.Context, users types.UserStore, leads types.LeadStore, opts Options, logger *slog.Logger) (*Result, error) {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Clearing existing data")
	if err := users.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear users: %w", err)
	}
	if err := leads.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear leads: %w", err)
	}

	hash, algo, err := authn.HashPassword(opts.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := opts.Now.UTC()
	user := &types.User{
		Email:        opts.Email,
		PasswordHash: hash,
		PasswordAlgo: algo,
		CreatedAt:    now,
		UpdatedAt:    now,
		Roles:        []string{"user"},
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logger.Info("Test user created", "email", opts.Email)

	generated := NewLeadGenerator(opts.Seed, opts.Now).Generate(opts.Leads)
	if err := leads.InsertMany(ctx, generated); err != nil {
		return nil, fmt.Errorf("failed to insert leads: %w", err)
	}
	logger.Info("Leads inserted", "count", len(generated))

	return &Result{UserID: user.ID, Leads: len(generated)}, nil
}
