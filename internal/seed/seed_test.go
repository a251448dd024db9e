package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/leadflow/leadflow/internal/core/identity/authn"
	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/leadflow/leadflow/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	types.UserStore
	calls    []string
	created  *types.User
	clearErr error
}

func (f *fakeUsers) DeleteAll(context.Context) error {
	f.calls = append(f.calls, "users.clear")
	return f.clearErr
}

func (f *fakeUsers) CreateUser(_ context.Context, u *types.User) error {
	f.calls = append(f.calls, "users.create")
	u.ID = "user-1"
	f.created = u
	return nil
}

type fakeLeads struct {
	types.LeadStore
	users     *fakeUsers
	inserted  []*model.Lead
	insertErr error
}

func (f *fakeLeads) DeleteAll(context.Context) error {
	f.users.calls = append(f.users.calls, "leads.clear")
	return nil
}

func (f *fakeLeads) InsertMany(_ context.Context, leads []*model.Lead) error {
	f.users.calls = append(f.users.calls, "leads.insert")
	f.inserted = leads
	return f.insertErr
}

func TestRun(t *testing.T) {
	users := &fakeUsers{}
	leads := &fakeLeads{users: users}

	res, err := Run(context.Background(), users, leads, Options{Seed: 1, Now: seedNow}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"users.clear", "leads.clear", "users.create", "leads.insert"}, users.calls)
	assert.Equal(t, &Result{UserID: "user-1", Leads: DefaultLeads}, res)
	assert.Len(t, leads.inserted, DefaultLeads)

	require.NotNil(t, users.created)
	assert.Equal(t, DefaultEmail, users.created.Email)
	assert.Equal(t, []string{"user"}, users.created.Roles)
	ok, err := authn.VerifyPassword(DefaultPassword, users.created.PasswordHash, users.created.PasswordAlgo)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRun_CustomCount(t *testing.T) {
	users := &fakeUsers{}
	leads := &fakeLeads{users: users}

	res, err := Run(context.Background(), users, leads, Options{Leads: 3, Seed: 1, Now: seedNow}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Leads)
}

func TestRun_Errors(t *testing.T) {
	t.Run("clear users", func(t *testing.T) {
		users := &fakeUsers{clearErr: errors.New("unauthorized")}
		_, err := Run(context.Background(), users, &fakeLeads{users: users}, Options{Now: seedNow}, nil)
		assert.ErrorContains(t, err, "failed to clear users")
		assert.Nil(t, users.created)
	})

	t.Run("insert leads", func(t *testing.T) {
		users := &fakeUsers{}
		leads := &fakeLeads{users: users, insertErr: model.ErrDuplicateEmail}
		_, err := Run(context.Background(), users, leads, Options{Now: seedNow}, nil)
		assert.ErrorIs(t, err, model.ErrDuplicateEmail)
	})
}
