package leads

import (
	"context"

	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/leadflow/leadflow/pkg/model"
	"github.com/stretchr/testify/mock"
)

type MockLeadStore struct {
	mock.Mock
}

func (m *MockLeadStore) Count(ctx context.Context, filters model.FilterSet) (int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLeadStore) Find(ctx context.Context, filters model.FilterSet, opts types.FindOptions) ([]*model.Lead, error) {
	args := m.Called(ctx, filters, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Lead), args.Error(1)
}

func (m *MockLeadStore) Get(ctx context.Context, id string) (*model.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadStore) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadStore) Create(ctx context.Context, lead *model.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadStore) Update(ctx context.Context, id string, input model.LeadInput) (*model.Lead, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLeadStore) InsertMany(ctx context.Context, leads []*model.Lead) error {
	return m.Called(ctx, leads).Error(0)
}

func (m *MockLeadStore) DeleteAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLeadStore) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLeadStore) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return m.Called(ctx, subject, data).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}
