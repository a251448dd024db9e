package rest

import (
	"context"
	"net/http"

	"github.com/leadflow/leadflow/internal/core/identity"
	"github.com/leadflow/leadflow/internal/core/leads"
	"github.com/leadflow/leadflow/pkg/model"
	"github.com/stretchr/testify/mock"
)

type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) List(ctx context.Context, params leads.ListParams) (*leads.Page, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leads.Page), args.Error(1)
}

func (m *MockLeadService) Get(ctx context.Context, id string) (*model.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadService) Create(ctx context.Context, in model.LeadInput) (*model.Lead, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadService) Update(ctx context.Context, id string, in model.LeadInput) (*model.Lead, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockLeadService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLeadService) Export(ctx context.Context, filters model.FilterSet) ([]*model.Lead, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Lead), args.Error(1)
}

// MockAuthService authenticates every request as claims, or rejects it when
// claims is nil.
type MockAuthService struct {
	mock.Mock
	claims *identity.Claims
}

func (m *MockAuthService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.claims == nil {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithClaims(r.Context(), m.claims)))
	})
}

func (m *MockAuthService) Register(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, creds identity.Credentials) (*identity.Session, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAuthService) Me(ctx context.Context, userID string) (*identity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*identity.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Claims), args.Error(1)
}

func (m *MockAuthService) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

func (m *MockAuthService) SetSessionCookie(w http.ResponseWriter, s *identity.Session) {
	http.SetCookie(w, &http.Cookie{Name: "token", Value: s.Token, Path: "/", HttpOnly: true})
}

func (m *MockAuthService) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
}

type MockAuthzService struct {
	mock.Mock
}

func (m *MockAuthzService) Evaluate(ctx context.Context, action string, req identity.AuthzRequest) (bool, error) {
	args := m.Called(ctx, action, req)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthzService) GetRules() *identity.RuleSet {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*identity.RuleSet)
}

func (m *MockAuthzService) UpdateRules(content []byte) error {
	return m.Called(content).Error(0)
}
