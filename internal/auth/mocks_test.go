package auth_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mentora/mentora/internal/auth"
)

type mockUserStorage struct {
	mock.Mock
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStorage) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStorage) GetUserByProvider(ctx context.Context, provider, providerUserID string) (*auth.User, error) {
	args := m.Called(ctx, provider, providerUserID)
	if user := args.Get(0); user != nil {
		return user.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStorage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash []byte) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

type mockStateStore struct {
	mock.Mock
}

func (m *mockStateStore) Store(ctx context.Context, state string, ttl time.Duration) error {
	args := m.Called(ctx, state, ttl)
	return args.Error(0)
}

func (m *mockStateStore) Consume(ctx context.Context, state string) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

type mockAdapter struct {
	mock.Mock
}

func (m *mockAdapter) ProviderID() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockAdapter) AuthURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *mockAdapter) ResolveProfile(ctx context.Context, code string) (auth.ProviderProfile, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(auth.ProviderProfile), args.Error(1)
}
