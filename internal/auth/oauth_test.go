package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mentora/mentora/internal/auth"
)

func TestOAuthServiceAuthURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores a fresh state and delegates to the adapter", func(t *testing.T) {
		t.Parallel()

		states := new(mockStateStore)
		adapter := new(mockAdapter)

		var storedState string
		states.On("Store", ctx, mock.AnythingOfType("string"), 10*time.Minute).
			Run(func(args mock.Arguments) { storedState = args.String(1) }).
			Return(nil)
		adapter.On("AuthURL", mock.AnythingOfType("string")).
			Return("https://provider.example/authorize?state=x", nil)

		svc := auth.NewOAuthService(new(mockUserStorage), states, adapter)

		url, err := svc.AuthURL(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, url)
		assert.NotEmpty(t, storedState)
		adapter.AssertCalled(t, "AuthURL", storedState)
	})

	t.Run("state store failure aborts", func(t *testing.T) {
		t.Parallel()

		states := new(mockStateStore)
		states.On("Store", ctx, mock.Anything, mock.Anything).Return(assert.AnError)

		svc := auth.NewOAuthService(new(mockUserStorage), states, new(mockAdapter))

		_, err := svc.AuthURL(ctx)
		assert.Error(t, err)
	})
}

func TestOAuthServiceAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	profile := auth.ProviderProfile{
		ProviderUserID: "subject-1",
		Email:          "Alice@Example.com",
		EmailVerified:  true,
		Name:           "Alice",
		AvatarURL:      "https://cdn.example/alice.png",
	}

	newFixture := func(t *testing.T) (*mockUserStorage, *mockStateStore, *mockAdapter, *auth.OAuthService) {
		t.Helper()
		storage := new(mockUserStorage)
		states := new(mockStateStore)
		adapter := new(mockAdapter)
		adapter.On("ProviderID").Return(auth.OAuthProviderGoogle).Maybe()
		return storage, states, adapter, auth.NewOAuthService(storage, states, adapter)
	}

	t.Run("existing link is returned unchanged", func(t *testing.T) {
		t.Parallel()

		storage, states, adapter, svc := newFixture(t)

		// Stored profile differs from the fresh assertion; no re-sync happens.
		linked := &auth.User{
			ID:             uuid.New(),
			Email:          "alice@example.com",
			Role:           auth.RoleAdmin,
			Name:           "Old Name",
			OAuthProvider:  auth.OAuthProviderGoogle,
			OAuthSubjectID: "subject-1",
		}

		states.On("Consume", ctx, "state-1").Return(nil)
		adapter.On("ResolveProfile", ctx, "code-1").Return(profile, nil)
		storage.On("GetUserByProvider", ctx, auth.OAuthProviderGoogle, "subject-1").Return(linked, nil)

		user, err := svc.Auth(ctx, "code-1", "state-1")
		require.NoError(t, err)
		assert.Equal(t, linked.ID, user.ID)
		assert.Equal(t, "Old Name", user.Name)
		assert.Equal(t, auth.RoleAdmin, user.Role)
		storage.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("first login creates a student account", func(t *testing.T) {
		t.Parallel()

		storage, states, adapter, svc := newFixture(t)

		states.On("Consume", ctx, "state-1").Return(nil)
		adapter.On("ResolveProfile", ctx, "code-1").Return(profile, nil)
		storage.On("GetUserByProvider", ctx, auth.OAuthProviderGoogle, "subject-1").Return(nil, auth.ErrUserNotFound)
		storage.On("GetUserByEmail", ctx, "alice@example.com").Return(nil, auth.ErrUserNotFound)
		storage.On("CreateUser", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Email == "alice@example.com" &&
				u.Role == auth.RoleStudent &&
				u.OAuthProvider == auth.OAuthProviderGoogle &&
				u.OAuthSubjectID == "subject-1" &&
				len(u.PasswordHash) == 0
		})).Return(nil)

		user, err := svc.Auth(ctx, "code-1", "state-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.Name)
		storage.AssertExpectations(t)
	})

	t.Run("missing provider email gets a placeholder", func(t *testing.T) {
		t.Parallel()

		storage, states, adapter, svc := newFixture(t)

		noEmail := profile
		noEmail.Email = ""

		placeholder := "google_subject-1@users.noreply.mentora.local"

		states.On("Consume", ctx, "state-1").Return(nil)
		adapter.On("ResolveProfile", ctx, "code-1").Return(noEmail, nil)
		storage.On("GetUserByProvider", ctx, auth.OAuthProviderGoogle, "subject-1").Return(nil, auth.ErrUserNotFound)
		storage.On("GetUserByEmail", ctx, placeholder).Return(nil, auth.ErrUserNotFound)
		storage.On("CreateUser", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Email == placeholder
		})).Return(nil)

		user, err := svc.Auth(ctx, "code-1", "state-1")
		require.NoError(t, err)
		assert.Equal(t, placeholder, user.Email)
	})

	t.Run("colliding email is not merged", func(t *testing.T) {
		t.Parallel()

		storage, states, adapter, svc := newFixture(t)

		local := &auth.User{ID: uuid.New(), Email: "alice@example.com", Role: auth.RoleStudent}

		states.On("Consume", ctx, "state-1").Return(nil)
		adapter.On("ResolveProfile", ctx, "code-1").Return(profile, nil)
		storage.On("GetUserByProvider", ctx, auth.OAuthProviderGoogle, "subject-1").Return(nil, auth.ErrUserNotFound)
		storage.On("GetUserByEmail", ctx, "alice@example.com").Return(local, nil)

		_, err := svc.Auth(ctx, "code-1", "state-1")
		assert.ErrorIs(t, err, auth.ErrProviderEmailInUse)
		storage.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("create race resolves to the winner's account", func(t *testing.T) {
		t.Parallel()

		storage, states, adapter, svc := newFixture(t)

		winner := &auth.User{
			ID:             uuid.New(),
			Email:          "alice@example.com",
			OAuthProvider:  auth.OAuthProviderGoogle,
			OAuthSubjectID: "subject-1",
		}

		states.On("Consume", ctx, "state-1").Return(nil)
		adapter.On("ResolveProfile", ctx, "code-1").Return(profile, nil)
		storage.On("GetUserByProvider", ctx, auth.OAuthProviderGoogle, "subject-1").Return(nil, auth.ErrUserNotFound).Once()
		storage.On("GetUserByEmail", ctx, "alice@example.com").Return(nil, auth.ErrUserNotFound)
		storage.On("CreateUser", ctx, mock.Anything).Return(auth.ErrProviderAlreadyLinked)
		storage.On("GetUserByProvider", ctx, auth.OAuthProviderGoogle, "subject-1").Return(winner, nil).Once()

		user, err := svc.Auth(ctx, "code-1", "state-1")
		require.NoError(t, err)
		assert.Equal(t, winner.ID, user.ID)
	})

	t.Run("create race with no surviving link fails", func(t *testing.T) {
		t.Parallel()

		storage, states, adapter, svc := newFixture(t)

		states.On("Consume", ctx, "state-1").Return(nil)
		adapter.On("ResolveProfile", ctx, "code-1").Return(profile, nil)
		storage.On("GetUserByProvider", ctx, auth.OAuthProviderGoogle, "subject-1").Return(nil, auth.ErrUserNotFound)
		storage.On("GetUserByEmail", ctx, "alice@example.com").Return(nil, auth.ErrUserNotFound)
		storage.On("CreateUser", ctx, mock.Anything).Return(auth.ErrEmailAlreadyExists)

		_, err := svc.Auth(ctx, "code-1", "state-1")
		assert.ErrorIs(t, err, auth.ErrProviderLink)
	})

	t.Run("unknown or replayed state", func(t *testing.T) {
		t.Parallel()

		storage, states, adapter, svc := newFixture(t)

		states.On("Consume", ctx, "stale").Return(auth.ErrStateNotFound)

		_, err := svc.Auth(ctx, "code-1", "stale")
		assert.ErrorIs(t, err, auth.ErrInvalidState)
		adapter.AssertNotCalled(t, "ResolveProfile", mock.Anything, mock.Anything)
		storage.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("invalid code", func(t *testing.T) {
		t.Parallel()

		storage, states, adapter, svc := newFixture(t)

		states.On("Consume", ctx, "state-1").Return(nil)
		adapter.On("ResolveProfile", ctx, "bad-code").Return(auth.ProviderProfile{}, auth.ErrInvalidCode)

		_, err := svc.Auth(ctx, "bad-code", "state-1")
		assert.ErrorIs(t, err, auth.ErrInvalidCode)
		storage.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("profile without subject id is rejected", func(t *testing.T) {
		t.Parallel()

		_, states, adapter, svc := newFixture(t)

		broken := profile
		broken.ProviderUserID = ""

		states.On("Consume", ctx, "state-1").Return(nil)
		adapter.On("ResolveProfile", ctx, "code-1").Return(broken, nil)

		_, err := svc.Auth(ctx, "code-1", "state-1")
		assert.Error(t, err)
	})
}
