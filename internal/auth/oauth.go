package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mentora/mentora/internal/logger"
	"github.com/mentora/mentora/internal/validator"
)

// OAuthService exchanges verified provider assertions for local accounts.
// It never merges into an existing local account by email: the compound
// (provider, subject) key is the only safe join key, because a provider can
// assert any rendered email it likes. A colliding email surfaces as
// ErrProviderEmailInUse instead of a silent merge.
type OAuthService struct {
	storage  OAuthStorage
	states   StateStore
	adapter  ProviderAdapter
	logger   *slog.Logger
	stateTTL time.Duration
}

// OAuthOption configures an OAuthService during construction.
type OAuthOption func(*OAuthService)

// WithOAuthLogger sets a custom logger for the service.
func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(s *OAuthService) { s.logger = l }
}

// WithStateTTL configures the lifetime of one-time state tokens.
func WithStateTTL(ttl time.Duration) OAuthOption {
	return func(s *OAuthService) { s.stateTTL = ttl }
}

// NewOAuthService constructs a provider-agnostic OAuth service.
// Defaults: stateTTL = 10 minutes, logger discards.
func NewOAuthService(storage OAuthStorage, states StateStore, adapter ProviderAdapter, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		storage:  storage,
		states:   states,
		adapter:  adapter,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		stateTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the adapter's provider identifier.
func (s *OAuthService) Provider() string {
	return s.adapter.ProviderID()
}

// AuthURL generates an authorization URL with CSRF protection via a stored
// one-time state parameter.
func (s *OAuthService) AuthURL(ctx context.Context) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	if err := s.states.Store(ctx, state, s.stateTTL); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	url, err := s.adapter.AuthURL(state)
	if err != nil {
		return "", fmt.Errorf("failed to build auth url: %w", err)
	}
	return url, nil
}

// Auth handles the OAuth callback. State consumption is one-time, preventing
// replay. An identity already linked to the (provider, subject) pair is
// returned unchanged; profile fields are not re-synced on repeat logins.
func (s *OAuthService) Auth(ctx context.Context, code, state string) (*User, error) {
	if err := s.states.Consume(ctx, state); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to validate state: %w", err)
	}

	profile, err := s.adapter.ResolveProfile(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to resolve provider profile: %w", err)
	}

	if profile.ProviderUserID == "" {
		return nil, fmt.Errorf("invalid profile: missing provider user ID")
	}

	if profile.Email == "" {
		// Some providers withhold email; synthesize a stable placeholder so
		// the account still has a unique natural key.
		profile.Email = fmt.Sprintf("%s_%s@users.noreply.mentora.local", s.adapter.ProviderID(), profile.ProviderUserID)
	}
	profile.Email = validator.NormalizeEmail(profile.Email)

	user, err := s.storage.GetUserByProvider(ctx, s.adapter.ProviderID(), profile.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check oauth link: %w", err)
	}

	// A local account already holding this email must not be silently taken
	// over by a provider assertion.
	_, err = s.storage.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		return nil, ErrProviderEmailInUse
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	user = &User{
		ID:             uuid.New(),
		Email:          profile.Email,
		Role:           RoleStudent,
		Name:           profile.Name,
		Avatar:         profile.AvatarURL,
		OAuthProvider:  s.adapter.ProviderID(),
		OAuthSubjectID: profile.ProviderUserID,
		CreatedAt:      time.Now(),
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) || errors.Is(err, ErrProviderAlreadyLinked) {
			// A concurrent callback for the same subject may have won the
			// insert; retry the lookup once before giving up.
			if existing, lookupErr := s.storage.GetUserByProvider(ctx, s.adapter.ProviderID(), profile.ProviderUserID); lookupErr == nil {
				return existing, nil
			}
			s.logger.Error("oauth create race did not resolve to an existing link",
				logger.Provider(s.adapter.ProviderID()),
				logger.Error(err),
				logger.Component("oauth"),
			)
			return nil, ErrProviderLink
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
