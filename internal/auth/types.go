package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role drives every authorization decision in the platform.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether the role is one of the known values.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// OAuth provider identifiers.
const (
	OAuthProviderGoogle = "google"
	OAuthProviderGithub = "github"
)

// User represents a stored account usable for authentication.
// PasswordHash is empty for accounts created solely via OAuth and is never
// serialized to clients.
type User struct {
	ID             uuid.UUID
	Email          string
	PasswordHash   []byte
	Role           Role
	Name           string // display name (optional)
	Avatar         string // avatar URL (optional)
	OAuthProvider  string // set only for OAuth-created or linked accounts
	OAuthSubjectID string // provider subject id; lookups use (provider, subject), never email
	CreatedAt      time.Time
}

// PasswordStorage defines the storage operations required for password
// authentication. Uniqueness of email is enforced by the store itself, not by
// check-then-insert, so concurrent registrations cannot both succeed.
type PasswordStorage interface {
	// CreateUser persists a new user. Returns ErrEmailAlreadyExists when the
	// email is taken.
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash []byte) error
}

// OAuthStorage defines the storage operations required by the OAuth service.
type OAuthStorage interface {
	// CreateUser persists a new user. Returns ErrEmailAlreadyExists or
	// ErrProviderAlreadyLinked on unique-index violations.
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetUserByProvider looks a user up by the compound (provider, subject)
	// key. Email is never used as a join key here.
	GetUserByProvider(ctx context.Context, provider, providerUserID string) (*User, error)
}

// StateStore holds one-time OAuth state tokens for CSRF protection.
type StateStore interface {
	Store(ctx context.Context, state string, ttl time.Duration) error
	// Consume atomically checks that state exists and removes it.
	// Returns ErrStateNotFound if absent or already consumed.
	Consume(ctx context.Context, state string) error
}

// ProviderProfile is the normalized identity assertion a provider adapter
// resolves from an authorization code.
type ProviderProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// ProviderAdapter hides provider-specific wire details from the OAuth service.
type ProviderAdapter interface {
	ProviderID() string
	AuthURL(state string) (string, error)
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}
