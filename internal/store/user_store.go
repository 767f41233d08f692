package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mentora/mentora/internal/auth"
)

const (
	usersCollection = "users"

	emailIndexName    = "email_unique"
	providerIndexName = "oauth_subject_unique"
)

// UserStore persists user accounts in a MongoDB collection. Email and
// (provider, subject) uniqueness are enforced by unique indexes so concurrent
// inserts cannot both succeed; the duplicate-key error is translated into the
// auth package's sentinel errors.
type UserStore struct {
	col *mongo.Collection
}

// NewUserStore returns a store backed by the users collection of db.
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique indexes the store relies on. Call once at
// startup; index creation is idempotent.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndexName),
		},
		{
			Keys: bson.D{{Key: "oauth_provider", Value: 1}, {Key: "oauth_subject_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(providerIndexName).
				// Local-only accounts carry no provider fields; without the
				// partial filter they would all collide on the missing key.
				SetPartialFilterExpression(bson.D{{Key: "oauth_provider", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

type userDoc struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	PasswordHash   []byte    `bson:"password_hash,omitempty"`
	Role           string    `bson:"role"`
	Name           string    `bson:"name,omitempty"`
	Avatar         string    `bson:"avatar,omitempty"`
	OAuthProvider  string    `bson:"oauth_provider,omitempty"`
	OAuthSubjectID string    `bson:"oauth_subject_id,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toDoc(u *auth.User) userDoc {
	return userDoc{
		ID:             u.ID.String(),
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		Name:           u.Name,
		Avatar:         u.Avatar,
		OAuthProvider:  u.OAuthProvider,
		OAuthSubjectID: u.OAuthSubjectID,
		CreatedAt:      u.CreatedAt,
	}
}

func (d userDoc) toUser() (*auth.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("malformed user id %q: %w", d.ID, err)
	}
	return &auth.User{
		ID:             id,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Role:           auth.Role(d.Role),
		Name:           d.Name,
		Avatar:         d.Avatar,
		OAuthProvider:  d.OAuthProvider,
		OAuthSubjectID: d.OAuthSubjectID,
		CreatedAt:      d.CreatedAt,
	}, nil
}

// CreateUser inserts a new user document. Unique-index violations are
// translated to ErrEmailAlreadyExists or ErrProviderAlreadyLinked depending
// on which index rejected the write.
func (s *UserStore) CreateUser(ctx context.Context, user *auth.User) error {
	_, err := s.col.InsertOne(ctx, toDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return classifyDuplicateKey(err)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID fetches a user by its identifier.
func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

// GetUserByEmail fetches a user by normalized email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// GetUserByProvider fetches a user by the compound provider key.
func (s *UserStore) GetUserByProvider(ctx context.Context, provider, providerUserID string) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"oauth_provider": provider, "oauth_subject_id": providerUserID})
}

// UpdatePasswordHash replaces the stored password hash for a user.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash []byte) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"password_hash": hash}},
	)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// UpdateRole sets a user's role and returns the updated record.
func (s *UserStore) UpdateRole(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error) {
	var doc userDoc
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"role": string(role)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return doc.toUser()
}

// ListUsers returns all users ordered by creation time, newest first.
func (s *UserStore) ListUsers(ctx context.Context) ([]*auth.User, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var users []*auth.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		user, err := doc.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	var doc userDoc
	if err := s.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toUser()
}

// classifyDuplicateKey maps a duplicate-key error to the sentinel for the
// violated index. The driver exposes the index name only through the error
// message, so matching on it is the supported approach.
func classifyDuplicateKey(err error) error {
	if strings.Contains(err.Error(), providerIndexName) {
		return auth.ErrProviderAlreadyLinked
	}
	return auth.ErrEmailAlreadyExists
}
