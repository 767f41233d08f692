package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mentora/mentora/internal/logger"
	"github.com/mentora/mentora/internal/mail"
	"github.com/mentora/mentora/internal/token"
	"github.com/mentora/mentora/internal/validator"
)

// PasswordResetRequest contains data needed for a password reset flow.
type PasswordResetRequest struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// PasswordService provides password-based authentication with configurable
// security requirements.
type PasswordService struct {
	storage    PasswordStorage
	tokens     *token.Service
	bcryptCost int
	policy     validator.PasswordPolicy
	logger     *slog.Logger

	mailer       mail.Sender
	resetBaseURL string
}

// PasswordOption configures a PasswordService during construction.
type PasswordOption func(*PasswordService)

// WithPasswordLogger sets a custom logger for the service.
func WithPasswordLogger(l *slog.Logger) PasswordOption {
	return func(s *PasswordService) { s.logger = l }
}

// WithBcryptCost sets the bcrypt cost for password hashing.
// The cost is a tunable work factor, not a magic number; raise it as hardware
// gets faster.
func WithBcryptCost(cost int) PasswordOption {
	return func(s *PasswordService) { s.bcryptCost = cost }
}

// WithPasswordPolicy sets custom password complexity requirements.
func WithPasswordPolicy(policy validator.PasswordPolicy) PasswordOption {
	return func(s *PasswordService) { s.policy = policy }
}

// WithResetMailer enables password-reset email delivery. resetBaseURL is the
// frontend page the emailed link points at; the token is appended as a query
// parameter.
func WithResetMailer(m mail.Sender, resetBaseURL string) PasswordOption {
	return func(s *PasswordService) {
		s.mailer = m
		s.resetBaseURL = resetBaseURL
	}
}

// NewPasswordService creates a new password authentication service.
func NewPasswordService(storage PasswordStorage, tokens *token.Service, opts ...PasswordOption) *PasswordService {
	s := &PasswordService{
		storage:    storage,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		policy:     validator.DefaultPasswordPolicy(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register creates a new user with email and password. The password is hashed
// before the record is persisted; email uniqueness is enforced by the store's
// unique index, so a concurrent duplicate surfaces as ErrEmailAlreadyExists
// from CreateUser rather than being caught by a racy pre-check.
func (s *PasswordService) Register(ctx context.Context, email, password string) (*User, error) {
	email = validator.NormalizeEmail(email)

	if err := validator.Apply(
		validator.ValidEmail("email", email),
		validator.StrongPassword("password", password, s.policy),
	); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleStudent,
		CreatedAt:    time.Now(),
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies email and password, returning the user if valid.
// Unknown email, missing hash and wrong password all produce the same
// ErrInvalidCredentials to prevent account enumeration.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = validator.NormalizeEmail(email)

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// OAuth-only accounts have no hash and cannot log in with a password.
	if len(user.PasswordHash) == 0 {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ChangePassword updates the password for an authenticated user after
// verifying the old one.
func (s *PasswordService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if err := validator.Apply(
		validator.StrongPassword("password", newPassword, s.policy),
	); err != nil {
		return err
	}

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	if len(user.PasswordHash) == 0 {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.storage.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// ForgotPassword generates a password reset token for the given email and,
// when a mailer is configured, sends the reset link. The handler must mask
// ErrUserNotFound by always answering success to the client.
func (s *PasswordService) ForgotPassword(ctx context.Context, email string) (*PasswordResetRequest, error) {
	email = validator.NormalizeEmail(email)

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrUserNotFound
	}

	tokenStr, err := s.tokens.Issue(token.KindReset, user.ID.String(), user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	req := &PasswordResetRequest{
		Email: email,
		Token: tokenStr,
	}

	if s.mailer != nil {
		if err := s.mailer.Send(ctx, mail.SendParams{
			SendTo:   email,
			Subject:  "Reset your Mentora password",
			BodyHTML: resetEmailBody(s.resetBaseURL, tokenStr),
			Tag:      "password-reset",
		}); err != nil {
			s.logger.Error("failed to send password reset email",
				logger.UserID(user.ID.String()),
				logger.Error(err),
				logger.Component("password"),
			)
			return nil, fmt.Errorf("failed to send reset email: %w", err)
		}
	}

	return req, nil
}

// ResetPassword resets the password using a valid reset token.
func (s *PasswordService) ResetPassword(ctx context.Context, resetToken, newPassword string) (*User, error) {
	if err := validator.Apply(
		validator.StrongPassword("password", newPassword, s.policy),
	); err != nil {
		return nil, err
	}

	claims, err := s.tokens.Verify(resetToken, token.KindReset)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, token.ErrTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.storage.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	return s.storage.GetUserByID(ctx, userID)
}

func resetEmailBody(baseURL, tok string) string {
	link := baseURL + "?token=" + tok
	return fmt.Sprintf(
		`<p>We received a request to reset your Mentora password.</p>
<p><a href=%q>Reset password</a></p>
<p>The link expires in one hour. If you did not request this, you can ignore this email.</p>`,
		link,
	)
}
