package auth

import "errors"

// General authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
)

// Authorization errors
var (
	ErrForbidden = errors.New("forbidden")
)

// OAuth-specific errors
var (
	ErrInvalidState          = errors.New("invalid OAuth state")
	ErrStateNotFound         = errors.New("OAuth state not found or expired")
	ErrInvalidCode           = errors.New("invalid OAuth code")
	ErrProviderAlreadyLinked = errors.New("provider already linked to another account")
	ErrProviderEmailInUse    = errors.New("email from provider already registered")
	ErrProviderLink          = errors.New("failed to link provider account")
)
