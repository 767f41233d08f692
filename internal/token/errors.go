package token

import "errors"

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrMissingSecret  = errors.New("missing signing secret")
	ErrSecretTooShort = errors.New("signing secret must be at least 32 bytes")
	ErrSecretsEqual   = errors.New("access and refresh secrets must differ")
	ErrUnknownKind    = errors.New("unknown token kind")
)
