package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind selects which signing secret and lifetime a token is issued and
// verified with. Verifying a token with the wrong kind fails even when the
// signature would match, because the kind is embedded as a claim.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	// KindReset is used for password-reset links. Reset tokens are signed with
	// the access secret; the kind claim keeps them unusable as access tokens.
	KindReset Kind = "reset"
)

// minSecretLen guards against secrets too weak for HMAC-SHA256.
const minSecretLen = 32

// Config holds signing secrets and token lifetimes.
// Both secrets are required at process start; there is no insecure fallback.
type Config struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"mentora"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	ResetTTL      time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
}

// Claims carried by every token the service issues.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Kind  string `json:"kind"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256-signed tokens.
type Service struct {
	cfg Config
}

// NewService validates the configuration and returns a token service.
// Equal access and refresh secrets are rejected so a token of one kind can
// never verify under the other secret.
func NewService(cfg Config) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if len(cfg.AccessSecret) < minSecretLen || len(cfg.RefreshSecret) < minSecretLen {
		return nil, ErrSecretTooShort
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSecretsEqual
	}
	return &Service{cfg: cfg}, nil
}

// Issue creates a signed token of the given kind for the subject.
func (s *Service) Issue(kind Kind, subjectID, email, role string) (string, error) {
	ttl, err := s.ttl(kind)
	if err != nil {
		return "", err
	}
	secret, err := s.secret(kind)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	claims := Claims{
		Email: email,
		Role:  role,
		Kind:  string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

// Verify parses a token string, checking the signature against the secret for
// the given kind and rejecting tokens whose embedded kind does not match.
func (s *Service) Verify(tokenString string, kind Kind) (*Claims, error) {
	secret, err := s.secret(kind)
	if err != nil {
		return nil, err
	}

	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != string(kind) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Service) ttl(kind Kind) (time.Duration, error) {
	switch kind {
	case KindAccess:
		return s.cfg.AccessTTL, nil
	case KindRefresh:
		return s.cfg.RefreshTTL, nil
	case KindReset:
		return s.cfg.ResetTTL, nil
	default:
		return 0, ErrUnknownKind
	}
}

func (s *Service) secret(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess, KindReset:
		return []byte(s.cfg.AccessSecret), nil
	case KindRefresh:
		return []byte(s.cfg.RefreshSecret), nil
	default:
		return nil, ErrUnknownKind
	}
}
