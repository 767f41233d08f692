package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mentora/mentora/internal/auth"
	"github.com/mentora/mentora/internal/token"
)

// authenticate is the per-request gate for protected endpoints. It extracts a
// bearer access token, verifies it, and attaches the token-derived identity to
// the request context. No server-side session store is consulted: the identity
// is purely what the signed claims assert.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := s.tokens.Verify(tokenString, token.KindAccess)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		identity := &auth.User{
			ID:    userID,
			Email: claims.Email,
			Role:  auth.Role(claims.Role),
		}

		next.ServeHTTP(w, r.WithContext(setIdentity(r.Context(), identity)))
	})
}

// requireAdmin rejects requests whose identity lacks the admin role. Must be
// chained after authenticate.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		if err := auth.RequireRole(identity, auth.RoleAdmin); err != nil {
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header per RFC 6750.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
