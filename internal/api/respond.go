package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mentora/mentora/internal/auth"
	"github.com/mentora/mentora/internal/token"
	"github.com/mentora/mentora/internal/validator"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

// writeDomainError translates domain failures into the HTTP taxonomy.
// Unanticipated errors become an opaque 500; internal detail never reaches
// the client.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case validator.IsValidationError(err):
		var verrs validator.ValidationErrors
		errors.As(err, &verrs)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_failed", Fields: verrs.Fields()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, token.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token_expired")
	case errors.Is(err, token.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid_token")
	case errors.Is(err, auth.ErrEmailAlreadyExists),
		errors.Is(err, auth.ErrProviderAlreadyLinked):
		writeError(w, http.StatusConflict, "already_exists")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, auth.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "invalid_role")
	case errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrProviderEmailInUse),
		errors.Is(err, auth.ErrProviderLink):
		writeError(w, http.StatusUnauthorized, "oauth_failed")
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
