package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mentora/mentora/internal/auth"
	"github.com/mentora/mentora/internal/logger"
	"github.com/mentora/mentora/internal/token"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type userPayload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Name      string    `json:"name,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type authResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         userPayload `json:"user"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func toUserPayload(u *auth.User) userPayload {
	return userPayload{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      string(u.Role),
		Name:      u.Name,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// issueTokenPair mints an access and a refresh token for the user.
func (s *Server) issueTokenPair(u *auth.User) (access, refresh string, err error) {
	access, err = s.tokens.Issue(token.KindAccess, u.ID.String(), u.Email, string(u.Role))
	if err != nil {
		return "", "", err
	}
	refresh, err = s.tokens.Issue(token.KindRefresh, u.ID.String(), u.Email, string(u.Role))
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := s.passwords.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	access, refresh, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error("failed to issue tokens", logger.UserID(user.ID.String()), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toUserPayload(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.passwords.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	access, refresh, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error("failed to issue tokens", logger.UserID(user.ID.String()), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toUserPayload(user),
	})
}

// handleRefreshToken verifies a refresh token and mints a fresh pair. The
// user is re-read from the store so role changes and deletions take effect at
// refresh time even though access tokens are stateless.
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	claims, err := s.tokens.Verify(req.RefreshToken, token.KindRefresh)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	user, err := s.users.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	access, refresh, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error("failed to issue tokens", logger.UserID(user.ID.String()), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: access, RefreshToken: refresh})
}

// handleLogout acknowledges the request. Tokens are stateless and unregistered
// so there is nothing to revoke server-side; the client discards its copy.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleForgotPassword always answers ok for unknown emails so the endpoint
// cannot be used to probe which addresses are registered.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if _, err := s.passwords.ForgotPassword(r.Context(), req.Email); err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			s.logger.Error("forgot password failed", logger.Error(err), logger.Component("password"))
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if _, err := s.passwords.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.oauth[chi.URLParam(r, "provider")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_provider")
		return
	}

	authURL, err := svc.AuthURL(r.Context())
	if err != nil {
		s.logger.Error("failed to build oauth url", logger.Provider(svc.Provider()), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.oauth[chi.URLParam(r, "provider")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_provider")
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := svc.Auth(r.Context(), code, state)
	if err != nil {
		s.logger.Warn("oauth callback failed", logger.Provider(svc.Provider()), logger.Error(err))
		writeDomainError(w, err)
		return
	}

	access, err := s.tokens.Issue(token.KindAccess, user.ID.String(), user.Email, string(user.Role))
	if err != nil {
		s.logger.Error("failed to issue tokens", logger.UserID(user.ID.String()), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	redirect := s.cfg.FrontendURL + "?token=" + url.QueryEscape(access)
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	// The token carries id/email/role; the store has the full profile.
	user, err := s.users.GetUserByID(r.Context(), identity.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserPayload(user))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := s.passwords.ChangePassword(r.Context(), identity.ID, req.OldPassword, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id")
		return
	}

	// Authorization runs before the store is touched.
	if err := auth.Authorize(identity, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	user, err := s.users.GetUserByID(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserPayload(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payload := make([]userPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, toUserPayload(u))
	}

	writeJSON(w, http.StatusOK, payload)
}

// handleUpdateRole mutates a user's role. Admin-only; role changes are never
// self-service.
func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id")
		return
	}

	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	role := auth.Role(req.Role)
	if !role.IsValid() {
		writeDomainError(w, auth.ErrInvalidRole)
		return
	}

	user, err := s.users.UpdateRole(r.Context(), userID, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("role updated", logger.UserID(user.ID.String()), logger.Role(string(role)))
	writeJSON(w, http.StatusOK, toUserPayload(user))
}
