package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mentora/mentora/internal/auth"
	"github.com/mentora/mentora/internal/logger"
	"github.com/mentora/mentora/internal/token"
)

// Config holds API-level configuration.
type Config struct {
	// FrontendURL is where OAuth callbacks redirect with the issued token.
	FrontendURL string `env:"FRONTEND_URL,required"`
	// RequestTimeout bounds request handling end to end.
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
}

// UserDirectory is the read/admin surface of the credential store the API
// uses outside the authentication strategies.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error)
	ListUsers(ctx context.Context) ([]*auth.User, error)
}

// Server wires authentication strategies and the credential store into the
// HTTP surface. Strategies are injected explicitly; there is no global
// registry.
type Server struct {
	cfg       Config
	tokens    *token.Service
	passwords *auth.PasswordService
	oauth     map[string]*auth.OAuthService
	users     UserDirectory
	health    []func(context.Context) error
	logger    *slog.Logger
}

// ServerOption configures a Server during construction.
type ServerOption func(*Server)

// WithServerLogger sets the request logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithHealthchecks registers dependency probes for the health endpoint.
func WithHealthchecks(checks ...func(context.Context) error) ServerOption {
	return func(s *Server) { s.health = append(s.health, checks...) }
}

// NewServer constructs the API server. Each OAuth service is keyed by its
// provider id; routes select the strategy explicitly by URL parameter.
func NewServer(cfg Config, tokens *token.Service, passwords *auth.PasswordService, oauthServices []*auth.OAuthService, users UserDirectory, opts ...ServerOption) *Server {
	s := &Server{
		cfg:       cfg,
		tokens:    tokens,
		passwords: passwords,
		oauth:     make(map[string]*auth.OAuthService, len(oauthServices)),
		users:     users,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, svc := range oauthServices {
		s.oauth[svc.Provider()] = svc
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/refresh-token", s.handleRefreshToken)
	r.Post("/logout", s.handleLogout)
	r.Post("/forgot-password", s.handleForgotPassword)
	r.Post("/reset-password", s.handleResetPassword)

	r.Get("/oauth/{provider}", s.handleOAuthStart)
	r.Get("/oauth/{provider}/callback", s.handleOAuthCallback)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/me", s.handleMe)
		r.Post("/me/password", s.handleChangePassword)
		r.Get("/users/{userID}", s.handleGetUser)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Get("/users", s.handleListUsers)
			r.Patch("/users/{userID}/role", s.handleUpdateRole)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			logger.RequestID(middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, check := range s.health {
		if err := check(r.Context()); err != nil {
			s.logger.Error("healthcheck failed", logger.Error(err), logger.Component("health"))
			writeError(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
