package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mentora/mentora/internal/api"
	"github.com/mentora/mentora/internal/auth"
	"github.com/mentora/mentora/internal/config"
	"github.com/mentora/mentora/internal/httpserver"
	"github.com/mentora/mentora/internal/logger"
	"github.com/mentora/mentora/internal/mail"
	"github.com/mentora/mentora/internal/mongo"
	"github.com/mentora/mentora/internal/redis"
	"github.com/mentora/mentora/internal/store"
	"github.com/mentora/mentora/internal/token"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	// OAuthProviders lists the enabled providers; each enabled provider's
	// client credentials become required config.
	OAuthProviders []string `env:"OAUTH_PROVIDERS" envSeparator:"," envDefault:""`
	// MailDriver selects "postmark" or "dev" (file sink) delivery.
	MailDriver string `env:"MAIL_DRIVER" envDefault:"dev"`
	// ResetPasswordURL is the frontend page reset links point to.
	ResetPasswordURL string `env:"RESET_PASSWORD_URL,required"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("service exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, "mentora-api"),
	)
	logger.SetAsDefault(log)

	var tokenCfg token.Config
	config.MustLoad(&tokenCfg)
	tokens, err := token.NewService(tokenCfg)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	var mongoCfg mongo.Config
	config.MustLoad(&mongoCfg)
	db, err := mongo.NewWithDatabase(ctx, mongoCfg, mongoCfg.Database)
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)
	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	users := store.NewUserStore(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	states := store.NewStateStore(redisClient)

	mailer, err := newMailer(appCfg)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	passwords := auth.NewPasswordService(users, tokens,
		auth.WithPasswordLogger(log),
		auth.WithResetMailer(mailer, appCfg.ResetPasswordURL),
	)

	oauthServices, err := newOAuthServices(appCfg, users, states, log)
	if err != nil {
		return err
	}

	var apiCfg api.Config
	config.MustLoad(&apiCfg)
	server := api.NewServer(apiCfg, tokens, passwords, oauthServices, users,
		api.WithServerLogger(log),
		api.WithHealthchecks(
			mongo.Healthcheck(db.Client()),
			redis.Healthcheck(redisClient),
		),
	)

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)
	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("listening", slog.String("addr", httpCfg.Addr))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("stopped")
		}),
	)

	return srv.Run(ctx, server.Router())
}

func newMailer(cfg appConfig) (mail.Sender, error) {
	var mailCfg mail.Config
	config.MustLoad(&mailCfg)

	if cfg.MailDriver == "postmark" {
		return mail.NewPostmarkSender(mailCfg)
	}
	return mail.NewDevSender(mailCfg.DevOutputDir), nil
}

func newOAuthServices(cfg appConfig, users *store.UserStore, states *store.StateStore, log *slog.Logger) ([]*auth.OAuthService, error) {
	var services []*auth.OAuthService

	for _, provider := range cfg.OAuthProviders {
		switch provider {
		case auth.OAuthProviderGoogle:
			var googleCfg auth.GoogleOAuthConfig
			config.MustLoad(&googleCfg)
			services = append(services, auth.NewOAuthService(users, states, auth.NewGoogleAdapter(googleCfg),
				auth.WithOAuthLogger(log),
				auth.WithStateTTL(googleCfg.StateTTL),
			))
		case auth.OAuthProviderGithub:
			var githubCfg auth.GitHubOAuthConfig
			config.MustLoad(&githubCfg)
			services = append(services, auth.NewOAuthService(users, states, auth.NewGitHubAdapter(githubCfg),
				auth.WithOAuthLogger(log),
				auth.WithStateTTL(githubCfg.StateTTL),
			))
		case "":
			// empty entry from an unset OAUTH_PROVIDERS var
		default:
			return nil, fmt.Errorf("unknown oauth provider %q", provider)
		}
	}

	return services, nil
}
