package app

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/qwizme/internal/api"
	"github.com/elskow/qwizme/internal/auth"
	"github.com/elskow/qwizme/internal/config"
	"github.com/elskow/qwizme/internal/database"
	"github.com/elskow/qwizme/internal/migration"
	"github.com/elskow/qwizme/internal/server"
	"github.com/elskow/qwizme/internal/verification"
)

// Module combines all application modules
func Module() fx.Option {
	return fx.Options(
		// Logger
		fx.Provide(newLogger),

		// Configuration
		fx.Provide(server.LoadConfig),

		// Storage
		database.Module(),
		migration.Module(),

		// Verification codes
		verification.NewModule(),

		// Auth Module
		auth.NewModule(),

		// Rate limiting
		fx.Provide(func(cfg *config.AppConfig) *api.Limiter {
			return api.NewLimiter(cfg.RateLimit.Disabled)
		}),

		// Server
		fx.Provide(server.NewServer),

		// Start the server
		fx.Invoke(registerHooks),
	)
}

func newLogger() (*zap.Logger, error) {
	env := os.Getenv("APP_ENV")
	return server.NewLogger(env)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	srv *server.Server,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			return srv.Stop(ctx)
		},
	})
}
