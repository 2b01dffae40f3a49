package auth

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elskow/qwizme/internal/config"
	"github.com/elskow/qwizme/internal/cryptox"
	"github.com/elskow/qwizme/internal/notify"
	"github.com/elskow/qwizme/internal/verification"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide repository
			func(db *gorm.DB) Repository {
				return NewRepository(db)
			},
			// Provide credential hasher
			func(config *config.AppConfig) PasswordHasher {
				return NewBcryptHasher(config.Auth.BcryptCost)
			},
			// Provide token service
			func(config *config.AppConfig) *TokenService {
				return NewTokenService(&config.Auth)
			},
			// Provide API key sealer
			func(config *config.AppConfig) (*cryptox.Sealer, error) {
				return cryptox.NewSealer(config.Settings.EncryptionKey)
			},
			// Provide mailer
			func(config *config.AppConfig, log *zap.Logger) *Mailer {
				return NewMailer(notify.New(&config.Mail, log), config.Mail.FrontendURL)
			},
			// Provide service
			func(
				config *config.AppConfig,
				log *zap.Logger,
				repo Repository,
				hasher PasswordHasher,
				tokens *TokenService,
				codes *verification.Store,
				mailer *Mailer,
				sealer *cryptox.Sealer,
			) *Service {
				return NewService(&config.Auth, log, Dependencies{
					Repository: repo,
					Hasher:     hasher,
					Tokens:     tokens,
					Codes:      codes,
					Mailer:     mailer,
					Sealer:     sealer,
				})
			},
			// Provide handler
			func(svc *Service, log *zap.Logger) *Handler {
				return NewHandler(svc, log)
			},
			// Provide middleware
			func(svc *Service, log *zap.Logger) *AuthMiddleware {
				return NewAuthMiddleware(svc, log)
			},
		),
	)
}
