package verification

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elskow/qwizme/internal/config"
)

func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			func(db *gorm.DB) Repository {
				return NewRepository(db)
			},
			func(cfg *config.AppConfig, repo Repository, log *zap.Logger) *Store {
				return NewStore(&cfg.Verification, repo, log)
			},
		),
	)
}
