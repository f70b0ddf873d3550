package predictor

import (
	"go.uber.org/fx"

	"futures_bot/internal/modules/config"
	"futures_bot/internal/modules/predictor/service"
)

func newRegistry(cfg *config.Config) *service.Registry {
	return service.LoadDir(cfg.Trading.ModelsDir, cfg.Trading.ModelType, cfg.Trading.Instruments)
}

// Module загружает артефакты моделей один раз при старте.
func Module() fx.Option {
	return fx.Module("predictor",
		fx.Provide(
			newRegistry, // *service.Registry
		),
	)
}
