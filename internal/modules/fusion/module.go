package fusion

import (
	"go.uber.org/fx"

	"futures_bot/internal/modules/fusion/service"
)

func Module() fx.Option {
	return fx.Module("fusion",
		fx.Provide(
			service.NewFusion, // *service.Fusion
		),
	)
}
