package okx_websocket

import (
	"context"

	"go.uber.org/fx"

	"futures_bot/internal/modules/config"
	healthsvc "futures_bot/internal/modules/health/service"
	"futures_bot/internal/modules/okx_websocket/service"
)

func newClient(cfg *config.Config, state *healthsvc.State) *service.Client {
	return service.NewClient(cfg.OKX.WSURL, cfg.Trading.Instruments, state)
}

// Module поднимает стрим тикеров OKX.
func Module() fx.Option {
	return fx.Module("okx_websocket",
		fx.Provide(
			newClient, // *service.Client
		),
		fx.Invoke(func(lc fx.Lifecycle, s *service.Client) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go s.Run(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
