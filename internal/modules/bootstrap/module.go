package bootstrap

import (
	"context"

	"go.uber.org/fx"

	bootstrap "futures_bot/internal/modules/bootstrap/service"
	"futures_bot/internal/modules/config"
	okx "futures_bot/internal/modules/okx_client/service"
	predictor "futures_bot/internal/modules/predictor/service"
	"futures_bot/internal/notify"
)

func newWarmuper(cfg *config.Config, client *okx.Client, registry *predictor.Registry, n notify.Notifier) *bootstrap.Warmuper {
	return bootstrap.NewWarmuper(client, registry, n, cfg.Trading.Bar, cfg.Trading.CandleLimit)
}

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			newWarmuper, // -> *bootstrap.Warmuper
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wu *bootstrap.Warmuper) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go wu.Warmup(ctx, cfg.Trading.Instruments)
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
