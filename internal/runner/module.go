package runner

import (
	"context"

	"go.uber.org/fx"

	"futures_bot/internal/modules/config"
	control "futures_bot/internal/modules/control/service"
	fusion "futures_bot/internal/modules/fusion/service"
	healthsvc "futures_bot/internal/modules/health/service"
	okx "futures_bot/internal/modules/okx_client/service"
	ws "futures_bot/internal/modules/okx_websocket/service"
	predictor "futures_bot/internal/modules/predictor/service"
	tracker "futures_bot/internal/modules/tracker/service"
	"futures_bot/internal/notify"
	"futures_bot/pkg/logger"
)

func newRunner(
	cfg *config.Config,
	client *okx.Client,
	store *control.Store,
	positions *tracker.Tracker,
	registry *predictor.Registry,
	fu *fusion.Fusion,
	prices *ws.Client,
	n notify.Notifier,
	state *healthsvc.State,
	metrics *healthsvc.Metrics,
) *Runner {
	t := cfg.Trading
	return New(Config{
		Instruments:       t.Instruments,
		Bar:               t.Bar,
		CandleLimit:       t.CandleLimit,
		MinSignalStrength: t.MinSignalStrength,
		CycleInterval:     t.CycleInterval,
		IdleInterval:      t.IdleInterval,
		ErrorBackoff:      t.ErrorBackoff,
		RequestTimeout:    t.RequestTimeout,
	}, client, store, positions, registry, fu, prices, n, state, metrics)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			newRunner, // *Runner
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						r.Run(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
						logger.Warn("[RUNNER] loop did not finish before stop deadline")
					}
					return r.Shutdown(stopCtx)
				},
			})
		}),
	)
}
