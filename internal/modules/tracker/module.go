package tracker

import (
	"go.uber.org/fx"

	"futures_bot/internal/modules/config"
	healthsvc "futures_bot/internal/modules/health/service"
	journal "futures_bot/internal/modules/journal/service"
	okx "futures_bot/internal/modules/okx_client/service"
	"futures_bot/internal/modules/tracker/service"
	"futures_bot/internal/notify"
)

func newTracker(
	cfg *config.Config,
	ex *okx.Client,
	j journal.Journal,
	n notify.Notifier,
	m *healthsvc.Metrics,
) *service.Tracker {
	return service.NewTracker(ex, j, n, m, service.Params{
		Leverage:      cfg.Trading.Leverage,
		RiskPerTrade:  cfg.Trading.RiskPerTrade,
		StopLossPct:   cfg.Trading.StopLossPct,
		TakeProfitPct: cfg.Trading.TakeProfitPct,

		JournalTimeout: cfg.Trading.RequestTimeout,
	})
}

func Module() fx.Option {
	return fx.Module("tracker",
		fx.Provide(
			newTracker, // *service.Tracker
		),
		fx.Invoke(func(n notify.Notifier, t *service.Tracker) {
			// /positions в телеграме отвечает из трекера
			if a, ok := n.(notify.Attacher); ok {
				a.Attach(t)
			}
		}),
	)
}
