package okx_client

import (
	"go.uber.org/fx"

	"futures_bot/internal/modules/config"
	"futures_bot/internal/modules/okx_client/service"
)

func newClient(cfg *config.Config) (*service.Client, error) {
	if _, err := service.NormalizeBar(cfg.Trading.Bar); err != nil {
		return nil, err
	}
	return service.NewClient(service.Options{
		APIKey:     cfg.OKX.APIKey,
		APISecret:  cfg.OKX.APISecret,
		Passphrase: cfg.OKX.Passphrase,
		BaseURL:    cfg.OKX.BaseURL,
		Simulated:  cfg.OKX.Simulated,
		TdMode:     cfg.OKX.TdMode,
		RatePerSec: cfg.OKX.RatePerSec,
		Timeout:    cfg.Trading.RequestTimeout,
	}), nil
}

func Module() fx.Option {
	return fx.Module("okx_client",
		fx.Provide(
			newClient, // *service.Client
		),
	)
}
