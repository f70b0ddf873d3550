package config

import (
	"context"

	"go.uber.org/fx"

	"futures_bot/pkg/logger"
)

// newConfig читает конфиг и сразу поднимает логгер: остальные конструкторы уже пишут в zap.
func newConfig(lc fx.Lifecycle) (*Config, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, err
	}
	logger.SetServiceName(cfg.Tracing.ServiceName)
	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Sync()
			return nil
		},
	})
	t := cfg.Trading
	logger.Info("[CONFIG] instruments=%v bar=%s leverage=%dx risk=%.2f min_strength=%.2f sl=%.3f tp=%.3f simulated=%v",
		t.Instruments, t.Bar, t.Leverage, t.RiskPerTrade, t.MinSignalStrength, t.StopLossPct, t.TakeProfitPct, cfg.OKX.Simulated)
	return cfg, nil
}

// ProvideAppConfig регистрируем как fx-провайдер.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			newConfig,
		),
	)
}
