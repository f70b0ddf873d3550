package main

import (
	"context"
	"log"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"futures_bot/internal/modules/bootstrap"
	"futures_bot/internal/modules/config"
	"futures_bot/internal/modules/control"
	"futures_bot/internal/modules/fusion"
	"futures_bot/internal/modules/health"
	"futures_bot/internal/modules/journal"
	"futures_bot/internal/modules/okx_client"
	"futures_bot/internal/modules/okx_websocket"
	"futures_bot/internal/modules/predictor"
	"futures_bot/internal/modules/tracker"
	"futures_bot/internal/notify"
	"futures_bot/internal/runner"
	"futures_bot/pkg/logger"
	"futures_bot/pkg/tracing"
)

// initTracer включает jaeger, если tracing.enabled. Иначе спаны уходят в NoopTracer.
func initTracer(lc fx.Lifecycle, cfg *config.Config) {
	if !cfg.Tracing.Enabled {
		return
	}
	closer, err := tracing.InitTracer(tracing.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Host:        cfg.Tracing.Host,
		Port:        cfg.Tracing.Port,
		SampleRate:  cfg.Tracing.SampleRate,
		Tags: map[string]string{
			"bot.bar":         cfg.Trading.Bar,
			"bot.instruments": strings.Join(cfg.Trading.Instruments, ","),
			"bot.simulated":   strconv.FormatBool(cfg.OKX.Simulated),
		},
	})
	if err != nil {
		logger.Warn("[TRACE] jaeger init failed, tracing disabled: %v", err)
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.WithLogger(func(_ *config.Config) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.L()}
		}),
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		health.Module(),
		control.Module(),
		journal.Module(),
		notify.Module(),
		okx_client.Module(),
		okx_websocket.Module(),
		predictor.Module(),
		fusion.Module(),
		tracker.Module(),
		runner.Module(),
		bootstrap.Module(),
		fx.Invoke(initTracer),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
