package notify

import (
	"context"

	"go.uber.org/fx"

	"futures_bot/internal/modules/config"
	"futures_bot/pkg/logger"
)

const queueSize = 128

// newNotifier: телеграм через очередь, если задан токен, иначе лог.
func newNotifier(lc fx.Lifecycle, cfg *config.Config) Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return NewLog()
	}
	tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Trading.RequestTimeout)
	if err != nil {
		logger.Warn("[NOTIFY] telegram init failed, falling back to log: %v", err)
		return NewLog()
	}
	q := NewQueue(tg, queueSize)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				q.Run(ctx)
			}()
			return tg.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			tg.Stop()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return q
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(newNotifier),
	)
}
