package control

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"futures_bot/internal/modules/config"
	"futures_bot/internal/modules/control/service"
	"futures_bot/pkg/logger"
)

// newRedis принимает и host:port, и redis:// URL (REDIS_URL оригинального бота).
func newRedis(lc fx.Lifecycle, cfg *config.Config) (redis.UniversalClient, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if strings.HasPrefix(cfg.Redis.Addr, "redis://") || strings.HasPrefix(cfg.Redis.Addr, "rediss://") {
		parsed, err := redis.ParseURL(cfg.Redis.Addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	rdb := redis.NewClient(opts)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// недоступный Redis не валит старт: цикл сам будет считать состояние STOPPED
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("[CONTROL] redis %s not reachable: %v", opts.Addr, err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}

func Module() fx.Option {
	return fx.Module("control",
		fx.Provide(
			newRedis,         // redis.UniversalClient
			service.NewStore, // *service.Store
		),
	)
}
