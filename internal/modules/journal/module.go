package journal

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"futures_bot/internal/modules/config"
	"futures_bot/internal/modules/journal/service"
	"futures_bot/pkg/db"
	"futures_bot/pkg/logger"
)

// newJournal поднимает пул pgx, если задан db_dsn. Без DSN журнал пустой.
func newJournal(lc fx.Lifecycle, ctx context.Context, cfg *config.Config) (service.Journal, error) {
	if cfg.DB == "" {
		logger.Info("[JOURNAL] db_dsn is empty, trades are not journaled")
		return service.Nop{}, nil
	}

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:      cfg.DB,
		MaxConns: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}
	tx := db.NewPgTxManager(poolMaster)
	j := service.NewPostgres(tx)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := poolMaster.Ping(ctx); err != nil {
				return fmt.Errorf("postgres ping: %w", err)
			}
			return j.Migrate(ctx)
		},
		OnStop: func(context.Context) error {
			tx.Close()
			return nil
		},
	})
	return j, nil
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			newJournal, // service.Journal
		),
	)
}
