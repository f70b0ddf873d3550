package service

import (
	"context"
	"fmt"
	"time"

	"futures_bot/internal/models"
	"futures_bot/pkg/db"
	"futures_bot/pkg/logger"
)

// Journal пишет историю сделок. Ошибки только логируются вызывающим, торговлю не блокируют.
type Journal interface {
	Opened(ctx context.Context, pos models.Position) error
	Closed(ctx context.Context, pos models.Position, exitTime time.Time) error
}

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id              BIGSERIAL PRIMARY KEY,
	symbol          TEXT             NOT NULL,
	side            TEXT             NOT NULL,
	quantity        DOUBLE PRECISION NOT NULL,
	price           DOUBLE PRECISION NOT NULL,
	signal_strength DOUBLE PRECISION NOT NULL,
	status          TEXT             NOT NULL DEFAULT 'open',
	entry_time      TIMESTAMPTZ      NOT NULL,
	exit_time       TIMESTAMPTZ,
	stop_loss       DOUBLE PRECISION,
	take_profit     DOUBLE PRECISION,
	order_id        TEXT             NOT NULL
)`

const insertTrade = `
INSERT INTO trades (symbol, side, quantity, price, signal_strength, status, entry_time, stop_loss, take_profit, order_id)
VALUES ($1, $2, $3, $4, $5, 'open', $6, $7, $8, $9)`

const closeTrade = `
UPDATE trades SET status = 'closed', exit_time = $1
WHERE symbol = $2 AND order_id = $3 AND status = 'open'`

// Postgres: журнал в таблице trades.
type Postgres struct {
	db db.TxManager
}

func NewPostgres(tx db.TxManager) *Postgres {
	return &Postgres{db: tx}
}

// Migrate создаёт таблицу, если её нет.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Conn().Exec(ctx, schema); err != nil {
		return fmt.Errorf("journal.Migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Opened(ctx context.Context, pos models.Position) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.Opened %s: %w", pos.Instrument, err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, insertTrade,
			pos.Instrument,
			string(pos.Side),
			pos.Quantity,
			pos.EntryPrice,
			pos.Strength,
			pos.OpenedAt.UTC(),
			pos.StopPrice,
			pos.TargetPrice,
			pos.OrderID,
		)
		return err
	})
}

func (p *Postgres) Closed(ctx context.Context, pos models.Position, exitTime time.Time) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.Closed %s: %w", pos.Instrument, err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		tag, err := tx.Exec(ctxTx, closeTrade, exitTime.UTC(), pos.Instrument, pos.OrderID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			logger.Warn("[JOURNAL] %s: no open trade for order %s", pos.Instrument, pos.OrderID)
		}
		return nil
	})
}

// Nop: журнал без базы (db_dsn не задан).
type Nop struct{}

func (Nop) Opened(context.Context, models.Position) error            { return nil }
func (Nop) Closed(context.Context, models.Position, time.Time) error { return nil }
