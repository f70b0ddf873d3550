package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures_bot/internal/models"
	"futures_bot/pkg/db"
)

type execCall struct {
	sql  string
	args []any
}

type fakeTx struct {
	calls []execCall
	tag   string
	err   error
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag(f.tag), f.err
}

func (f *fakeTx) Query(context.Context, string, ...interface{}) (pgx.Rows, error) { return nil, nil }
func (f *fakeTx) QueryRow(context.Context, string, ...interface{}) pgx.Row        { return nil }

type fakeManager struct {
	tx *fakeTx
}

func (m *fakeManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx db.Transaction) error) error {
	return fn(ctx, m.tx)
}

func (m *fakeManager) Conn() db.Transaction { return m.tx }

func testPosition() models.Position {
	return models.Position{
		Instrument:  "BTC-USDT-SWAP",
		Side:        models.Long,
		EntryPrice:  42000,
		Quantity:    0.12,
		StopPrice:   41160,
		TargetPrice: 43680,
		OrderID:     "ord-1",
		Strength:    0.55,
		OpenedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgres_Opened(t *testing.T) {
	tx := &fakeTx{tag: "INSERT 0 1"}
	j := NewPostgres(&fakeManager{tx: tx})

	require.NoError(t, j.Opened(context.Background(), testPosition()))
	require.Len(t, tx.calls, 1)
	assert.Contains(t, tx.calls[0].sql, "INSERT INTO trades")
	assert.Equal(t, []any{
		"BTC-USDT-SWAP", "LONG", 0.12, 42000.0, 0.55,
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), 41160.0, 43680.0, "ord-1",
	}, tx.calls[0].args)
}

func TestPostgres_Closed(t *testing.T) {
	tx := &fakeTx{tag: "UPDATE 1"}
	j := NewPostgres(&fakeManager{tx: tx})
	exit := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	require.NoError(t, j.Closed(context.Background(), testPosition(), exit))
	require.Len(t, tx.calls, 1)
	assert.Contains(t, tx.calls[0].sql, "status = 'closed'")
	assert.Equal(t, []any{exit, "BTC-USDT-SWAP", "ord-1"}, tx.calls[0].args)

	// нет открытой записи: не ошибка
	tx.tag = "UPDATE 0"
	assert.NoError(t, j.Closed(context.Background(), testPosition(), exit))
}

func TestPostgres_Error(t *testing.T) {
	tx := &fakeTx{err: errors.New("connection refused")}
	j := NewPostgres(&fakeManager{tx: tx})

	err := j.Opened(context.Background(), testPosition())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal.Opened BTC-USDT-SWAP")
	assert.ErrorIs(t, err, tx.err)
}

func TestPostgres_Migrate(t *testing.T) {
	tx := &fakeTx{tag: "CREATE TABLE"}
	require.NoError(t, NewPostgres(&fakeManager{tx: tx}).Migrate(context.Background()))
	require.Len(t, tx.calls, 1)
	assert.Contains(t, tx.calls[0].sql, "CREATE TABLE IF NOT EXISTS trades")
}

func TestNop(t *testing.T) {
	var j Journal = Nop{}
	assert.NoError(t, j.Opened(context.Background(), testPosition()))
	assert.NoError(t, j.Closed(context.Background(), testPosition(), time.Now()))
}
