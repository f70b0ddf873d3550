package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures_bot/internal/models"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewStore(rdb)
}

func TestRunState(t *testing.T) {
	mr, s := newTestStore(t)
	ctx := context.Background()

	st, err := s.RunState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateStopped, st, "missing key")

	require.NoError(t, mr.Set(KeyStatus, `{"status":"running","last_updated":"2024-01-01T00:00:00"}`))
	st, err = s.RunState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateRunning, st)

	require.NoError(t, mr.Set(KeyStatus, `{"status":"error","message":"boom"}`))
	st, _ = s.RunState(ctx)
	assert.Equal(t, models.RunStateStopped, st, "unknown value")

	require.NoError(t, mr.Set(KeyStatus, `not json`))
	st, err = s.RunState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RunStateStopped, st)
}

func TestRunState_Unavailable(t *testing.T) {
	mr, s := newTestStore(t)
	mr.Close()

	st, err := s.RunState(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, models.RunStateStopped, st)
}

func TestSetRunState(t *testing.T) {
	mr, s := newTestStore(t)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, s.SetRunState(context.Background(), models.RunStateEmergencyStopped))
	raw, err := mr.Get(KeyStatus)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"emergency_stopped","last_updated":"2024-06-01T10:00:00Z"}`, raw)

	st, err := s.RunState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStateEmergencyStopped, st)
}

func TestAutoTrading(t *testing.T) {
	mr, s := newTestStore(t)
	ctx := context.Background()

	on, err := s.AutoTrading(ctx)
	require.NoError(t, err)
	assert.True(t, on, "no settings")

	require.NoError(t, mr.Set(KeySettings, `{"leverage":10}`))
	on, _ = s.AutoTrading(ctx)
	assert.True(t, on, "no field")

	require.NoError(t, mr.Set(KeySettings, `{"leverage":10,"auto_trading":false}`))
	on, _ = s.AutoTrading(ctx)
	assert.False(t, on)

	require.NoError(t, s.SetAutoTrading(ctx, true))
	raw, _ := mr.Get(KeySettings)
	assert.JSONEq(t, `{"leverage":10,"auto_trading":true}`, raw)

	mr.Close()
	on, err = s.AutoTrading(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, on)
}

func TestPublishDecision_TrimsHistory(t *testing.T) {
	mr, s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < DecisionHistoryLen+20; i++ {
		require.NoError(t, s.PublishDecision(ctx, models.Decision{
			Instrument:    "BTC-USDT-SWAP",
			Signal:        models.SideBuy,
			CombinedScore: float64(i),
		}))
	}

	list, err := mr.List("trading:decisions:BTC-USDT-SWAP:history")
	require.NoError(t, err)
	assert.Len(t, list, DecisionHistoryLen)
	assert.True(t, mr.Exists("trading:decisions:BTC-USDT-SWAP"))

	got, err := s.Decisions(ctx, "BTC-USDT-SWAP", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, float64(DecisionHistoryLen+19), got[0].CombinedScore)
	assert.Equal(t, models.SideBuy, got[0].Signal)
}

func TestPublishPositions(t *testing.T) {
	mr, s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PublishPositions(ctx, nil))
	raw, _ := mr.Get(KeyPositions)
	assert.Equal(t, `[]`, raw)

	require.NoError(t, s.PublishPositions(ctx, []models.Position{{Instrument: "ETH-USDT-SWAP", Side: models.Short, Quantity: 1.5}}))
	raw, _ = mr.Get(KeyPositions)
	assert.Contains(t, raw, `"instrument":"ETH-USDT-SWAP"`)
	assert.Contains(t, raw, `"side":"SHORT"`)
}
