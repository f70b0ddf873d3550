package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures_bot/internal/models"
	predictor "futures_bot/internal/modules/predictor/service"
)

type fakeExchange struct {
	mu      sync.Mutex
	badMeta map[string]bool
	meta    []string
}

func (f *fakeExchange) GetInstrumentMeta(_ context.Context, instID string) (models.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meta = append(f.meta, instID)
	if f.badMeta[instID] {
		return models.Instrument{}, errors.New("instrument not found")
	}
	return models.Instrument{InstID: instID, LotSz: 1, MinSz: 1, TickSz: 0.1, CtVal: 0.01}, nil
}

func (f *fakeExchange) GetCandles(_ context.Context, _, _ string, limit int) ([]models.Bar, error) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, limit)
	for i := range bars {
		px := 100 + float64(i)
		bars[i] = models.Bar{Timestamp: start.Add(time.Duration(i) * time.Hour), Open: px, High: px + 1, Low: px - 1, Close: px, Volume: 1000}
	}
	return bars, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Send(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}
func (n *fakeNotifier) Sendf(format string, args ...any) { n.Send(fmt.Sprintf(format, args...)) }

func TestWarmup(t *testing.T) {
	ex := &fakeExchange{badMeta: map[string]bool{"XRP-USDT-SWAP": true}}
	n := &fakeNotifier{}
	w := NewWarmuper(ex, predictor.NewRegistry(), n, "1H", 100)

	reports := w.Warmup(context.Background(), []string{"BTC-USDT-SWAP", "XRP-USDT-SWAP", "ETH-USDT-SWAP"})

	require.Len(t, reports, 3)
	assert.Equal(t, "BTC-USDT-SWAP", reports[0].Instrument)
	assert.NoError(t, reports[0].Err)
	assert.Equal(t, 100, reports[0].Bars)
	assert.True(t, reports[0].Features)
	assert.Equal(t, models.Prediction{}, reports[0].Prediction, "no artifact -> neutral")

	assert.Error(t, reports[1].Err)
	assert.Zero(t, reports[1].Bars)
	assert.NoError(t, reports[2].Err)

	assert.Len(t, ex.meta, 3)
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "2 из 3")
}

func TestWarmup_AllReady(t *testing.T) {
	n := &fakeNotifier{}
	w := NewWarmuper(&fakeExchange{}, predictor.NewRegistry(), n, "1H", 30)

	reports := w.Warmup(context.Background(), []string{"BTC-USDT-SWAP"})
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Features, "30 bars are not enough for the feature frame")
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "Прогрев завершён")
}
