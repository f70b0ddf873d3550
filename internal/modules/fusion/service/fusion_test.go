package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures_bot/internal/models"
)

var strongBuy = models.TechnicalSignals{EMA: 1, RSI: 1, BB: 1, MACD: 1}

func TestWeightsSumToOne(t *testing.T) {
	all := models.TechnicalSignals{EMA: 1, RSI: 1, BB: 1, MACD: 1, Volume: 1, Momentum: 1}
	assert.InDelta(t, 1.0, TechnicalScore(all), 1e-12)
}

func TestClassify_StrictThreshold(t *testing.T) {
	assert.Equal(t, models.SideNone, classify(0.3))
	assert.Equal(t, models.SideNone, classify(-0.3))
	assert.Equal(t, models.SideBuy, classify(0.301))
	assert.Equal(t, models.SideSell, classify(-0.301))
	assert.Equal(t, models.SideNone, classify(0))
}

func TestFuse_ExactlyAtThreshold(t *testing.T) {
	d := Fuse(models.TechnicalSignals{EMA: 1}, models.Prediction{}, nil)
	assert.Equal(t, 0.3, d.CombinedScore)
	assert.Equal(t, models.SideNone, d.Signal)
	assert.Equal(t, 0.0, d.Strength)
	assert.Equal(t, ReasonThreshold, d.Reason)
}

func TestFuse_Combined(t *testing.T) {
	d := Fuse(strongBuy, models.Prediction{Value: 0.01, Confidence: 0.5}, nil)
	assert.InDelta(t, 0.9, d.CombinedScore, 1e-12)
	assert.InDelta(t, 0.8, d.TechnicalScore, 1e-12)
	assert.Equal(t, models.SideBuy, d.Signal)
	assert.InDelta(t, 0.9, d.Strength, 1e-12)
	assert.Empty(t, d.Reason)

	sell := models.TechnicalSignals{EMA: -1, RSI: -1, BB: -1, MACD: -1}
	d = Fuse(sell, models.Prediction{Value: -0.01, Confidence: 0.95}, nil)
	// вес модели ограничен 0.8
	assert.InDelta(t, -0.8*0.2-0.8, d.CombinedScore, 1e-12)
	assert.Equal(t, models.SideSell, d.Signal)
	assert.InDelta(t, 0.96, d.Strength, 1e-12)
}

func TestFuse_StrengthCappedAtOne(t *testing.T) {
	all := models.TechnicalSignals{EMA: 1, RSI: 1, BB: 1, MACD: 1, Volume: 1, Momentum: 1}
	d := Fuse(all, models.Prediction{Value: 0.02, Confidence: 0.3}, nil)
	assert.Equal(t, models.SideBuy, d.Signal)
	assert.LessOrEqual(t, d.Strength, 1.0)
}

func TestFuse_IsPure(t *testing.T) {
	pred := models.Prediction{Value: 0.01, Confidence: 0.5}
	last := &models.Decision{Signal: models.SideBuy, Strength: 0.9}
	a := Fuse(strongBuy, pred, last)
	b := Fuse(strongBuy, pred, last)
	assert.Equal(t, a, b)
	assert.Equal(t, models.SideBuy, last.Signal)
	assert.Equal(t, 0.9, last.Strength)
}

func TestFuse_Decay(t *testing.T) {
	pred := models.Prediction{Value: 0.01, Confidence: 0.5}
	first := Fuse(strongBuy, pred, nil)
	second := Fuse(strongBuy, pred, &first)
	assert.InDelta(t, first.Strength*DecayFactor, second.Strength, 1e-12)

	// другой сигнал в истории не гасит
	other := models.Decision{Signal: models.SideSell}
	assert.InDelta(t, first.Strength, Fuse(strongBuy, pred, &other).Strength, 1e-12)

	none := models.Decision{Signal: models.SideNone}
	assert.InDelta(t, first.Strength, Fuse(strongBuy, pred, &none).Strength, 1e-12)
}

func TestFuse_WeakStrengthSuppressed(t *testing.T) {
	d := Fuse(models.TechnicalSignals{EMA: 1}, models.Prediction{Value: 0.01, Confidence: 0.1}, nil)
	assert.InDelta(t, 0.37, d.CombinedScore, 1e-12)
	assert.Equal(t, models.SideNone, d.Signal)
	assert.Equal(t, 0.0, d.Strength)
	assert.Equal(t, ReasonWeakStrength, d.Reason)
}

func TestFuse_WeakPredictionSuppressed(t *testing.T) {
	d := Fuse(strongBuy, models.Prediction{Value: 0.0005, Confidence: 0.5}, nil)
	assert.Equal(t, models.SideNone, d.Signal)
	assert.Equal(t, 0.0, d.Strength)
	assert.Equal(t, ReasonWeakPrediction, d.Reason)
}

func TestFuse_NoModelNeverTrades(t *testing.T) {
	all := models.TechnicalSignals{EMA: 1, RSI: 1, BB: 1, MACD: 1, Volume: 1, Momentum: 1}
	d := Fuse(all, models.Prediction{}, nil)
	assert.InDelta(t, 1.0, d.CombinedScore, 1e-12)
	assert.Equal(t, models.SideNone, d.Signal)
	assert.Equal(t, ReasonWeakPrediction, d.Reason)
}

func TestFuse_FlatMarketNoModel(t *testing.T) {
	d := Fuse(models.TechnicalSignals{}, models.Prediction{}, nil)
	assert.Equal(t, 0.0, d.CombinedScore)
	assert.Equal(t, models.SideNone, d.Signal)
}

func TestHistory_Ring(t *testing.T) {
	var h History
	_, ok := h.Last()
	assert.False(t, ok)

	for i := 0; i < 150; i++ {
		h.Push(models.Decision{CombinedScore: float64(i)})
	}
	assert.Equal(t, HistoryCapacity, h.Len())
	items := h.Items()
	require.Len(t, items, HistoryCapacity)
	assert.Equal(t, 50.0, items[0].CombinedScore)
	assert.Equal(t, 149.0, items[len(items)-1].CombinedScore)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 149.0, last.CombinedScore)

	recent := h.Recent(3)
	assert.Equal(t, []float64{147, 148, 149},
		[]float64{recent[0].CombinedScore, recent[1].CombinedScore, recent[2].CombinedScore})
}

func TestFusion_DecideKeepsHistoryPerInstrument(t *testing.T) {
	f := NewFusion()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return ts }

	pred := models.Prediction{Value: 0.01, Confidence: 0.5}
	d1 := f.Decide("BTC-USDT-SWAP", strongBuy, pred)
	d2 := f.Decide("BTC-USDT-SWAP", strongBuy, pred)
	d3 := f.Decide("BTC-USDT-SWAP", strongBuy, pred)
	e1 := f.Decide("ETH-USDT-SWAP", strongBuy, pred)

	assert.Equal(t, "BTC-USDT-SWAP", d1.Instrument)
	assert.Equal(t, ts, d1.Timestamp)
	assert.InDelta(t, 0.9, d1.Strength, 1e-12)
	assert.InDelta(t, 0.9*DecayFactor, d2.Strength, 1e-12)
	// гашение не накапливается: сила считается заново каждый цикл
	assert.InDelta(t, 0.9*DecayFactor, d3.Strength, 1e-12)
	assert.InDelta(t, 0.9, e1.Strength, 1e-12)

	assert.Len(t, f.History("BTC-USDT-SWAP"), 3)
	last, ok := f.Last("ETH-USDT-SWAP")
	require.True(t, ok)
	assert.Equal(t, e1, last)

	_, ok = f.Last("SOL-USDT-SWAP")
	assert.False(t, ok)
}

func TestFusion_Summary(t *testing.T) {
	f := NewFusion()
	_, ok := f.Summary("BTC-USDT-SWAP")
	assert.False(t, ok)

	f.Decide("BTC-USDT-SWAP", strongBuy, models.Prediction{Value: 0.01, Confidence: 0.5})
	f.Decide("BTC-USDT-SWAP", models.TechnicalSignals{}, models.Prediction{})
	f.Decide("BTC-USDT-SWAP", models.TechnicalSignals{EMA: -1, RSI: -1, BB: -1, MACD: -1},
		models.Prediction{Value: -0.01, Confidence: 0.5})

	s, ok := f.Summary("BTC-USDT-SWAP")
	require.True(t, ok)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Buys)
	assert.Equal(t, 1, s.Sells)
	assert.InDelta(t, 0.9, s.AvgBuyStrength, 1e-12)
	assert.InDelta(t, 0.9, s.AvgSellStrength, 1e-12)
	assert.InDelta(t, 1.0/3, s.AvgConfidence, 1e-12)
	assert.Equal(t, models.SideSell, s.Last.Signal)
}
