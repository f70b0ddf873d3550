package service

import (
	"math"

	"futures_bot/internal/models"
)

const (
	// SignalThreshold: |combined| должен строго превышать порог.
	SignalThreshold = 0.3
	// DecayFactor гасит силу повторяющегося сигнала.
	DecayFactor = 0.95
	// MinStrength и MinPrediction: пост-фильтры решения.
	MinStrength   = 0.4
	MinPrediction = 0.001

	maxMLWeight = 0.8
)

// Weights: веса технических сигналов, в сумме 1.
var Weights = struct {
	EMA, RSI, BB, MACD, Volume, Momentum float64
}{
	EMA:      0.30,
	RSI:      0.20,
	BB:       0.15,
	MACD:     0.15,
	Volume:   0.10,
	Momentum: 0.10,
}

const (
	ReasonThreshold      = "combined score within threshold"
	ReasonWeakStrength   = "strength below minimum"
	ReasonWeakPrediction = "prediction below minimum edge"
)

func TechnicalScore(s models.TechnicalSignals) float64 {
	return s.EMA*Weights.EMA +
		s.RSI*Weights.RSI +
		s.BB*Weights.BB +
		s.MACD*Weights.MACD +
		s.Volume*Weights.Volume +
		s.Momentum*Weights.Momentum
}

// Fuse сводит технические сигналы и предсказание в решение.
// Чистая функция от (signals, prediction, last): last == nil значит истории нет.
// Instrument и Timestamp заполняет вызывающий.
func Fuse(signals models.TechnicalSignals, pred models.Prediction, last *models.Decision) models.Decision {
	tech := TechnicalScore(signals)
	mlWeight := math.Min(pred.Confidence, maxMLWeight)
	combined := tech*(1-mlWeight) + sign(pred.Value)*mlWeight

	d := models.Decision{
		CombinedScore:  combined,
		TechnicalScore: tech,
		Technical:      signals,
		Prediction:     pred,
	}

	d.Signal = classify(combined)
	if d.Signal == models.SideNone {
		d.Reason = ReasonThreshold
		return d
	}
	d.Strength = math.Min(math.Abs(combined), 1.0)

	if last != nil && last.Signal == d.Signal {
		d.Strength *= DecayFactor
	}

	switch {
	case d.Strength < MinStrength:
		d.Reason = ReasonWeakStrength
	case math.Abs(pred.Value) < MinPrediction:
		d.Reason = ReasonWeakPrediction
	default:
		return d
	}
	d.Signal = models.SideNone
	d.Strength = 0
	return d
}

func classify(combined float64) models.Side {
	switch {
	case combined > SignalThreshold:
		return models.SideBuy
	case combined < -SignalThreshold:
		return models.SideSell
	default:
		return models.SideNone
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
