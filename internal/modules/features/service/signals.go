package service

import (
	"math"

	"futures_bot/internal/models"
)

// MinSignalBars: меньше этого числа баров сигналы нулевые.
const MinSignalBars = 21

// Signals считает шесть дискретных технических сигналов по последним двум барам окна.
// На коротком окне возвращает нулевой набор, это не ошибка.
func Signals(bars []models.Bar) models.TechnicalSignals {
	bars = validBars(bars)
	if len(bars) < MinSignalBars {
		return models.TechnicalSignals{}
	}
	_, _, closes, volume := columns(bars)
	n := len(closes)

	var s models.TechnicalSignals

	// EMA9 / EMA21 пересечение
	ema9, ema21 := ema(closes, 9), ema(closes, 21)
	prevFast, prevSlow := ema9[n-2], ema21[n-2]
	curFast, curSlow := ema9[n-1], ema21[n-1]
	switch {
	case prevFast < prevSlow && curFast > curSlow:
		s.EMA = 1
	case prevFast > prevSlow && curFast < curSlow:
		s.EMA = -1
	}

	if rsi := last(wilderRSI(closes, 14)); !math.IsNaN(rsi) {
		switch {
		case rsi < 30:
			s.RSI = 1
		case rsi > 70:
			s.RSI = -1
		}
	}

	// полосы Боллинджера 20/2; при нулевой ширине полос сигнала нет
	mid := last(rollingMean(closes, 20))
	std := last(rollingPopStd(closes, 20))
	if !math.IsNaN(mid) && !math.IsNaN(std) && std > 0 {
		price := closes[n-1]
		switch {
		case price <= mid-2*std:
			s.BB = 1
		case price >= mid+2*std:
			s.BB = -1
		}
	}

	_, hist := macdSeries(closes)
	prevHist, curHist := hist[n-2], hist[n-1]
	switch {
	case curHist > 0 && prevHist <= 0:
		s.MACD = 1
	case curHist < 0 && prevHist >= 0:
		s.MACD = -1
	}

	if avg := last(rollingMean(volume, 20)); !math.IsNaN(avg) {
		cur := volume[n-1]
		switch {
		case cur > avg*1.5:
			s.Volume = 1
		case cur < avg*0.5:
			s.Volume = -1
		}
	}

	if change := last(pctChange(closes, 1)); !math.IsNaN(change) {
		switch {
		case change > 0.01:
			s.Momentum = 1
		case change < -0.01:
			s.Momentum = -1
		}
	}

	return s
}
