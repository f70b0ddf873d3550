package service

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// eps защищает деления на скользящие статистики, которые бывают нулём.
const eps = 1e-8

// Все функции ниже работают на полных сериях одинаковой длины.
// Прогревочные позиции заполнены NaN, как в rolling-окнах.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// pctChange: x[i]/x[i-n] - 1.
func pctChange(x []float64, n int) []float64 {
	out := nanSeries(len(x))
	for i := n; i < len(x); i++ {
		out[i] = x[i]/(x[i-n]+eps) - 1
	}
	return out
}

// diff: x[i]-x[i-1]; первая позиция NaN.
func diff(x []float64) []float64 {
	out := nanSeries(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

func rolling(x []float64, w int, fn func(win []float64) float64) []float64 {
	out := nanSeries(len(x))
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(x); i++ {
		win := x[i-w+1 : i+1]
		if hasNaN(win) {
			continue
		}
		out[i] = fn(win)
	}
	return out
}

func rollingMean(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 { return stat.Mean(win, nil) })
}

// rollingStd: выборочное отклонение (ddof=1).
func rollingStd(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 { return stat.StdDev(win, nil) })
}

// rollingPopStd: ddof=0, для полос Боллинджера.
func rollingPopStd(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 {
		_, std := stat.PopMeanStdDev(win, nil)
		return std
	})
}

func rollingSum(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 {
		s := 0.0
		for _, v := range win {
			s += v
		}
		return s
	})
}

func rollingMin(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 {
		m := win[0]
		for _, v := range win[1:] {
			m = math.Min(m, v)
		}
		return m
	})
}

func rollingMax(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 {
		m := win[0]
		for _, v := range win[1:] {
			m = math.Max(m, v)
		}
		return m
	})
}

// rollingMAD: среднее абсолютное отклонение от среднего окна.
func rollingMAD(x []float64, w int) []float64 {
	return rolling(x, w, func(win []float64) float64 {
		mean := stat.Mean(win, nil)
		s := 0.0
		for _, v := range win {
			s += math.Abs(v - mean)
		}
		return s / float64(len(win))
	})
}

// ewmAdjusted: экспоненциальное среднее с нормировкой весов
// (span-параметризация, без минимального окна).
func ewmAdjusted(x []float64, span int) []float64 {
	out := nanSeries(len(x))
	decay := 1 - 2.0/(float64(span)+1)
	num, den := 0.0, 0.0
	for i, v := range x {
		if math.IsNaN(v) {
			num *= decay
			den *= decay
			if den > 0 {
				out[i] = num / den
			}
			continue
		}
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// ewmRecursive: y[0]=x[0], y[i]=a*x[i]+(1-a)*y[i-1]; позиции до minPeriods-1 NaN.
func ewmRecursive(x []float64, alpha float64, minPeriods int) []float64 {
	out := nanSeries(len(x))
	if len(x) == 0 {
		return out
	}
	y := x[0]
	for i, v := range x {
		if i > 0 {
			y = alpha*v + (1-alpha)*y
		}
		if i >= minPeriods-1 {
			out[i] = y
		}
	}
	return out
}

// ema с окном span, значения появляются после span баров.
func ema(x []float64, span int) []float64 {
	return ewmRecursive(x, 2.0/(float64(span)+1), span)
}

// wilderRSI: RSI со сглаживанием Уайлдера (alpha=1/period).
// Если за окно не было ни роста, ни падения, RSI нейтральный (50).
func wilderRSI(close []float64, period int) []float64 {
	d := diff(close)
	up := make([]float64, len(d))
	down := make([]float64, len(d))
	for i, v := range d {
		if v > 0 {
			up[i] = v
		} else if v < 0 {
			down[i] = -v
		}
	}
	alpha := 1 / float64(period)
	avgUp := ewmRecursive(up, alpha, period)
	avgDown := ewmRecursive(down, alpha, period)

	out := nanSeries(len(close))
	for i := range out {
		u, dn := avgUp[i], avgDown[i]
		if math.IsNaN(u) || math.IsNaN(dn) {
			continue
		}
		switch {
		case dn == 0 && u == 0:
			out[i] = 50
		case dn == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+u/dn)
		}
	}
	return out
}

// simpleRSI: RSI на простых скользящих средних прироста/падения.
func simpleRSI(close []float64, period int) []float64 {
	d := diff(close)
	gain := make([]float64, len(d))
	loss := make([]float64, len(d))
	for i, v := range d {
		if v > 0 {
			gain[i] = v
		} else if v < 0 {
			loss[i] = -v
		}
	}
	g := rollingMean(gain, period)
	l := rollingMean(loss, period)
	out := nanSeries(len(close))
	for i := range out {
		if math.IsNaN(g[i]) || math.IsNaN(l[i]) {
			continue
		}
		rs := g[i] / (l[i] + eps)
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func last(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return x[len(x)-1]
}
