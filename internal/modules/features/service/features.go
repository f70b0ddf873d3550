package service

import (
	"errors"
	"math"
	"time"

	"futures_bot/internal/models"
)

var ErrInsufficientData = errors.New("insufficient data for features")

// FeatureNames: порядок колонок, в котором обучались модели.
var FeatureNames = []string{
	"price_change", "price_change_2", "price_change_5", "price_change_10", "price_change_20",
	"volatility_5", "volatility_10", "volatility_20",
	"volume_change", "volume_ratio", "volume_std",
	"price_vs_sma5", "price_vs_sma20", "price_vs_sma50",
	"ema_cross_9_21", "ema_cross_21_50",
	"bb_position", "bb_width",
	"rsi_7", "rsi_14", "rsi_21",
	"macd", "macd_histogram", "macd_histogram_change",
	"stoch_k", "stoch_d",
	"atr_ratio",
	"williams_r",
	"cci",
	"mfi",
	"hour", "is_weekend", "is_london_open", "is_ny_open",
}

// FeatureVector: упорядоченный набор признаков одного бара.
type FeatureVector struct {
	names  []string
	values []float64
	index  map[string]int
}

func NewFeatureVector(names []string, values []float64) FeatureVector {
	n := min(len(names), len(values))
	v := FeatureVector{
		names:  append([]string(nil), names[:n]...),
		values: append([]float64(nil), values[:n]...),
		index:  make(map[string]int, n),
	}
	for i, name := range v.names {
		v.index[name] = i
	}
	return v
}

func (v FeatureVector) Len() int        { return len(v.names) }
func (v FeatureVector) Names() []string { return append([]string(nil), v.names...) }

func (v FeatureVector) Get(name string) (float64, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// Without возвращает копию без перечисленных признаков.
func (v FeatureVector) Without(drop ...string) FeatureVector {
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	names := make([]string, 0, len(v.names))
	values := make([]float64, 0, len(v.values))
	for i, name := range v.names {
		if _, ok := skip[name]; ok {
			continue
		}
		names = append(names, name)
		values = append(values, v.values[i])
	}
	return NewFeatureVector(names, values)
}

// Frame: признаки по всем барам, у которых прогрев завершён.
// Rows[i] соответствует Timestamps[i], колонки в порядке FeatureNames.
type Frame struct {
	Timestamps []time.Time
	Rows       [][]float64
}

// Latest: вектор последнего бара окна.
func (f *Frame) Latest() FeatureVector {
	if f == nil || len(f.Rows) == 0 {
		return FeatureVector{}
	}
	return NewFeatureVector(FeatureNames, f.Rows[len(f.Rows)-1])
}

// BuildFrame считает все признаки и отбрасывает строки с NaN.
func BuildFrame(bars []models.Bar) (*Frame, error) {
	bars = validBars(bars)
	n := len(bars)
	if n == 0 {
		return nil, ErrInsufficientData
	}

	high, low, closes, volume := columns(bars)

	cols := make(map[string][]float64, len(FeatureNames))

	cols["price_change"] = pctChange(closes, 1)
	cols["price_change_2"] = pctChange(closes, 2)
	cols["price_change_5"] = pctChange(closes, 5)
	cols["price_change_10"] = pctChange(closes, 10)
	cols["price_change_20"] = pctChange(closes, 20)

	cols["volatility_5"] = rollingStd(closes, 5)
	cols["volatility_10"] = rollingStd(closes, 10)
	cols["volatility_20"] = rollingStd(closes, 20)

	volMA20 := rollingMean(volume, 20)
	cols["volume_change"] = pctChange(volume, 1)
	cols["volume_ratio"] = divide(volume, volMA20, 0)
	cols["volume_std"] = rollingStd(volume, 20)

	sma5 := rollingMean(closes, 5)
	sma20 := rollingMean(closes, 20)
	sma50 := rollingMean(closes, 50)
	cols["price_vs_sma5"] = divide(closes, sma5, -1)
	cols["price_vs_sma20"] = divide(closes, sma20, -1)
	cols["price_vs_sma50"] = divide(closes, sma50, -1)

	ema9 := ewmAdjusted(closes, 9)
	ema21 := ewmAdjusted(closes, 21)
	ema50 := ewmAdjusted(closes, 50)
	cols["ema_cross_9_21"] = sub(ema9, ema21)
	cols["ema_cross_21_50"] = sub(ema21, ema50)

	std20 := rollingStd(closes, 20)
	bbUpper := make([]float64, n)
	bbLower := make([]float64, n)
	for i := range closes {
		bbUpper[i] = sma20[i] + 2*std20[i]
		bbLower[i] = sma20[i] - 2*std20[i]
	}
	cols["bb_position"] = divide(sub(closes, bbLower), sub(bbUpper, bbLower), 0)
	cols["bb_width"] = divide(sub(bbUpper, bbLower), sma20, 0)

	cols["rsi_7"] = simpleRSI(closes, 7)
	cols["rsi_14"] = simpleRSI(closes, 14)
	cols["rsi_21"] = simpleRSI(closes, 21)

	macd, hist := macdSeries(closes)
	cols["macd"] = macd
	cols["macd_histogram"] = hist
	cols["macd_histogram_change"] = diff(hist)

	low14 := rollingMin(low, 14)
	high14 := rollingMax(high, 14)
	stochK := scale(divide(sub(closes, low14), sub(high14, low14), 0), 100)
	cols["stoch_k"] = stochK
	cols["stoch_d"] = rollingMean(stochK, 3)

	tr := make([]float64, n)
	for i := range tr {
		tr[i] = high[i] - low[i]
		if i > 0 {
			tr[i] = math.Max(tr[i], math.Abs(high[i]-closes[i-1]))
			tr[i] = math.Max(tr[i], math.Abs(low[i]-closes[i-1]))
		}
	}
	cols["atr_ratio"] = divide(rollingMean(tr, 14), closes, 0)

	cols["williams_r"] = scale(divide(sub(high14, closes), sub(high14, low14), 0), -100)

	typical := make([]float64, n)
	for i := range typical {
		typical[i] = (high[i] + low[i] + closes[i]) / 3
	}
	mad := rollingMAD(typical, 20)
	cols["cci"] = divide(sub(typical, rollingMean(typical, 20)), scale(mad, 0.015), 0)
	cols["mfi"] = moneyFlowIndex(typical, volume, 14)

	hour := make([]float64, n)
	weekend := make([]float64, n)
	london := make([]float64, n)
	ny := make([]float64, n)
	for i, b := range bars {
		ts := b.Timestamp.UTC()
		h := ts.Hour()
		hour[i] = float64(h)
		weekend[i] = flag(ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday)
		london[i] = flag(h >= 8 && h < 16)
		ny[i] = flag(h >= 13 && h < 21)
	}
	cols["hour"] = hour
	cols["is_weekend"] = weekend
	cols["is_london_open"] = london
	cols["is_ny_open"] = ny

	frame := &Frame{}
	for i := 0; i < n; i++ {
		row := make([]float64, len(FeatureNames))
		ok := true
		for j, name := range FeatureNames {
			v := cols[name][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
			row[j] = v
		}
		if !ok {
			continue
		}
		frame.Timestamps = append(frame.Timestamps, bars[i].Timestamp)
		frame.Rows = append(frame.Rows, row)
	}
	if len(frame.Rows) == 0 {
		return nil, ErrInsufficientData
	}
	return frame, nil
}

// Build: вектор признаков последнего бара.
func Build(bars []models.Bar) (FeatureVector, error) {
	frame, err := BuildFrame(bars)
	if err != nil {
		return FeatureVector{}, err
	}
	return frame.Latest(), nil
}

func macdSeries(closes []float64) (macd, hist []float64) {
	macd = sub(ewmAdjusted(closes, 12), ewmAdjusted(closes, 26))
	signal := ewmAdjusted(macd, 9)
	return macd, sub(macd, signal)
}

func moneyFlowIndex(typical, volume []float64, period int) []float64 {
	n := len(typical)
	pos := make([]float64, n)
	neg := make([]float64, n)
	for i := 1; i < n; i++ {
		flow := typical[i] * volume[i]
		switch {
		case typical[i] > typical[i-1]:
			pos[i] = flow
		case typical[i] < typical[i-1]:
			neg[i] = flow
		}
	}
	posSum := rollingSum(pos, period)
	negSum := rollingSum(neg, period)
	out := nanSeries(n)
	for i := range out {
		if math.IsNaN(posSum[i]) || math.IsNaN(negSum[i]) {
			continue
		}
		ratio := posSum[i] / (negSum[i] + eps)
		out[i] = 100 - 100/(1+ratio)
	}
	return out
}

func columns(bars []models.Bar) (high, low, closes, volume []float64) {
	n := len(bars)
	high = make([]float64, n)
	low = make([]float64, n)
	closes = make([]float64, n)
	volume = make([]float64, n)
	for i, b := range bars {
		high[i], low[i], closes[i], volume[i] = b.High, b.Low, b.Close, b.Volume
	}
	return
}

// validBars отбрасывает бары с нечисловыми полями.
func validBars(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Valid() {
			out = append(out, b)
		}
	}
	return out
}

// divide: a/(b+eps)+shift поэлементно.
func divide(a, b []float64, shift float64) []float64 {
	out := nanSeries(len(a))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		out[i] = a[i]/(b[i]+eps) + shift
	}
	return out
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func scale(x []float64, k float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * k
	}
	return out
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
