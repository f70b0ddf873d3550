package service

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"futures_bot/internal/models"
	"futures_bot/pkg/logger"
)

// Fusion хранит историю решений по инструментам и применяет Fuse.
type Fusion struct {
	mu      sync.Mutex
	history map[string]*History
	now     func() time.Time
}

func NewFusion() *Fusion {
	return &Fusion{
		history: make(map[string]*History),
		now:     time.Now,
	}
}

// Decide считает решение для инструмента и кладёт его в историю.
func (f *Fusion) Decide(instrument string, signals models.TechnicalSignals, pred models.Prediction) models.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := f.historyFor(instrument)
	var last *models.Decision
	if prev, ok := h.Last(); ok {
		last = &prev
	}

	d := Fuse(signals, pred, last)
	d.Instrument = instrument
	d.Timestamp = f.now().UTC()
	h.Push(d)

	logger.Debug("[FUSION] %s tech=%.3f pred=%.5f conf=%.2f combined=%.3f -> %s %.3f",
		instrument, d.TechnicalScore, pred.Value, pred.Confidence, d.CombinedScore, d.Signal, d.Strength)
	return d
}

func (f *Fusion) Last(instrument string) (models.Decision, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.history[instrument]; ok {
		return h.Last()
	}
	return models.Decision{}, false
}

func (f *Fusion) History(instrument string) []models.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.history[instrument]; ok {
		return h.Items()
	}
	return nil
}

func (f *Fusion) historyFor(instrument string) *History {
	h, ok := f.history[instrument]
	if !ok {
		h = &History{}
		f.history[instrument] = h
	}
	return h
}

// Summary: сводка по последним решениям инструмента.
type Summary struct {
	Total           int             `json:"total_signals"`
	Buys            int             `json:"buy_signals"`
	Sells           int             `json:"sell_signals"`
	AvgBuyStrength  float64         `json:"avg_buy_strength"`
	AvgSellStrength float64         `json:"avg_sell_strength"`
	AvgConfidence   float64         `json:"avg_ml_confidence"`
	Last            models.Decision `json:"last_signal"`
}

const summaryWindow = 20

func (f *Fusion) Summary(instrument string) (Summary, bool) {
	f.mu.Lock()
	h, ok := f.history[instrument]
	var recent []models.Decision
	if ok {
		recent = h.Recent(summaryWindow)
	}
	f.mu.Unlock()

	if len(recent) == 0 {
		return Summary{}, false
	}

	var buys, sells, conf []float64
	for _, d := range recent {
		conf = append(conf, d.Prediction.Confidence)
		switch d.Signal {
		case models.SideBuy:
			buys = append(buys, d.Strength)
		case models.SideSell:
			sells = append(sells, d.Strength)
		}
	}
	s := Summary{
		Total:         len(recent),
		Buys:          len(buys),
		Sells:         len(sells),
		AvgConfidence: stat.Mean(conf, nil),
		Last:          recent[len(recent)-1],
	}
	if len(buys) > 0 {
		s.AvgBuyStrength = stat.Mean(buys, nil)
	}
	if len(sells) > 0 {
		s.AvgSellStrength = stat.Mean(sells, nil)
	}
	return s, true
}
