package service

import (
	"context"
	"fmt"
	"sync"

	"futures_bot/internal/models"
	features "futures_bot/internal/modules/features/service"
	predictor "futures_bot/internal/modules/predictor/service"
	"futures_bot/internal/notify"
	"futures_bot/pkg/logger"
)

// Exchange: REST-вызовы, которые прогрев дёргает заранее.
type Exchange interface {
	GetInstrumentMeta(ctx context.Context, instID string) (models.Instrument, error)
	GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Bar, error)
}

type Predictors interface {
	For(instID string) predictor.Predictor
}

// Report: итог прогрева по инструменту.
type Report struct {
	Instrument string
	Bars       int
	Features   bool
	Prediction models.Prediction
	Err        error
}

// Warmuper проверяет до первого цикла, что по каждому инструменту есть контракт,
// свечи и что модель отвечает. Заодно наполняет кэш параметров контракта.
type Warmuper struct {
	mx         Exchange
	predictors Predictors
	n          notify.Notifier

	bar   string
	limit int

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

func NewWarmuper(mx Exchange, predictors Predictors, n notify.Notifier, bar string, limit int) *Warmuper {
	return &Warmuper{
		mx:         mx,
		predictors: predictors,
		n:          n,
		bar:        bar,
		limit:      limit,
		sem:        make(chan struct{}, 4),
	}
}

func (w *Warmuper) Warmup(ctx context.Context, instruments []string) []Report {
	reports := make([]Report, len(instruments))

	var wg sync.WaitGroup
	for i, inst := range instruments {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()
			reports[i] = w.one(ctx, inst)
		}()
	}
	wg.Wait()

	ready := 0
	for _, r := range reports {
		if r.Err != nil {
			logger.Warn("[BOOT] %s: %v", r.Instrument, r.Err)
			continue
		}
		ready++
		logger.Info("[BOOT] %s: bars=%d features=%v pred=%.5f conf=%.2f",
			r.Instrument, r.Bars, r.Features, r.Prediction.Value, r.Prediction.Confidence)
	}
	if ready == len(instruments) {
		w.n.Sendf("✅ Прогрев завершён: %d инструментов готовы", ready)
	} else {
		w.n.Sendf("⚠️ Прогрев: готово %d из %d инструментов, остальные будут пропускаться до появления данных", ready, len(instruments))
	}
	return reports
}

func (w *Warmuper) one(ctx context.Context, inst string) Report {
	rep := Report{Instrument: inst}
	if _, err := w.mx.GetInstrumentMeta(ctx, inst); err != nil {
		rep.Err = fmt.Errorf("instrument meta: %w", err)
		return rep
	}
	bars, err := w.mx.GetCandles(ctx, inst, w.bar, w.limit)
	if err != nil {
		rep.Err = fmt.Errorf("candles: %w", err)
		return rep
	}
	rep.Bars = len(bars)
	_, ferr := features.Build(bars)
	rep.Features = ferr == nil
	rep.Prediction = w.predictors.For(inst).Predict(bars)
	return rep
}
