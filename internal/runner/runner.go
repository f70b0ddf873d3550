package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"futures_bot/internal/models"
	features "futures_bot/internal/modules/features/service"
	fusion "futures_bot/internal/modules/fusion/service"
	predictor "futures_bot/internal/modules/predictor/service"
	tracker "futures_bot/internal/modules/tracker/service"
	"futures_bot/internal/notify"
	"futures_bot/pkg/logger"
	"futures_bot/pkg/tracing"
)

type CandleSource interface {
	GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Bar, error)
}

// Control: общий с внешним API стейт.
type Control interface {
	RunState(ctx context.Context) (models.RunState, error)
	AutoTrading(ctx context.Context) (bool, error)
	PublishDecision(ctx context.Context, d models.Decision) error
	PublishPositions(ctx context.Context, positions []models.Position) error
}

type Positions interface {
	HasOpenPosition(instrument string) bool
	Open(ctx context.Context, instrument string, signal models.Side, price, strength float64) (*models.Position, error)
	CloseAll(ctx context.Context) (int, error)
	Reconcile(ctx context.Context) error
	Positions() []models.Position
}

type Predictors interface {
	For(instID string) predictor.Predictor
}

type PriceCache interface {
	LastPrice(instID string) (float64, bool)
}

type Health interface {
	SetReady(v bool)
	TouchCycle(t time.Time, runState string)
}

type Metrics interface {
	Cycle(state string)
	Decision(instrument, signal string)
}

type Config struct {
	Instruments       []string
	Bar               string
	CandleLimit       int
	MinSignalStrength float64
	CycleInterval     time.Duration
	IdleInterval      time.Duration
	ErrorBackoff      time.Duration
	RequestTimeout    time.Duration
}

// Step: итог одного прохода цикла.
type Step struct {
	State models.RunState
	Sleep time.Duration
	Done  bool
}

// Runner: единственный управляющий поток, инструменты обрабатываются по очереди.
type Runner struct {
	cfg        Config
	candles    CandleSource
	control    Control
	positions  Positions
	predictors Predictors
	fusion     *fusion.Fusion
	prices     PriceCache
	notifier   notify.Notifier
	health     Health
	metrics    Metrics

	now func() time.Time
}

func New(
	cfg Config,
	candles CandleSource,
	control Control,
	positions Positions,
	predictors Predictors,
	fu *fusion.Fusion,
	prices PriceCache,
	n notify.Notifier,
	health Health,
	metrics Metrics,
) *Runner {
	return &Runner{
		cfg:        cfg,
		candles:    candles,
		control:    control,
		positions:  positions,
		predictors: predictors,
		fusion:     fu,
		prices:     prices,
		notifier:   n,
		health:     health,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Run крутит цикл до отмены ctx или аварийной остановки.
func (r *Runner) Run(ctx context.Context) {
	logger.Info("[RUNNER] start: %d instruments, bar=%s, min strength %.2f",
		len(r.cfg.Instruments), r.cfg.Bar, r.cfg.MinSignalStrength)
	r.health.SetReady(true)
	defer r.health.SetReady(false)

	for {
		step := r.safeCycle(ctx)
		if step.Done {
			logger.Warn("[RUNNER] loop finished in state %s", step.State)
			return
		}
		select {
		case <-ctx.Done():
			logger.Info("[RUNNER] stopped: %v", ctx.Err())
			return
		case <-time.After(step.Sleep):
		}
	}
}

func (r *Runner) safeCycle(ctx context.Context) (step Step) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("[RUNNER] cycle panic: %v", p)
			step = Step{State: models.RunStateStopped, Sleep: r.cfg.ErrorBackoff}
		}
	}()
	return r.RunCycle(ctx)
}

// RunCycle делает один проход. Состояние читается в начале и не меняется до конца прохода.
func (r *Runner) RunCycle(ctx context.Context) Step {
	span, ctx := tracing.StartSpan(ctx, "runner", "cycle", "")
	defer span.Finish()

	state, err := r.control.RunState(ctx)
	if err != nil {
		tracing.Fail(span, err)
		logger.Error("[RUNNER] control surface unavailable, treating as %s: %v", state, err)
		r.finishCycle("unavailable", state)
		return Step{State: state, Sleep: r.cfg.ErrorBackoff}
	}
	span.SetTag(tracing.TagRunState, string(state))

	switch state {
	case models.RunStateEmergencyStopped:
		r.emergency(ctx)
		r.finishCycle(string(state), state)
		return Step{State: state, Done: true}
	case models.RunStateRunning:
	default:
		logger.Info("[RUNNER] trading status: %s, waiting", state)
		r.finishCycle(string(state), state)
		return Step{State: state, Sleep: r.cfg.IdleInterval}
	}

	auto, err := r.control.AutoTrading(ctx)
	if err != nil {
		logger.Warn("[RUNNER] auto_trading unreadable, entries disabled this cycle: %v", err)
		auto = false
	}

	if err := r.positions.Reconcile(ctx); err != nil {
		logger.Warn("[RUNNER] %v", err)
	}

	for _, inst := range r.cfg.Instruments {
		if ctx.Err() != nil {
			break
		}
		r.processInstrument(ctx, inst, auto)
	}

	r.publishPositions(ctx)
	r.logSummaries()
	r.finishCycle(string(state), state)
	return Step{State: state, Sleep: r.cfg.CycleInterval}
}

func (r *Runner) finishCycle(label string, state models.RunState) {
	r.metrics.Cycle(label)
	r.health.TouchCycle(r.now(), string(state))
}

// processInstrument: ошибки и паники одного инструмента не трогают остальные.
func (r *Runner) processInstrument(ctx context.Context, inst string, auto bool) {
	span, ctx := tracing.StartSpan(ctx, "runner", "instrument", inst)
	defer span.Finish()
	defer func() {
		if p := recover(); p != nil {
			tracing.Fail(span, fmt.Errorf("panic: %v", p))
			logger.Error("[RUNNER] %s: panic: %v", inst, p)
		}
	}()

	fctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	bars, err := r.candles.GetCandles(fctx, inst, r.cfg.Bar, r.cfg.CandleLimit)
	cancel()
	if err != nil || len(bars) == 0 {
		tracing.Fail(span, err)
		logger.Warn("[RUNNER] %s: no market data, skip: %v", inst, err)
		return
	}

	signals := features.Signals(bars)
	pred := r.predictors.For(inst).Predict(bars)
	d := r.fusion.Decide(inst, signals, pred)
	r.metrics.Decision(inst, d.Signal.String())
	span.SetTag(tracing.TagSignal, d.Signal.String())

	reason := d.Reason
	if reason == "" {
		reason = "-"
	}
	logger.Info("[RUNNER] %s: signal=%s strength=%.3f combined=%.3f tech=%.3f pred=%.5f conf=%.2f reason=%s",
		inst, d.Signal, d.Strength, d.CombinedScore, d.TechnicalScore,
		d.Prediction.Value, d.Prediction.Confidence, reason)

	if err := r.control.PublishDecision(ctx, d); err != nil {
		logger.Warn("[RUNNER] %s: publish decision: %v", inst, err)
	}

	price := bars[len(bars)-1].Close
	if r.prices != nil {
		if last, ok := r.prices.LastPrice(inst); ok {
			logger.Debug("[RUNNER] %s: bar close %.4f, last trade %.4f", inst, price, last)
		}
	}

	if d.Signal == models.SideNone || d.Strength <= r.cfg.MinSignalStrength {
		return
	}
	if !auto {
		logger.Info("[RUNNER] %s: %s signal (strength %.2f) but auto-trading disabled", inst, d.Signal, d.Strength)
		return
	}
	if r.positions.HasOpenPosition(inst) {
		logger.Info("[RUNNER] %s: already have position, skip", inst)
		return
	}

	logger.Info("[RUNNER] %s: auto-trading enabled, executing %s @ %.4f", inst, d.Signal, price)
	if _, err := r.positions.Open(ctx, inst, d.Signal, price, d.Strength); err != nil {
		if errors.Is(err, tracker.ErrPositionExists) {
			return
		}
		tracing.Fail(span, err)
		logger.Error("[RUNNER] %s: entry failed: %v", inst, err)
	}
}

// emergency закрывает всё и больше ничего не обрабатывает.
func (r *Runner) emergency(ctx context.Context) {
	n, err := r.positions.CloseAll(ctx)
	if err != nil {
		logger.Error("[RUNNER] emergency close: %v", err)
	}
	logger.Warn("[RUNNER] emergency stop: %d positions closed", n)
	r.notifier.Send(notify.EmergencyMessage(n))
	r.publishPositions(ctx)
}

func (r *Runner) publishPositions(ctx context.Context) {
	if err := r.control.PublishPositions(ctx, r.positions.Positions()); err != nil {
		logger.Warn("[RUNNER] publish positions: %v", err)
	}
}

func (r *Runner) logSummaries() {
	for _, inst := range r.cfg.Instruments {
		if s, ok := r.fusion.Summary(inst); ok {
			logger.Debug("[RUNNER] %s: last %d decisions buy=%d sell=%d avg conf %.2f",
				inst, s.Total, s.Buys, s.Sells, s.AvgConfidence)
		}
	}
}

// Shutdown закрывает позиции при остановке процесса.
func (r *Runner) Shutdown(ctx context.Context) error {
	n, err := r.positions.CloseAll(ctx)
	if n > 0 {
		logger.Info("[RUNNER] shutdown: %d positions closed", n)
	}
	r.publishPositions(ctx)
	if err != nil {
		return fmt.Errorf("shutdown close: %w", err)
	}
	return nil
}
