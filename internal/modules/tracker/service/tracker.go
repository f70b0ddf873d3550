package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"futures_bot/internal/models"
	journal "futures_bot/internal/modules/journal/service"
	"futures_bot/internal/notify"
	"futures_bot/pkg/logger"
)

var (
	// ErrPositionExists: повторный вход по инструменту, no-op.
	ErrPositionExists = errors.New("position already open")
	ErrNoPosition     = errors.New("no open position")
	ErrZeroSize       = errors.New("computed position size is zero")
)

// Exchange: то, что трекеру нужно от биржи.
type Exchange interface {
	Balance(ctx context.Context) (float64, error)
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderAck, error)
	OpenPositions(ctx context.Context) ([]models.ExchangePosition, error)
	CancelAlgo(ctx context.Context, instID, algoID string) error
}

type Recorder interface {
	Order(kind string, ok bool)
	OpenPositions(n int)
}

const defaultJournalTimeout = 5 * time.Second

type Params struct {
	Leverage      int
	RiskPerTrade  float64
	StopLossPct   float64
	TakeProfitPct float64

	JournalTimeout time.Duration
}

// Tracker владеет позициями процесса: не больше одной на инструмент.
type Tracker struct {
	ex       Exchange
	journal  journal.Journal
	notifier notify.Notifier
	metrics  Recorder
	params   Params

	mu        sync.Mutex
	positions map[string]*models.Position

	now func() time.Time
}

func NewTracker(ex Exchange, j journal.Journal, n notify.Notifier, m Recorder, p Params) *Tracker {
	return &Tracker{
		ex:        ex,
		journal:   j,
		notifier:  n,
		metrics:   m,
		params:    p,
		positions: make(map[string]*models.Position),
		now:       time.Now,
	}
}

// Size считает количество в базовой валюте, balance * risk * leverage / price.
func (p Params) Size(balance, price float64) float64 {
	if price <= 0 || balance <= 0 {
		return 0
	}
	return balance * p.RiskPerTrade * float64(p.Leverage) / price
}

// Brackets: цены стопа и тейка от цены входа.
func (p Params) Brackets(side models.PositionSide, entry float64) (stop, target float64) {
	if side == models.Short {
		return entry * (1 + p.StopLossPct), entry * (1 - p.TakeProfitPct)
	}
	return entry * (1 - p.StopLossPct), entry * (1 + p.TakeProfitPct)
}

func (t *Tracker) HasOpenPosition(instrument string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.positions[instrument]
	return ok
}

// Positions: копия открытых позиций, отсортированная по инструменту.
func (t *Tracker) Positions() []models.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []models.Position {
	out := make([]models.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Open входит по рынку и, только если вход принят, ставит стоп и тейк.
// Отказ брекета логируется, вход не откатывается.
// Журнал и уведомление пишутся после снятия блокировки.
func (t *Tracker) Open(ctx context.Context, instrument string, signal models.Side, price, strength float64) (*models.Position, error) {
	t.mu.Lock()
	pos, err := t.openLocked(ctx, instrument, signal, price, strength)
	t.mu.Unlock()
	if err != nil {
		return pos, err
	}

	t.journalOpened(ctx, *pos)
	t.notifier.Send(notify.EntryMessage(*pos))
	return pos, nil
}

func (t *Tracker) openLocked(ctx context.Context, instrument string, signal models.Side, price, strength float64) (*models.Position, error) {
	if existing, ok := t.positions[instrument]; ok {
		logger.Info("[TRACKER] %s: position already open (%s), skip", instrument, existing.Side)
		cp := *existing
		return &cp, ErrPositionExists
	}
	if signal != models.SideBuy && signal != models.SideSell {
		return nil, fmt.Errorf("open %s: no signal", instrument)
	}

	balance, err := t.ex.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: balance: %w", instrument, err)
	}
	qty := t.params.Size(balance, price)
	if qty <= 0 {
		return nil, fmt.Errorf("open %s: balance=%.4f price=%.4f: %w", instrument, balance, price, ErrZeroSize)
	}

	ack, err := t.ex.PlaceOrder(ctx, models.OrderRequest{
		InstID: instrument,
		Side:   signal,
		Type:   models.OrderMarket,
		Size:   qty,
	})
	t.metrics.Order(string(models.OrderMarket), err == nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: entry: %w", instrument, err)
	}

	side := models.PositionSideFor(signal)
	stop, target := t.params.Brackets(side, price)
	pos := &models.Position{
		Instrument:  instrument,
		Side:        side,
		EntryPrice:  price,
		Quantity:    qty,
		StopPrice:   stop,
		TargetPrice: target,
		OrderID:     ack.OrderID,
		Strength:    strength,
		OpenedAt:    t.now().UTC(),
	}
	t.positions[instrument] = pos

	logger.Info("[TRACKER] %s %s opened qty=%.6f @ %.4f notional=%.2f strength=%.2f ordId=%s",
		signal, instrument, qty, price, qty*price, strength, ack.OrderID)

	pos.StopOrderID = t.placeBracket(ctx, pos, models.OrderStopLoss, stop)
	pos.TargetOrderID = t.placeBracket(ctx, pos, models.OrderTakeProfit, target)
	t.metrics.OpenPositions(len(t.positions))

	cp := *pos
	return &cp, nil
}

func (t *Tracker) placeBracket(ctx context.Context, pos *models.Position, kind models.OrderType, trigger float64) string {
	ack, err := t.ex.PlaceOrder(ctx, models.OrderRequest{
		InstID:       pos.Instrument,
		Side:         pos.Side.EntrySide().Opposite(),
		Type:         kind,
		Size:         pos.Quantity,
		TriggerPrice: trigger,
		ReduceOnly:   true,
	})
	t.metrics.Order(string(kind), err == nil)
	if err != nil {
		logger.Error("[TRACKER] %s: %s @ %.4f rejected, position is unprotected: %v", pos.Instrument, kind, trigger, err)
		t.notifier.Send(notify.BracketFailedMessage(pos.Instrument, kind, err))
		return ""
	}
	logger.Info("[TRACKER] %s: %s placed @ %.4f algoId=%s", pos.Instrument, kind, trigger, ack.OrderID)
	return ack.OrderID
}

// closed: снятая с учёта позиция и ответ биржи на закрывающий ордер.
type closed struct {
	pos models.Position
	err error
}

// Close закрывает позицию рынком. Позиция снимается с учёта при любом ответе биржи.
func (t *Tracker) Close(ctx context.Context, instrument string) error {
	t.mu.Lock()
	c, ok := t.closeLocked(ctx, instrument)
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("close %s: %w", instrument, ErrNoPosition)
	}
	t.afterClose(ctx, c)
	return c.err
}

func (t *Tracker) closeLocked(ctx context.Context, instrument string) (closed, bool) {
	pos, ok := t.positions[instrument]
	if !ok {
		return closed{}, false
	}

	_, err := t.ex.PlaceOrder(ctx, models.OrderRequest{
		InstID:     instrument,
		Side:       pos.Side.EntrySide().Opposite(),
		Type:       models.OrderMarket,
		Size:       pos.Quantity,
		ReduceOnly: true,
	})
	t.metrics.Order("close", err == nil)
	if err != nil {
		logger.Error("[TRACKER] %s: close order failed, dropping from tracking anyway: %v", instrument, err)
		err = fmt.Errorf("close %s: %w", instrument, err)
	} else {
		logger.Info("[TRACKER] %s %s closed qty=%.6f", instrument, pos.Side, pos.Quantity)
	}

	t.cancelBrackets(ctx, pos)
	delete(t.positions, instrument)
	t.metrics.OpenPositions(len(t.positions))
	return closed{pos: *pos, err: err}, true
}

func (t *Tracker) afterClose(ctx context.Context, c closed) {
	t.journalClosed(ctx, c.pos)
	t.notifier.Send(notify.CloseMessage(c.pos, c.err))
}

// cancelBrackets снимает остатки брекета. Биржа могла снять их сама, ошибки не важны.
func (t *Tracker) cancelBrackets(ctx context.Context, pos *models.Position) {
	for _, algoID := range []string{pos.StopOrderID, pos.TargetOrderID} {
		if algoID == "" {
			continue
		}
		if err := t.ex.CancelAlgo(ctx, pos.Instrument, algoID); err != nil {
			logger.Debug("[TRACKER] %s: cancel algo %s: %v", pos.Instrument, algoID, err)
		}
	}
}

// CloseAll закрывает всё, что отслеживается. Возвращает число снятых позиций.
func (t *Tracker) CloseAll(ctx context.Context) (int, error) {
	t.mu.Lock()
	var done []closed
	for _, p := range t.snapshotLocked() {
		if c, ok := t.closeLocked(ctx, p.Instrument); ok {
			done = append(done, c)
		}
	}
	t.mu.Unlock()

	var errs []error
	for _, c := range done {
		t.afterClose(ctx, c)
		if c.err != nil {
			errs = append(errs, c.err)
		}
	}
	return len(done), errors.Join(errs...)
}

// Reconcile снимает с учёта позиции, которых биржа больше не показывает
// (сработал стоп или тейк). Ошибка запроса оставляет учёт как есть.
func (t *Tracker) Reconcile(ctx context.Context) error {
	live, err := t.ex.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	open := make(map[string]struct{}, len(live))
	for _, p := range live {
		open[p.InstID] = struct{}{}
	}

	t.mu.Lock()
	var gone []closed
	for inst, pos := range t.positions {
		if _, ok := open[inst]; ok {
			continue
		}
		logger.Info("[TRACKER] %s: no longer open on exchange, bracket filled", inst)
		t.cancelBrackets(ctx, pos)
		delete(t.positions, inst)
		gone = append(gone, closed{pos: *pos})
	}
	t.metrics.OpenPositions(len(t.positions))
	t.mu.Unlock()

	sort.Slice(gone, func(i, j int) bool { return gone[i].pos.Instrument < gone[j].pos.Instrument })
	for _, c := range gone {
		t.afterClose(ctx, c)
	}
	return nil
}

// journalCtx: журнал не должен держать торговый цикл дольше JournalTimeout.
func (t *Tracker) journalCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := t.params.JournalTimeout
	if timeout <= 0 {
		timeout = defaultJournalTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (t *Tracker) journalOpened(ctx context.Context, pos models.Position) {
	jctx, cancel := t.journalCtx(ctx)
	defer cancel()
	if err := t.journal.Opened(jctx, pos); err != nil {
		logger.Warn("[TRACKER] %s: journal: %v", pos.Instrument, err)
	}
}

func (t *Tracker) journalClosed(ctx context.Context, pos models.Position) {
	jctx, cancel := t.journalCtx(ctx)
	defer cancel()
	if err := t.journal.Closed(jctx, pos, t.now()); err != nil {
		logger.Warn("[TRACKER] %s: journal: %v", pos.Instrument, err)
	}
}
