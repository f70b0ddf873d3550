package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"futures_bot/internal/models"
	"futures_bot/pkg/logger"
)

const (
	KeyStatus    = "trading:status"
	KeySettings  = "trading:settings"
	KeyPositions = "trading:positions"

	keyDecision        = "trading:decisions:%s"
	keyDecisionHistory = "trading:decisions:%s:history"

	// DecisionHistoryLen: длина списка решений на инструмент.
	DecisionHistoryLen = 100
)

// ErrUnavailable: хранилище недоступно; цикл считает состояние STOPPED.
var ErrUnavailable = errors.New("control surface unavailable")

type statusDoc struct {
	Status      string `json:"status"`
	LastUpdated string `json:"last_updated"`
}

// Store: общий с внешним API стейт в Redis. Каждое чтение и запись затрагивает один ключ.
type Store struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewStore(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

// RunState читает trading:status. Нет ключа или неизвестное значение => STOPPED.
// Ошибка Redis => STOPPED и ErrUnavailable.
func (s *Store) RunState(ctx context.Context) (models.RunState, error) {
	raw, err := s.rdb.Get(ctx, KeyStatus).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.RunStateStopped, nil
	}
	if err != nil {
		return models.RunStateStopped, fmt.Errorf("%w: get %s: %v", ErrUnavailable, KeyStatus, err)
	}
	var doc statusDoc
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		logger.Warn("[CONTROL] malformed %s: %v", KeyStatus, err)
		return models.RunStateStopped, nil
	}
	return models.ParseRunState(doc.Status), nil
}

func (s *Store) SetRunState(ctx context.Context, st models.RunState) error {
	data, err := sonic.Marshal(statusDoc{
		Status:      string(st),
		LastUpdated: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, KeyStatus, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, KeyStatus, err)
	}
	return nil
}

// AutoTrading читает флаг auto_trading. Без настроек или без поля: включено.
// При ошибке чтения возвращает false: без подтверждения не торгуем.
func (s *Store) AutoTrading(ctx context.Context) (bool, error) {
	settings, err := s.settings(ctx)
	if err != nil {
		return false, err
	}
	v, ok := settings["auto_trading"].(bool)
	if !ok {
		return true, nil
	}
	return v, nil
}

// SetAutoTrading меняет только auto_trading, остальные настройки сохраняются.
func (s *Store) SetAutoTrading(ctx context.Context, enabled bool) error {
	settings, err := s.settings(ctx)
	if err != nil {
		return err
	}
	settings["auto_trading"] = enabled
	data, err := sonic.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, KeySettings, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, KeySettings, err)
	}
	return nil
}

func (s *Store) settings(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	raw, err := s.rdb.Get(ctx, KeySettings).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, KeySettings, err)
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		logger.Warn("[CONTROL] malformed %s: %v", KeySettings, err)
		return map[string]any{}, nil
	}
	return out, nil
}

// PublishDecision кладёт последнее решение и добавляет его в ограниченный список.
func (s *Store) PublishDecision(ctx context.Context, d models.Decision) error {
	data, err := sonic.Marshal(d)
	if err != nil {
		return err
	}
	histKey := fmt.Sprintf(keyDecisionHistory, d.Instrument)
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, fmt.Sprintf(keyDecision, d.Instrument), data, 0)
		p.LPush(ctx, histKey, data)
		p.LTrim(ctx, histKey, 0, DecisionHistoryLen-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: publish decision: %v", ErrUnavailable, err)
	}
	return nil
}

// Decisions: последние n решений по инструменту, от новых к старым.
func (s *Store) Decisions(ctx context.Context, instrument string, n int) ([]models.Decision, error) {
	raws, err := s.rdb.LRange(ctx, fmt.Sprintf(keyDecisionHistory, instrument), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: decisions: %v", ErrUnavailable, err)
	}
	out := make([]models.Decision, 0, len(raws))
	for _, raw := range raws {
		var d models.Decision
		if err := sonic.UnmarshalString(raw, &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// PublishPositions: снимок открытых позиций для дашборда.
func (s *Store) PublishPositions(ctx context.Context, positions []models.Position) error {
	if positions == nil {
		positions = []models.Position{}
	}
	data, err := sonic.Marshal(positions)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, KeyPositions, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, KeyPositions, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
