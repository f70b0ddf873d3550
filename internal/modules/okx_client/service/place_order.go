package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"futures_bot/internal/models"
	"futures_bot/pkg/logger"
)

// NewClientOrderID: uuid без дефисов, 32 символа, как требует clOrdId.
func NewClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PlaceOrder переводит намерение в ордер OKX. Размер пересчитывается в контракты.
// Рыночные ордера идут через /trade/order, стоп и тейк через /trade/order-algo.
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderAck, error) {
	if req.Side != models.SideBuy && req.Side != models.SideSell {
		return models.OrderAck{}, fmt.Errorf("PlaceOrder: unsupported side %q", req.Side)
	}
	inst, err := c.GetInstrumentMeta(ctx, req.InstID)
	if err != nil {
		return models.OrderAck{}, fmt.Errorf("PlaceOrder meta: %w", err)
	}
	contracts, err := toContracts(req.Size, inst)
	if err != nil {
		return models.OrderAck{}, err
	}
	if req.ClientID == "" {
		req.ClientID = NewClientOrderID()
	}

	switch req.Type {
	case models.OrderMarket:
		return c.placeMarket(ctx, req, contracts)
	case models.OrderStopLoss, models.OrderTakeProfit:
		return c.placeSingleAlgo(ctx, req, contracts, inst.TickSz)
	default:
		return models.OrderAck{}, fmt.Errorf("PlaceOrder: unsupported type %q", req.Type)
	}
}

func (c *Client) placeMarket(ctx context.Context, req models.OrderRequest, contracts float64) (models.OrderAck, error) {
	body := map[string]any{
		"instId":  req.InstID,
		"tdMode":  c.tdMode,
		"side":    strings.ToLower(string(req.Side)),
		"ordType": "market",
		"sz":      formatSize(contracts),
		"clOrdId": req.ClientID,
	}
	if req.ReduceOnly {
		body["reduceOnly"] = true
	}

	var rows []orderRow
	if err := c.do(ctx, "PlaceOrder", http.MethodPost, "/api/v5/trade/order", nil, body, true, &rows); err != nil {
		return models.OrderAck{}, err
	}
	row, err := firstAccepted("PlaceOrder", rows)
	if err != nil {
		return models.OrderAck{}, err
	}
	logger.Info("[OKX] market %s %s sz=%s ordId=%s reduceOnly=%v",
		req.Side, req.InstID, formatSize(contracts), row.OrdID, req.ReduceOnly)
	return models.OrderAck{OrderID: row.OrdID, ClientID: req.ClientID}, nil
}

// placeSingleAlgo: условный ордер на закрытие по рынку (ordPx=-1) при срабатывании триггера.
func (c *Client) placeSingleAlgo(ctx context.Context, req models.OrderRequest, contracts, tick float64) (models.OrderAck, error) {
	if req.TriggerPrice <= 0 {
		return models.OrderAck{}, fmt.Errorf("PlaceSingleAlgo: triggerPx <= 0")
	}
	body := map[string]any{
		"instId":      req.InstID,
		"tdMode":      c.tdMode,
		"side":        strings.ToLower(string(req.Side)),
		"ordType":     "conditional",
		"sz":          formatSize(contracts),
		"algoClOrdId": req.ClientID,
		"reduceOnly":  true,
	}
	if req.Type == models.OrderTakeProfit {
		body["tpTriggerPx"] = formatPrice(req.TriggerPrice, tick)
		body["tpOrdPx"] = "-1"
		body["tpTriggerPxType"] = "last"
	} else {
		body["slTriggerPx"] = formatPrice(req.TriggerPrice, tick)
		body["slOrdPx"] = "-1"
		body["slTriggerPxType"] = "last"
	}

	var rows []orderRow
	if err := c.do(ctx, "PlaceSingleAlgo", http.MethodPost, "/api/v5/trade/order-algo", nil, body, true, &rows); err != nil {
		return models.OrderAck{}, err
	}
	row, err := firstAccepted("PlaceSingleAlgo", rows)
	if err != nil {
		return models.OrderAck{}, err
	}
	if row.AlgoID == "" {
		return models.OrderAck{}, fmt.Errorf("PlaceSingleAlgo: empty algoId")
	}
	return models.OrderAck{OrderID: row.AlgoID, ClientID: req.ClientID}, nil
}

// CancelAlgo снимает условный ордер (остаток брекета при ручном закрытии).
func (c *Client) CancelAlgo(ctx context.Context, instID, algoID string) error {
	body := []map[string]string{{"instId": instID, "algoId": algoID}}
	var rows []orderRow
	if err := c.do(ctx, "CancelAlgo", http.MethodPost, "/api/v5/trade/cancel-algos", nil, body, true, &rows); err != nil {
		return err
	}
	_, err := firstAccepted("CancelAlgo", rows)
	return err
}

func firstAccepted(op string, rows []orderRow) (orderRow, error) {
	if len(rows) == 0 {
		return orderRow{}, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	if rows[0].SCode != "" && rows[0].SCode != "0" {
		return orderRow{}, &APIError{Op: op, Code: rows[0].SCode, Msg: rows[0].SMsg}
	}
	return rows[0], nil
}
