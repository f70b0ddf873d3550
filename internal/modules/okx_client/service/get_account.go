package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"futures_bot/internal/models"
)

// Balance: доступный USDT. Нет строки USDT => 0.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var rows []balanceRow
	q := url.Values{"ccy": {"USDT"}}
	if err := c.do(ctx, "Balance", http.MethodGet, "/api/v5/account/balance", q, nil, true, &rows); err != nil {
		return 0, err
	}
	for _, r := range rows {
		for _, d := range r.Details {
			if d.Ccy != "USDT" {
				continue
			}
			v, err := strconv.ParseFloat(d.AvailBal, 64)
			if err != nil {
				return 0, err
			}
			return v, nil
		}
	}
	return 0, nil
}

// OpenPositions: позиции SWAP с ненулевым pos.
func (c *Client) OpenPositions(ctx context.Context) ([]models.ExchangePosition, error) {
	var rows []positionRow
	q := url.Values{"instType": {"SWAP"}}
	if err := c.do(ctx, "OpenPositions", http.MethodGet, "/api/v5/account/positions", q, nil, true, &rows); err != nil {
		return nil, err
	}
	out := make([]models.ExchangePosition, 0, len(rows))
	for _, r := range rows {
		size, err := strconv.ParseFloat(r.Pos, 64)
		if err != nil || size == 0 {
			continue
		}
		avg, _ := strconv.ParseFloat(r.AvgPx, 64)
		out = append(out, models.ExchangePosition{
			InstID:  r.InstID,
			PosSide: r.PosSide,
			Size:    size,
			AvgPx:   avg,
		})
	}
	return out, nil
}
