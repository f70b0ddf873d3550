package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"futures_bot/internal/models"
	"futures_bot/pkg/logger"
)

// GetCandles: последние limit свечей, от старых к новым.
// OKX отдаёт [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm] от новых к старым.
func (c *Client) GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Bar, error) {
	bar, err := NormalizeBar(bar)
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"instId": {instID},
		"bar":    {bar},
		"limit":  {strconv.Itoa(limit)},
	}
	var rows [][]string
	if err := c.do(ctx, "GetCandles", http.MethodGet, "/api/v5/market/candles", q, nil, false, &rows); err != nil {
		return nil, err
	}

	bars := make([]models.Bar, 0, len(rows))
	skipped := 0
	for i := len(rows) - 1; i >= 0; i-- {
		b, ok := parseCandle(rows[i])
		if !ok {
			skipped++
			continue
		}
		bars = append(bars, b)
	}
	if skipped > 0 {
		logger.Warn("[OKX] %s: skipped %d malformed candles", instID, skipped)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("GetCandles %s: %w", instID, ErrEmptyResponse)
	}
	return bars, nil
}

func parseCandle(row []string) (models.Bar, bool) {
	if len(row) < 6 {
		return models.Bar{}, false
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Bar{}, false
	}
	var v [5]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(row[i+1], 64); err != nil {
			return models.Bar{}, false
		}
	}
	b := models.Bar{
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      v[0],
		High:      v[1],
		Low:       v[2],
		Close:     v[3],
		Volume:    v[4],
	}
	if !b.Valid() || b.Close <= 0 {
		return models.Bar{}, false
	}
	return b, true
}

// LastPrice: последняя сделка по тикеру.
func (c *Client) LastPrice(ctx context.Context, instID string) (float64, error) {
	var rows []tickerRow
	q := url.Values{"instId": {instID}}
	if err := c.do(ctx, "LastPrice", http.MethodGet, "/api/v5/market/ticker", q, nil, false, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("LastPrice %s: %w", instID, ErrEmptyResponse)
	}
	px, err := strconv.ParseFloat(rows[0].Last, 64)
	if err != nil || px <= 0 {
		return 0, fmt.Errorf("LastPrice %s: bad last %q", instID, rows[0].Last)
	}
	return px, nil
}
