package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"futures_bot/internal/models"
)

// GetInstrumentMeta отдаёт параметры контракта; результат кэшируется на процесс.
func (c *Client) GetInstrumentMeta(ctx context.Context, instID string) (models.Instrument, error) {
	c.metaMu.RLock()
	inst, ok := c.meta[instID]
	c.metaMu.RUnlock()
	if ok {
		return inst, nil
	}

	var rows []instrumentRow
	q := url.Values{"instType": {"SWAP"}, "instId": {instID}}
	if err := c.do(ctx, "GetInstrumentMeta", http.MethodGet, "/api/v5/public/instruments", q, nil, false, &rows); err != nil {
		return models.Instrument{}, err
	}
	if len(rows) == 0 {
		return models.Instrument{}, fmt.Errorf("instrument %s not found", instID)
	}

	row := rows[0]
	if row.State != "" && row.State != "live" {
		return models.Instrument{}, fmt.Errorf("instrument %s not live: state=%s", instID, row.State)
	}

	parsePos := func(name, s string) (float64, error) {
		if s == "" {
			return 0, fmt.Errorf("%s empty", name)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("%s parse: %v (%q)", name, err, s)
		}
		return v, nil
	}

	lotSz, err := parsePos("lotSz", row.LotSz)
	if err != nil {
		return models.Instrument{}, err
	}
	minSz, err := parsePos("minSz", row.MinSz)
	if err != nil {
		return models.Instrument{}, err
	}
	tickSz, err := parsePos("tickSz", row.TickSz)
	if err != nil {
		return models.Instrument{}, err
	}
	ctVal, err := parsePos("ctVal", row.CtVal)
	if err != nil {
		return models.Instrument{}, err
	}
	ctMult := 1.0
	if row.CtMult != "" {
		if v, e := strconv.ParseFloat(row.CtMult, 64); e == nil && v > 0 {
			ctMult = v
		}
	}

	inst = models.Instrument{
		InstID: row.InstID,
		LotSz:  lotSz,
		MinSz:  minSz,
		TickSz: tickSz,
		CtVal:  ctVal * ctMult,
	}

	c.metaMu.Lock()
	c.meta[instID] = inst
	c.metaMu.Unlock()
	return inst, nil
}
