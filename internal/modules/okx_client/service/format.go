package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"futures_bot/internal/models"
)

var ErrSizeTooSmall = errors.New("order size below instrument minimum")

// formatSize печатает размер без экспоненты и хвостовых нулей.
func formatSize(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// formatPrice округляет цену к шагу тика инструмента.
func formatPrice(px, tick float64) string {
	d := decimal.NewFromFloat(px)
	if tick > 0 {
		t := decimal.NewFromFloat(tick)
		d = d.DivRound(t, 0).Mul(t)
		return d.StringFixed(t.Exponent() * -1)
	}
	return d.String()
}

// toContracts переводит количество в базовой валюте в контракты:
// вниз к lotSz, не меньше minSz.
func toContracts(qty float64, inst models.Instrument) (float64, error) {
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return 0, fmt.Errorf("invalid order size %v", qty)
	}
	ctVal := inst.CtVal
	if ctVal <= 0 {
		ctVal = 1
	}
	raw := decimal.NewFromFloat(qty).Div(decimal.NewFromFloat(ctVal))
	if inst.LotSz > 0 {
		lot := decimal.NewFromFloat(inst.LotSz)
		raw = raw.Div(lot).Floor().Mul(lot)
	}
	contracts, _ := raw.Float64()
	if contracts <= 0 || contracts < inst.MinSz {
		return 0, fmt.Errorf("%w: %s qty=%v contracts=%v minSz=%v",
			ErrSizeTooSmall, inst.InstID, qty, contracts, inst.MinSz)
	}
	return contracts, nil
}
