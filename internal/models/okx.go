package models

// Instrument: параметры контракта, нужные для пересчёта количества в контракты.
type Instrument struct {
	InstID string
	LotSz  float64
	MinSz  float64
	TickSz float64
	CtVal  float64 // ctVal * ctMult
}

// ExchangePosition is what the exchange reports as currently open.
type ExchangePosition struct {
	InstID  string
	PosSide string // "net" / "long" / "short"
	Size    float64
	AvgPx   float64
}
