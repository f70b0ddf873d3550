package models

import "time"

type PositionSide string

const (
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"
)

// PositionSideFor maps an entry decision to the side of the resulting position.
func PositionSideFor(s Side) PositionSide {
	if s == SideSell {
		return Short
	}
	return Long
}

// EntrySide is the order side that opens the position.
func (p PositionSide) EntrySide() Side {
	if p == Short {
		return SideSell
	}
	return SideBuy
}

// Position: открытая позиция по инструменту, максимум одна на инструмент.
type Position struct {
	Instrument    string       `json:"instrument"`
	Side          PositionSide `json:"side"`
	EntryPrice    float64      `json:"entry_price"`
	Quantity      float64      `json:"quantity"`
	StopPrice     float64      `json:"stop_price"`
	TargetPrice   float64      `json:"target_price"`
	OrderID       string       `json:"order_id"`
	StopOrderID   string       `json:"stop_order_id,omitempty"`
	TargetOrderID string       `json:"target_order_id,omitempty"`
	Strength      float64      `json:"signal_strength"`
	OpenedAt      time.Time    `json:"opened_at"`
}
