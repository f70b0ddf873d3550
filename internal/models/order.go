package models

type OrderType string

const (
	OrderMarket     OrderType = "market"
	OrderStopLoss   OrderType = "stop_loss"
	OrderTakeProfit OrderType = "take_profit"
)

// OrderRequest: намерение ордера до преобразования в формат биржи.
// Size задаётся в базовой валюте, биржевой клиент сам переводит в контракты.
type OrderRequest struct {
	InstID       string
	Side         Side
	Type         OrderType
	Size         float64
	TriggerPrice float64
	ReduceOnly   bool
	ClientID     string
}

type OrderAck struct {
	OrderID  string
	ClientID string
}
