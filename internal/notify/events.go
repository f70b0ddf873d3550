package notify

import (
	"fmt"

	"futures_bot/internal/models"
)

func EntryMessage(p models.Position) string {
	return fmt.Sprintf("🟢 Вход %s %s\nqty=%.6f @ %.4f\nSL=%.4f TP=%.4f\nсила сигнала %.2f",
		p.Instrument, p.Side, p.Quantity, p.EntryPrice, p.StopPrice, p.TargetPrice, p.Strength)
}

// BracketFailedMessage: позиция осталась без стопа или тейка.
func BracketFailedMessage(instrument string, kind models.OrderType, err error) string {
	return fmt.Sprintf("⚠️ %s: %s не выставлен, позиция без защиты: %v", instrument, kind, err)
}

func CloseMessage(p models.Position, err error) string {
	if err != nil {
		return fmt.Sprintf("❗️ Закрытие %s %s не подтверждено биржей: %v", p.Instrument, p.Side, err)
	}
	return fmt.Sprintf("🔴 Закрыта %s %s qty=%.6f", p.Instrument, p.Side, p.Quantity)
}

func EmergencyMessage(closed int) string {
	return fmt.Sprintf("🛑 Аварийная остановка: закрыто позиций %d, цикл остановлен", closed)
}
