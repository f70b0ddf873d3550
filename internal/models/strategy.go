package models

import "time"

// Side: направление решения, "BUY"/"SELL" или пустая строка.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// String keeps NONE readable in logs.
func (s Side) String() string {
	if s == SideNone {
		return "NONE"
	}
	return string(s)
}

// Opposite returns the side that closes a position opened with s.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideNone
	}
}

// TechnicalSignals: шесть дискретных сигналов, каждый из {-1, 0, 1}.
type TechnicalSignals struct {
	EMA      float64 `json:"ema_signal"`
	RSI      float64 `json:"rsi_signal"`
	BB       float64 `json:"bb_signal"`
	MACD     float64 `json:"macd_signal"`
	Volume   float64 `json:"volume_signal"`
	Momentum float64 `json:"momentum_signal"`
}

// Prediction is the regressor output for the next period.
type Prediction struct {
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Decision is produced once per instrument per cycle.
type Decision struct {
	Instrument     string           `json:"instrument"`
	Signal         Side             `json:"signal"`
	Strength       float64          `json:"strength"`
	CombinedScore  float64          `json:"combined_score"`
	TechnicalScore float64          `json:"technical_score"`
	Technical      TechnicalSignals `json:"technical_signals"`
	Prediction     Prediction       `json:"prediction"`
	Reason         string           `json:"reason,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}
