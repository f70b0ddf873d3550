package service

import (
	"fmt"
	"strings"
)

// NormalizeBar приводит таймфрейм к виду OKX: "1h" -> "1H", "1d" -> "1D".
func NormalizeBar(tf string) (string, error) {
	tf = strings.TrimSpace(tf)
	// месяц отличается от минуты только регистром
	if tf == "1M" || tf == "3M" {
		return tf, nil
	}
	switch strings.ToLower(tf) {
	case "1m", "3m", "5m", "15m", "30m":
		return strings.ToLower(tf), nil

	case "60m", "1h":
		return "1H", nil
	case "2h":
		return "2H", nil
	case "4h":
		return "4H", nil
	case "6h":
		return "6H", nil
	case "12h":
		return "12H", nil

	case "1d":
		return "1D", nil
	case "2d":
		return "2D", nil
	case "3d":
		return "3D", nil
	case "1w":
		return "1W", nil

	case "6hutc":
		return "6Hutc", nil
	case "12hutc":
		return "12Hutc", nil
	case "1dutc":
		return "1Dutc", nil
	case "1wutc":
		return "1Wutc", nil
	}
	return "", fmt.Errorf("unsupported timeframe for OKX bar: %q", tf)
}
