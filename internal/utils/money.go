package utils

import "math"

// RoundMoney rounds to two decimal places (cents).
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
