package shared

import "math"

// BalanceTolerance is the maximum permitted debit/credit divergence.
const BalanceTolerance = 0.01

// Round2 rounds a currency amount to cents.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Abs returns the magnitude of a currency amount.
func Abs(value float64) float64 {
	if value < 0 {
		return -value
	}
	return value
}

// Balanced reports whether debit and credit totals agree within tolerance.
func Balanced(debit, credit float64) bool {
	return math.Abs(Round2(debit)-Round2(credit)) <= BalanceTolerance
}
