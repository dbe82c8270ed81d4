// Package money holds the single rounding rule and the percentage allocation
// helper shared by the quote, attribution, and guest-share calculators. Every
// derived amount in the billing engine goes through RoundHalfUp exactly once;
// intermediate line items are exact integer products and are never rounded.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// RoundHalfUp rounds to the nearest whole currency unit, halves away from zero.
func RoundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// ApplyRate multiplies an integer amount by a rate and rounds once.
func ApplyRate(amount int64, rate decimal.Decimal) int64 {
	return RoundHalfUp(decimal.NewFromInt(amount).Mul(rate))
}

// PercentOf returns pct percent of total, rounded once.
func PercentOf(total int64, pct decimal.Decimal) int64 {
	return RoundHalfUp(decimal.NewFromInt(total).Mul(pct).Div(hundred))
}

// AllocateByPercent splits total across the given percentages, rounding each
// share once and then assigning the leftover difference to the largest
// percentage so the shares reconcile exactly to total. Ties go to the earliest
// entry. The caller is responsible for validating that percents sum to 100.
func AllocateByPercent(total int64, percents []decimal.Decimal) []int64 {
	if len(percents) == 0 {
		return nil
	}

	amounts := make([]int64, len(percents))
	var allocated int64
	largest := 0
	for i, pct := range percents {
		amounts[i] = PercentOf(total, pct)
		allocated += amounts[i]
		if pct.GreaterThan(percents[largest]) {
			largest = i
		}
	}

	amounts[largest] += total - allocated
	return amounts
}

// SumsTo100 reports whether the percentages sum to 100 within epsilon.
func SumsTo100(percents []decimal.Decimal, epsilon decimal.Decimal) bool {
	sum := decimal.Zero
	for _, pct := range percents {
		sum = sum.Add(pct)
	}
	return sum.Sub(hundred).Abs().LessThanOrEqual(epsilon)
}
