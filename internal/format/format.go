package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Price renders an amount with two decimals and a trailing currency symbol, e.g. "49.90 €".
func Price(amount decimal.Decimal, symbol string) string {
	s := amount.StringFixed(2)
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}

// Stars repeats the star glyph rating times, clamped to 0..5.
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating)
}
