package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders minor units as a major-unit amount with two decimals, e.g. 2000 -> "20.00".
func Format(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// FormatCurrency prefixes the formatted amount with the currency symbol when known.
func FormatCurrency(minor int64, currency string) string {
	amount := Format(minor)
	switch strings.ToLower(currency) {
	case "eur":
		return "€" + amount
	case "usd":
		return "$" + amount
	case "gbp":
		return "£" + amount
	default:
		return amount + " " + strings.ToUpper(currency)
	}
}

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ParseMajor converts a major-unit decimal string such as "19.99" into minor units.
// Amounts with more than two fractional digits or outside the int64 range are rejected.
func ParseMajor(amount string) (int64, bool) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, false
	}
	minor := d.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, false
	}
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, false
	}
	return minor.IntPart(), true
}
