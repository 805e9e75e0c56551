package domain

import "github.com/shopspring/decimal"

// ─── Money ──────────────────────────────────────────────────────────────────
// Coin amounts are decimals in memory and integer minor units (cents) at rest.
// Rounding happens exactly once, when a value crosses into storage.

// MoneyPlaces is the number of fractional digits kept at persistence.
const MoneyPlaces = 2

func init() {
	// Coins are rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Coins builds an amount from a float literal (config values, test fixtures).
func Coins(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Round2 rounds an amount to the persisted precision.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ToCents converts an amount to integer minor units, rounding first.
func ToCents(d decimal.Decimal) int64 {
	return Round2(d).Shift(MoneyPlaces).IntPart()
}

// FromCents converts stored minor units back to an amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -MoneyPlaces)
}
