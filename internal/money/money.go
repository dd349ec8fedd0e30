// Package money converts between human-entered decimal amounts and the
// integer minor units the ledger computes with.
//
// The ledger never sees a float: amounts cross the boundary (CLI flags,
// API payloads, display output) as decimal strings and live inside as
// int64 minor units. Parsing uses shopspring/decimal so "0.1"-style inputs
// survive the trip exactly.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Exponent maps an ISO 4217 currency code to its minor-unit exponent.
// Unlisted currencies default to 2.
var exponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

func exponent(currency string) int32 {
	if e, ok := exponents[currency]; ok {
		return e
	}
	return 2
}

// Parse converts a decimal string like "12.34" into minor units for the
// given currency ("12.34" INR -> 1234). Inputs with more precision than
// the currency carries are rejected rather than rounded, so a user typo
// never silently shaves paise.
func Parse(s, currency string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}

	exp := exponent(currency)
	scaled := d.Shift(exp)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q has more precision than %s allows", s, currency)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return scaled.IntPart(), nil
}

// Format renders minor units as a decimal string for the given currency
// (1234 INR -> "12.34"). The inverse of Parse.
func Format(minor int64, currency string) string {
	return decimal.NewFromInt(minor).Shift(-exponent(currency)).StringFixed(exponent(currency))
}
