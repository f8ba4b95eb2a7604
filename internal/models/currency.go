package models

import "strings"

// Currency is an ISO 4217 code the scanner knows how to total.
type Currency string

const (
	USD Currency = "USD"
	KHR Currency = "KHR"
	THB Currency = "THB"
	EUR Currency = "EUR"
)

var knownCurrencies = map[Currency]bool{USD: true, KHR: true, THB: true, EUR: true}

// currencyShorthand maps the single-letter and symbol forms printed on
// Cambodian receipts to their ISO codes.
var currencyShorthand = map[string]Currency{
	"U": USD,
	"$": USD,
	"K": KHR,
	"៛": KHR,
}

// ParseCurrency resolves a 3-letter code or shorthand. Unknown codes return false.
func ParseCurrency(s string) (Currency, bool) {
	s = strings.TrimSpace(s)
	if c, ok := currencyShorthand[strings.ToUpper(s)]; ok {
		return c, true
	}
	c := Currency(strings.ToUpper(s))
	if knownCurrencies[c] {
		return c, true
	}
	return "", false
}
