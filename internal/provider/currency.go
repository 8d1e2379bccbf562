package provider

import "strings"

// Currency is an ISO 4217 alphabetic code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	UAH Currency = "UAH"
)

// Base is the currency every rate is quoted against.
const Base = UAH

// Supported lists the currencies users can ask for, in menu order.
var Supported = []Currency{USD, EUR}

var numericCodes = map[Currency]int{
	USD: 840,
	EUR: 978,
	UAH: 980,
}

// NumericCode returns the ISO 4217 numeric code, or 0 when unknown.
func (c Currency) NumericCode() int { return numericCodes[c] }

func (c Currency) String() string { return string(c) }

// IsSupported reports whether c can be requested.
func (c Currency) IsSupported() bool {
	for _, s := range Supported {
		if s == c {
			return true
		}
	}
	return false
}

// ParseCurrency maps user input to a supported currency.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsSupported() {
		return "", false
	}
	return c, true
}
