package resource

import (
	"sort"
	"strings"

	"golang.org/x/text/currency"
)

// defaultScale is used for currency codes the CLDR tables do not know.
const defaultScale = 2

// Currency is an ISO 4217 currency in current legal-tender use.
type Currency struct {
	Code       string `json:"currency_code"`
	MinorUnits int    `json:"minor_units"`
}

// Currencies lists the currencies that are tender today, sorted by code.
func Currencies() []Currency {
	seen := make(map[string]bool)
	var out []Currency
	it := currency.Query()
	for it.Next() {
		u := it.Unit()
		code := u.String()
		if seen[code] {
			continue
		}
		seen[code] = true
		scale, _ := currency.Standard.Rounding(u)
		out = append(out, Currency{Code: code, MinorUnits: scale})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Scale returns the number of minor-unit digits of an ISO currency code.
// Unknown or empty codes use two digits.
func Scale(code string) int {
	code = strings.TrimSpace(code)
	if code == "" {
		return defaultScale
	}
	u, err := currency.ParseISO(code)
	if err != nil {
		return defaultScale
	}
	scale, _ := currency.Standard.Rounding(u)
	return scale
}
