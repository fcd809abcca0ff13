package entities

import (
	"sort"
	"strings"
)

// BaseCurrency is the currency every rate is expressed against.
const BaseCurrency = "AZN"

// RateTable maps an upper-case currency code to the number of AZN one unit of it buys.
// A table is never mutated after it is published to a store.
type RateTable map[string]float64

// DefaultRates is used when no persisted table can be read.
func DefaultRates() RateTable {
	return RateTable{
		BaseCurrency: 1.0,
		"USD":        1.700680,
		"EUR":        1.836735,
		"AED":        0.463285,
		"TRY":        0.091837,
	}
}

// Clone returns an independent copy of the table.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for code, value := range t {
		out[code] = value
	}
	return out
}

// Codes returns the table keys in lexical order.
func (t RateTable) Codes() []string {
	codes := make([]string, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the value for code, reporting false for unknown or zero entries.
func (t RateTable) Lookup(code string) (float64, bool) {
	value, ok := t[strings.ToUpper(code)]
	if !ok || value == 0 {
		return 0, false
	}
	return value, true
}
