package fetcher

import (
	"math"
	"strings"

	"github.com/langowen/azn-rates/internal/entities"
)

// Normalize turns upstream quotes (target units per 1 AZN) into AZN per 1 target unit.
// The base is pinned to 1; zero, negative and non-finite quotes are dropped.
func Normalize(quotes map[string]float64) entities.RateTable {
	rates := make(entities.RateTable, len(quotes))

	for code, quote := range quotes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}

		if code == entities.BaseCurrency {
			rates[code] = 1.0
			continue
		}

		if quote <= 0 || math.IsInf(quote, 0) || math.IsNaN(quote) {
			continue
		}

		rates[code] = 1 / quote
	}

	return rates
}

// Merge returns fresh plus every code of prev that fresh does not carry.
func Merge(prev, fresh entities.RateTable) entities.RateTable {
	merged := fresh.Clone()

	for code, value := range prev {
		if _, ok := merged[code]; !ok {
			merged[code] = value
		}
	}

	return merged
}
