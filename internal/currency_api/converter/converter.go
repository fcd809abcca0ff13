// Package converter does the conversion arithmetic over a rate table snapshot.
package converter

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
)

const (
	resultDecimals = 6
	rateDecimals   = 12
)

type Conversion struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
	Result float64 `json:"result"`
	Rate   float64 `json:"rate"`
}

// Convert prices amount of from in units of to. Result and rate are rounded for display only.
func Convert(rates entities.RateTable, from, to string, amount float64) (Conversion, error) {
	const op = "converter.Convert"

	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == "" || to == "" {
		return Conversion{}, errors.Wrap(entities.ErrInvalidRequest, op)
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return Conversion{}, errors.Wrap(entities.ErrInvalidAmount, op)
	}

	fromValue, ok := rates.Lookup(from)
	if !ok {
		return Conversion{}, &entities.UnsupportedCurrencyError{Code: from, Supported: rates.Codes()}
	}

	toValue, ok := rates.Lookup(to)
	if !ok {
		return Conversion{}, &entities.UnsupportedCurrencyError{Code: to, Supported: rates.Codes()}
	}

	rate := fromValue / toValue

	return Conversion{
		From:   from,
		To:     to,
		Amount: amount,
		Result: Round(amount*rate, resultDecimals),
		Rate:   Round(rate, rateDecimals),
	}, nil
}

// Round renders the exact value of v with a fixed number of decimals, halves away from
// zero, and parses it back.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}

	rounded, err := strconv.ParseFloat(new(big.Rat).SetFloat64(v).FloatString(decimals), 64)
	if err != nil {
		return v
	}
	return rounded
}

// ParseAmount reads the amount query parameter. An absent parameter means 1 and an empty
// one means 0.
func ParseAmount(raw string, present bool) (float64, error) {
	const op = "converter.ParseAmount"

	if !present {
		return 1, nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	amount, ok := parseNumber(raw)
	if !ok {
		return 0, errors.Wrapf(entities.ErrInvalidAmount, "%s: %q", op, raw)
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, errors.Wrapf(entities.ErrInvalidAmount, "%s: %q", op, raw)
	}

	return amount, nil
}

var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// parseNumber accepts unsigned 0x/0o/0b integers and decimal literals. Hex floats,
// digit separators and inf/nan spellings are rejected.
func parseNumber(raw string) (float64, bool) {
	if len(raw) > 2 && raw[0] == '0' {
		base := 0
		switch raw[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}

		if base != 0 {
			digits := raw[2:]
			if digits[0] == '+' || digits[0] == '-' {
				return 0, false
			}

			n, ok := new(big.Int).SetString(digits, base)
			if !ok {
				return 0, false
			}

			f, _ := new(big.Float).SetInt(n).Float64()
			return f, true
		}
	}

	if !decimalLiteral.MatchString(raw) {
		return 0, false
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}

	return amount, true
}
