package entities

import (
	"errors"
	"strings"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	ErrRefreshInProgress   = errors.New("refresh already in progress")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamStatus      = errors.New("upstream returned non-success status")
	ErrUpstreamPayload     = errors.New("upstream payload is invalid")

	ErrNotFound = errors.New("entity not found")
)

// UnsupportedCurrencyError carries the codes that were known when the lookup failed.
type UnsupportedCurrencyError struct {
	Code      string
	Supported []string
}

func (e *UnsupportedCurrencyError) Error() string {
	return "unsupported currency " + e.Code + " (supported: " + strings.Join(e.Supported, ",") + ")"
}

func (e *UnsupportedCurrencyError) Is(target error) bool {
	return target == ErrUnsupportedCurrency
}
