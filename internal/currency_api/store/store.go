package store

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
)

// Persister is the durable side of the store. Implementations live in adapter/storage.
type Persister interface {
	Load(ctx context.Context) (entities.RateTable, error)
	Save(ctx context.Context, rates entities.RateTable) error
}

// Store holds the current rate table. Reads are lock free; a table is published with a
// single pointer swap and never modified afterwards.
type Store struct {
	current   atomic.Pointer[entities.RateTable]
	persister Persister
}

// NewStore returns a store holding the default table. persister may be nil.
func NewStore(persister Persister) *Store {
	s := &Store{persister: persister}
	s.Replace(entities.DefaultRates())

	return s
}

// Load replaces the current table with the persisted one, or with the defaults when
// nothing usable is stored. It never fails.
func (s *Store) Load(ctx context.Context) {
	const op = "store.Load"

	if s.persister == nil {
		s.Replace(entities.DefaultRates())
		return
	}

	rates, err := s.persister.Load(ctx)
	switch {
	case err != nil:
		slog.Warn("persisted rates unavailable, using defaults", "op", op, "error", err)
		rates = entities.DefaultRates()
	case len(rates) == 0:
		slog.Warn("persisted rates are empty, using defaults", "op", op)
		rates = entities.DefaultRates()
	default:
		slog.Info("loaded persisted rates", "op", op, "currencies", len(rates))
	}

	s.Replace(rates)
}

// Save persists rates. The in-memory table stays authoritative, so callers only log the error.
func (s *Store) Save(ctx context.Context, rates entities.RateTable) error {
	const op = "store.Save"

	if s.persister == nil {
		return nil
	}

	if err := s.persister.Save(ctx, rates); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

// Current returns the published table. Callers must treat it as read only.
func (s *Store) Current() entities.RateTable {
	return *s.current.Load()
}

// Replace publishes rates as the new current table.
func (s *Store) Replace(rates entities.RateTable) {
	if rates == nil {
		rates = entities.RateTable{}
	}
	s.current.Store(&rates)
}

// Codes lists the currencies of the current table in lexical order.
func (s *Store) Codes() []string {
	return s.Current().Codes()
}
