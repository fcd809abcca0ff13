package fetcher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/langowen/azn-rates/deploy/config"
	"github.com/langowen/azn-rates/internal/currency_api/metrics"
	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
)

type Fetcher struct {
	store      RateStore
	httpClient HTTPClient
	metrics    *metrics.Metrics
	url        string
	timeout    time.Duration

	inFlight atomic.Bool
}

func NewFetcher(store RateStore, client HTTPClient, cfg config.Fetcher, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		store:      store,
		httpClient: client,
		metrics:    m,
		url:        cfg.URL,
		timeout:    cfg.Timeout,
	}
}

// Refresh pulls the upstream table into the store. At most one refresh runs at a time;
// a call made while another is running returns ErrRefreshInProgress without side effects.
// On any upstream failure the store is left untouched.
func (f *Fetcher) Refresh(ctx context.Context) error {
	const op = "fetcher.Refresh"

	if !f.inFlight.CompareAndSwap(false, true) {
		f.metrics.RefreshTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		return errors.Wrap(entities.ErrRefreshInProgress, op)
	}
	defer f.inFlight.Store(false)

	start := time.Now()
	err := f.fetchRate(ctx)
	f.metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		f.metrics.RefreshTotal.WithLabelValues(metrics.ResultError).Inc()
		return errors.Wrap(err, op)
	}

	f.metrics.RefreshTotal.WithLabelValues(metrics.ResultOK).Inc()
	f.metrics.LastRefreshSuccess.SetToCurrentTime()

	return nil
}

// InFlight reports whether a refresh is currently running.
func (f *Fetcher) InFlight() bool {
	return f.inFlight.Load()
}

func (f *Fetcher) fetchRate(ctx context.Context) error {
	const op = "fetcher.fetchRate"

	quotes, err := f.fetchQuotes(ctx)
	if err != nil {
		return errors.Wrap(err, op)
	}

	fresh := Normalize(quotes)
	merged := Merge(f.store.Current(), fresh)

	f.store.Replace(merged)
	f.metrics.Currencies.Set(float64(len(merged)))

	slog.Info("rates refreshed", "op", op, "received", len(quotes), "currencies", len(merged))

	if err := f.store.Save(ctx, merged); err != nil {
		slog.Warn("failed to persist rates", "op", op, "error", err)
	}

	return nil
}

func (f *Fetcher) fetchQuotes(ctx context.Context) (map[string]float64, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	return f.httpClient.Fetch(ctx, f.url)
}
