package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/langowen/azn-rates/deploy/config"
	"github.com/langowen/azn-rates/internal/currency_api/adapter/api_client/exchangerate"
	"github.com/langowen/azn-rates/internal/currency_api/metrics"
	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	rates   entities.RateTable
	saved   []entities.RateTable
	saveErr error
}

func (m *memStore) Current() entities.RateTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rates
}

func (m *memStore) Replace(rates entities.RateTable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = rates
}

func (m *memStore) Save(ctx context.Context, rates entities.RateTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, rates)
	return m.saveErr
}

type fakeClient struct {
	calls   atomic.Int32
	quotes  map[string]float64
	err     error
	release chan struct{}
	started chan struct{}
}

func (c *fakeClient) Fetch(ctx context.Context, url string) (map[string]float64, error) {
	c.calls.Add(1)
	if c.started != nil {
		close(c.started)
	}
	if c.release != nil {
		<-c.release
	}
	return c.quotes, c.err
}

func newFetcher(store RateStore, client HTTPClient) (*Fetcher, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	cfg := config.Fetcher{URL: "http://upstream.test/latest", Timeout: time.Second}
	return NewFetcher(store, client, cfg, m), m
}

func TestRefreshInvertsAndMerges(t *testing.T) {
	store := &memStore{rates: entities.RateTable{"AZN": 1, "USD": 2, "EUR": 3}}
	client := &fakeClient{quotes: map[string]float64{"AZN": 1, "USD": 0.5}}
	f, m := newFetcher(store, client)

	require.NoError(t, f.Refresh(context.Background()))

	want := entities.RateTable{"AZN": 1, "USD": 2, "EUR": 3}
	assert.Equal(t, want, store.Current())
	require.Len(t, store.saved, 1)
	assert.Equal(t, want, store.saved[0])
	assert.False(t, f.InFlight())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTotal.WithLabelValues(metrics.ResultOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Currencies))
}

func TestRefreshUpstreamErrorKeepsTable(t *testing.T) {
	prev := entities.RateTable{"AZN": 1, "USD": 2}
	store := &memStore{rates: prev}
	client := &fakeClient{err: errors.Wrap(entities.ErrUpstreamPayload, "missing rates")}
	f, m := newFetcher(store, client)

	err := f.Refresh(context.Background())

	assert.True(t, errors.Is(err, entities.ErrUpstreamPayload))
	assert.Equal(t, prev, store.Current())
	assert.Empty(t, store.saved)
	assert.False(t, f.InFlight())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTotal.WithLabelValues(metrics.ResultError)))
}

func TestRefreshSaveErrorIsNotFatal(t *testing.T) {
	store := &memStore{rates: entities.RateTable{"AZN": 1}, saveErr: errors.New("read-only fs")}
	f, _ := newFetcher(store, &fakeClient{quotes: map[string]float64{"USD": 0.5}})

	require.NoError(t, f.Refresh(context.Background()))
	assert.Equal(t, entities.RateTable{"AZN": 1, "USD": 2}, store.Current())
}

func TestRefreshWhileInFlightIsNoop(t *testing.T) {
	store := &memStore{rates: entities.RateTable{"AZN": 1}}
	client := &fakeClient{
		quotes:  map[string]float64{"USD": 0.5},
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	f, m := newFetcher(store, client)

	done := make(chan error, 1)
	go func() { done <- f.Refresh(context.Background()) }()

	<-client.started
	assert.True(t, f.InFlight())

	err := f.Refresh(context.Background())
	assert.True(t, errors.Is(err, entities.ErrRefreshInProgress))

	close(client.release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), client.calls.Load())
	assert.False(t, f.InFlight())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTotal.WithLabelValues(metrics.ResultSkipped)))
}

func TestRefreshAgainstUpstreamServer(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   entities.RateTable
		errIs  error
	}{
		{
			name:   "missing rates field",
			status: http.StatusOK,
			body:   `{"success":true}`,
			want:   entities.RateTable{"AZN": 1, "USD": 2, "EUR": 3},
			errIs:  entities.ErrUpstreamPayload,
		},
		{
			name:   "partial response",
			status: http.StatusOK,
			body:   `{"base":"AZN","rates":{"AZN":1,"USD":0.588}}`,
			want:   entities.RateTable{"AZN": 1, "USD": 1 / 0.588, "EUR": 3},
		},
		{
			name:   "bad gateway",
			status: http.StatusBadGateway,
			body:   `oops`,
			want:   entities.RateTable{"AZN": 1, "USD": 2, "EUR": 3},
			errIs:  entities.ErrUpstreamStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			store := &memStore{rates: entities.RateTable{"AZN": 1, "USD": 2, "EUR": 3}}
			m := metrics.NewMetrics(prometheus.NewRegistry())
			f := NewFetcher(store, exchangerate.NewHTTPClient(time.Second), config.Fetcher{URL: srv.URL, Timeout: time.Second}, m)

			err := f.Refresh(context.Background())
			if tt.errIs != nil {
				assert.True(t, errors.Is(err, tt.errIs), "got %v", err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.want, store.Current())
			assert.False(t, f.InFlight())
		})
	}
}
