package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestFetch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"base":"AZN","rates":{"AZN":1,"USD":0.588,"EUR":null}}`)

	rates, err := NewHTTPClient(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AZN": 1, "USD": 0.588, "EUR": 0}, rates)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, kind: entities.ErrUpstreamStatus},
		{name: "invalid json", status: http.StatusOK, body: `<html>`, kind: entities.ErrUpstreamPayload},
		{name: "missing rates", status: http.StatusOK, body: `{"success":false}`, kind: entities.ErrUpstreamPayload},
		{name: "null rates", status: http.StatusOK, body: `{"rates":null}`, kind: entities.ErrUpstreamPayload},
		{name: "wrong type", status: http.StatusOK, body: `{"rates":{"USD":"x"}}`, kind: entities.ErrUpstreamPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)

			_, err := NewHTTPClient(time.Second).Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(time.Second).Fetch(context.Background(), url)
	assert.True(t, errors.Is(err, entities.ErrUpstreamUnavailable))
}

func TestFetchCancelledKeepsCause(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"rates":{}}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(time.Second).Fetch(ctx, srv.URL)
	assert.True(t, errors.Is(err, entities.ErrUpstreamUnavailable))
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewHTTPClient(50*time.Millisecond).Fetch(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, entities.ErrUpstreamUnavailable))
}
