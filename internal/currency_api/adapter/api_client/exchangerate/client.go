package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
)

// maxBodySize bounds how much of an upstream response is read.
const maxBodySize = 1 << 20

type HTTPClient struct {
	client *http.Client
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

type latestResponse struct {
	Base  string              `json:"base"`
	Rates map[string]*float64 `json:"rates"`
}

// Fetch returns the upstream "rates" object as is: units of the target currency per one
// base unit. Null entries come back as zero.
func (c *HTTPClient) Fetch(ctx context.Context, url string) (map[string]float64, error) {
	const op = "exchangerate.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, entities.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, errors.Wrapf(entities.ErrUpstreamStatus, "%s: %s", op, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w: %w", op, entities.ErrUpstreamUnavailable, err)
	}

	var payload latestResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrapf(entities.ErrUpstreamPayload, "%s: %v", op, err)
	}

	if payload.Rates == nil {
		return nil, errors.Wrapf(entities.ErrUpstreamPayload, "%s: missing rates", op)
	}

	result := make(map[string]float64, len(payload.Rates))
	for code, value := range payload.Rates {
		if value == nil {
			result[code] = 0
			continue
		}
		result[code] = *value
	}

	return result, nil
}
