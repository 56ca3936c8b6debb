package sofascore

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/pkg/resilience"
)

// ErrNotFound marks an upstream 404. For lineups this means "not yet
// published" rather than a failure.
var ErrNotFound = errors.New("not found upstream")

const userAgent = "LineupTracker/1.0"

// rawClient performs unguarded HTTP calls against the upstream API. All
// resilience (limiter, breaker, retry, caching) lives in Client.
type rawClient struct {
	client  *http.Client
	baseURL string
}

func newRawClient(baseURL string, timeout time.Duration) *rawClient {
	return &rawClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// getJSON fetches path and decodes the response into out. Network failures,
// 429 and 5xx come back as transient errors; 404 maps to ErrNotFound; any
// other non-200 status is permanent.
func (c *rawClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.client.Do(req)
	if err != nil {
		return resilience.Transient("GET "+path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return resilience.Transient("GET "+path, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	default:
		return fmt.Errorf("GET %s: unexpected status code: %d", path, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		body = gzReader
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
