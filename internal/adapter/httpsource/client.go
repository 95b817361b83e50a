// Package httpsource fetches the historical case table over HTTP.
package httpsource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hiv-forecast-service/internal/adapter/csvfile"
	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
)

// maxErrorBody caps how much of a failed response is copied into the error.
const maxErrorBody = 512

// Client implements pipeline.Extractor for a CSV published at a URL.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a fetcher for url with the given request timeout.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Extract downloads and decodes the table. Transport errors and non-200
// responses are returned as-is; the caller treats them as fatal.
func (c *Client) Extract(ctx context.Context) ([]domain.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch historical table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("fetch historical table: status %d: %s", resp.StatusCode, body)
	}

	records, err := csvfile.DecodeHistorical(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode historical table: %w", err)
	}

	c.logger.Debug("historical table fetched", "url", c.url, "rows", len(records), "duration", time.Since(start))
	return records, nil
}
