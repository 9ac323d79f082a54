package tmf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config holds the endpoints of the TM Forum APIs the charging backend
// integrates with
type Config struct {
	// UsageURL is the base URL of the usage management API
	UsageURL string
	// OrderingURL is the base URL of the product ordering API
	OrderingURL string
	// InventoryURL is the base URL of the product inventory API
	InventoryURL string
	// Timeout bounds every API request
	Timeout time.Duration
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.UsageURL == "" {
		return fmt.Errorf("tmf: usage API URL is required")
	}
	if c.OrderingURL == "" {
		return fmt.Errorf("tmf: ordering API URL is required")
	}
	if c.InventoryURL == "" {
		return fmt.Errorf("tmf: inventory API URL is required")
	}
	return nil
}

// restClient is the shared plumbing of the TM Forum API clients
type restClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func newRESTClient(timeout time.Duration, logger *zap.Logger) *restClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &restClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// do issues a JSON request and decodes the response into out when out is not
// nil. Non-2xx statuses are returned as errors carrying the response body.
func (c *restClient) do(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("tmf: failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("tmf: failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmf: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tmf: unexpected status %d from %s: %s", resp.StatusCode, url, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("tmf: failed to decode response: %w", err)
		}
	}
	return nil
}
