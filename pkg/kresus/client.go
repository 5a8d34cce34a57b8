package kresus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ClientConfig represents the configuration for the Kresus client.
type ClientConfig struct {
	APIURL  string        // full URL of the all-data endpoint
	Timeout time.Duration // Default: 60 seconds
	Logger  *slog.Logger
}

// Client fetches data from a Kresus instance.
type Client struct {
	httpClient *http.Client
	apiURL     string
	logger     *slog.Logger
}

// NewClient creates a new Kresus client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     config.APIURL,
		logger:     logger,
	}
}

// FetchAll downloads every account and transaction known to Kresus.
func (c *Client) FetchAll(ctx context.Context) (*AllData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kresus data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kresus request failed with status code %d: %s", resp.StatusCode, body)
	}

	return c.decode(resp.Body)
}

func (c *Client) decode(r io.Reader) (*AllData, error) {
	var data AllData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode kresus data: %w", err)
	}

	c.logger.Info("Fetched kresus data", "accounts", len(data.Accounts), "transactions", len(data.Transactions))
	return &data, nil
}
