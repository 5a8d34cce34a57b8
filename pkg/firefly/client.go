package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"golang.org/x/oauth2"
)

// ClientConfig represents the configuration for the Firefly III API client.
type ClientConfig struct {
	APIURL      string        // base URL of the instance, without /api/v1
	AccessToken string        // personal access token
	Timeout     time.Duration // Default: 30 seconds
	Logger      *slog.Logger
}

// Client is a Firefly III API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a new Firefly III API client. Requests carry the access
// token as a bearer token.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.AccessToken, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = timeout

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(config.APIURL, "/"),
		logger:     logger,
	}
}

// About returns the version information of the instance.
func (c *Client) About(ctx context.Context) (*AboutData, error) {
	var about About
	if err := c.do(ctx, http.MethodGet, "/api/v1/about", nil, nil, &about); err != nil {
		return nil, fmt.Errorf("failed to get about: %w", err)
	}
	return &about.Data, nil
}

// ListAccounts lists every account of a supported type across all pages.
func (c *Client) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	var accounts []ledger.Account
	for page := 1; ; page++ {
		var resp AccountArray
		params := url.Values{"type": {"all"}, "page": {strconv.Itoa(page)}}
		if err := c.do(ctx, http.MethodGet, "/api/v1/accounts", params, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list accounts (page=%d): %w", page, err)
		}

		for _, r := range resp.Data {
			a, err := AccountFromRead(r)
			if err != nil {
				c.logger.Debug("Ignoring account", "remote_id", r.ID, "reason", err)
				continue
			}
			accounts = append(accounts, a)
		}

		if page >= resp.Meta.Pagination.TotalPages {
			break
		}
	}
	return accounts, nil
}

// ListTransactions lists the withdrawals, deposits and transfers dated
// between start and end inclusive, across all pages.
func (c *Client) ListTransactions(ctx context.Context, start, end civil.Date) ([]ledger.Transaction, error) {
	var transactions []ledger.Transaction
	for page := 1; ; page++ {
		var resp TransactionArray
		params := url.Values{
			"start": {start.String()},
			"end":   {end.String()},
			"page":  {strconv.Itoa(page)},
		}
		if err := c.do(ctx, http.MethodGet, "/api/v1/transactions", params, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list transactions (page=%d): %w", page, err)
		}

		for _, r := range resp.Data {
			t, err := TransactionFromRead(r)
			if err != nil {
				c.logger.Debug("Ignoring transaction", "remote_id", r.ID, "reason", err)
				continue
			}
			transactions = append(transactions, t)
		}

		if page >= resp.Meta.Pagination.TotalPages {
			break
		}
	}
	return transactions, nil
}

// CreateAccount creates a and returns it with its remote id.
func (c *Client) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	var resp AccountSingle
	if err := c.do(ctx, http.MethodPost, "/api/v1/accounts", nil, AccountStoreFrom(a), &resp); err != nil {
		return ledger.Account{}, fmt.Errorf("failed to create account %q: %w", a.Name, err)
	}
	a.RemoteID = resp.Data.ID
	return a, nil
}

// CreateTransaction creates t and returns it with its remote id.
func (c *Client) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	body := TransactionStore{
		ApplyRules:   true,
		Transactions: []TransactionSplit{SplitFrom(t)},
	}
	var resp TransactionSingle
	if err := c.do(ctx, http.MethodPost, "/api/v1/transactions", nil, body, &resp); err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}
	t.RemoteID = resp.Data.ID
	return t, nil
}

// UpdateTransaction replaces the fields of the remote transaction remoteID
// with those of t. The transaction type cannot change.
func (c *Client) UpdateTransaction(ctx context.Context, remoteID string, t ledger.Transaction) (ledger.Transaction, error) {
	body := TransactionUpdate{
		ApplyRules:   true,
		Transactions: []TransactionSplit{SplitFrom(t)},
	}
	var resp TransactionSingle
	if err := c.do(ctx, http.MethodPut, "/api/v1/transactions/"+url.PathEscape(remoteID), nil, body, &resp); err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to update transaction %s: %w", remoteID, err)
	}
	return TransactionFromRead(resp.Data)
}

// DeleteTransaction deletes the remote transaction remoteID.
func (c *Client) DeleteTransaction(ctx context.Context, remoteID string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/v1/transactions/"+url.PathEscape(remoteID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", remoteID, err)
	}
	return nil
}

// do sends a request and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Firefly request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ledger.GatewayError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseError parses an error response from the Firefly III API.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ledger.GatewayError{Status: resp.StatusCode, Message: "failed to read error response"}
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		return &ledger.GatewayError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	msg := errResp.Message
	for _, field := range slices.Sorted(maps.Keys(errResp.Errors)) {
		msg += fmt.Sprintf("; %s: %s", field, strings.Join(errResp.Errors[field], ", "))
	}
	return &ledger.GatewayError{Status: resp.StatusCode, Message: msg}
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var gwErr *ledger.GatewayError
	return errors.As(err, &gwErr) && gwErr.Status == http.StatusNotFound
}
