package provider

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://api.teller.io"
	DefaultTimeout = 30 * time.Second
	userAgent      = "TrueBalance/1.0"

	accountsPath = "/accounts"

	// Largest response body the client will read.
	maxBodyBytes = 10 << 20
)

// Client handles communication with the aggregation provider's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// Options configures a Client. CertFile/KeyFile enable the mutual-TLS client
// certificate the provider requires; leave both empty for sandbox or tests.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	CertFile string
	KeyFile  string

	// Transport overrides the base round tripper. Used by tests.
	Transport http.RoundTripper
}

// NewClient creates a provider client with an instrumented transport.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	base := opts.Transport
	if base == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

		if opts.CertFile != "" || opts.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load provider client certificate: %w", err)
			}
			transport.TLSClientConfig.Certificates = []tls.Certificate{cert}
		}
		base = transport
	}

	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(base,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "provider " + r.Method + " " + spanPath(r.URL.Path)
				}),
			),
		},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
	}, nil
}

// ListAccounts fetches every account reachable with the credential.
func (c *Client) ListAccounts(ctx context.Context, credential string) ([]RemoteAccount, error) {
	var accounts []RemoteAccount
	if err := c.get(ctx, credential, accountsPath, &accounts); err != nil {
		return nil, err
	}

	for i, a := range accounts {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: account at index %d has no id", ErrProviderResponse, i)
		}
	}
	return accounts, nil
}

// ListTransactions fetches the transactions of one provider account.
func (c *Client) ListTransactions(ctx context.Context, credential, accountID string) ([]RemoteTransaction, error) {
	path := accountsPath + "/" + url.PathEscape(accountID) + "/transactions"

	var txs []RemoteTransaction
	if err := c.get(ctx, credential, path, &txs); err != nil {
		return nil, err
	}

	for i, tx := range txs {
		if tx.ID == "" {
			return nil, fmt.Errorf("%w: transaction at index %d has no id", ErrProviderResponse, i)
		}
		if _, err := tx.ParsedDate(); err != nil {
			return nil, fmt.Errorf("%w: transaction %s: %v", ErrProviderResponse, tx.ID, err)
		}
	}
	return txs, nil
}

// GetAccountBalance returns the live ledger balance of one provider account.
func (c *Client) GetAccountBalance(ctx context.Context, credential, accountID string) (decimal.Decimal, error) {
	var account RemoteAccount
	if err := c.get(ctx, credential, accountsPath+"/"+url.PathEscape(accountID), &account); err != nil {
		return decimal.Zero, err
	}
	if account.ID == "" {
		return decimal.Zero, fmt.Errorf("%w: account payload has no id", ErrProviderResponse)
	}
	return account.Balance.Ledger, nil
}

// get performs one bounded GET and decodes a 2xx JSON body into out.
func (c *Client) get(ctx context.Context, credential, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return classifyTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		return statusError(resp.StatusCode, errResp.Error.Code, errResp.Error.Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderResponse, err)
	}
	return nil
}

// spanPath collapses provider ids so span names stay low-cardinality.
func spanPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "accounts" {
		parts[1] = "{id}"
	}
	return "/" + strings.Join(parts, "/")
}
