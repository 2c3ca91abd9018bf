// Package pricefeed supplies the engine's native-currency price inputs: a
// spot-price client, a single-flight interval poller, and a paced queue
// for historical price lookups.
package pricefeed

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
	"golang.org/x/time/rate"

	"github.com/mrz1836/embersend/internal/retry"
	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

const (
	// DefaultBaseURL is the public price API endpoint.
	DefaultBaseURL = "https://min-api.cryptocompare.com"

	// requestTimeout bounds each price call so a slow feed cannot block
	// the poller or queue worker indefinitely.
	requestTimeout = 10 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20

	// Default pacing for price API calls: 2 req/s, burst of 1, so queued
	// historical lookups go out staggered rather than in a burst.
	defaultRatePerSecond = 2
	defaultBurst         = 1
)

// Client fetches spot and historical quotes from the price API. All calls
// pass through a shared token-bucket limiter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
}

// ClientOptions configures the price client.
type ClientOptions struct {
	// BaseURL overrides the default API endpoint (useful for testing).
	BaseURL string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// RatePerSecond overrides the request pacing. Zero keeps the default.
	RatePerSecond float64
	// Retry overrides the retry configuration. Zero keeps the default.
	Retry retry.Config
}

// NewClient creates a price API client with bounded timeouts and request
// pacing.
func NewClient(opts *ClientOptions) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		limiter:  rate.NewLimiter(defaultRatePerSecond, defaultBurst),
		retryCfg: retry.DefaultConfig(),
	}
	if opts != nil {
		if opts.BaseURL != "" {
			c.baseURL = opts.BaseURL
		}
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.RatePerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), defaultBurst)
		}
		if opts.Retry.MaxAttempts > 0 {
			c.retryCfg = opts.Retry
		}
	}
	return c
}

// spotResponse mirrors the pricemultifull RAW payload. Decimal fields
// decode the feed's JSON numbers without passing through float64.
type spotResponse struct {
	Raw map[string]map[string]struct {
		Price     decimal.Decimal `json:"PRICE"`
		ChangePct decimal.Decimal `json:"CHANGEPCT24HOUR"`
	} `json:"RAW"`
}

// Spot fetches current quotes for the given asset symbols in one currency.
// The result maps upper-case symbol to its quote; symbols the feed does
// not price are simply absent.
func (c *Client) Spot(ctx context.Context, symbols []string, currency string) (map[string]unit.PriceEntry, error) {
	q := url.Values{}
	q.Set("fsyms", strings.ToUpper(strings.Join(symbols, ",")))
	q.Set("tsyms", strings.ToUpper(currency))

	body, err := c.get(ctx, "/data/pricemultifull", q)
	if err != nil {
		return nil, err
	}

	var resp spotResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, embererr.Wrap(err, "decoding spot price response")
	}

	cur := strings.ToUpper(currency)
	entries := make(map[string]unit.PriceEntry, len(resp.Raw))
	for sym, byCurrency := range resp.Raw {
		quote, ok := byCurrency[cur]
		if !ok || quote.Price.Sign() <= 0 {
			continue
		}
		entries[strings.ToUpper(sym)] = unit.PriceEntry{
			Price:  unit.NewNative(quote.Price),
			Change: quote.ChangePct,
		}
	}
	return entries, nil
}

// Historical fetches the quote for one asset at a past point in time.
// The unavailable sentinel is returned when the feed has no price for
// that timestamp.
func (c *Client) Historical(ctx context.Context, symbol, currency string, at time.Time) (unit.NativeAmount, error) {
	sym := strings.ToUpper(symbol)
	cur := strings.ToUpper(currency)

	q := url.Values{}
	q.Set("fsym", sym)
	q.Set("tsyms", cur)
	q.Set("ts", fmt.Sprintf("%d", at.Unix()))

	body, err := c.get(ctx, "/data/pricehistorical", q)
	if err != nil {
		return unit.UnavailableNative(), err
	}

	var resp map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &resp); err != nil {
		return unit.UnavailableNative(), embererr.Wrap(err, "decoding historical price response")
	}

	price, ok := resp[sym][cur]
	if !ok || price.Sign() <= 0 {
		return unit.UnavailableNative(), embererr.WithDetails(embererr.ErrPriceUnavailable, map[string]string{
			"symbol":   sym,
			"currency": cur,
		})
	}
	return unit.NewNative(price), nil
}

// get performs one rate-limited, retried GET and returns the body.
// Transport failures and throttling are classified retryable; other HTTP
// errors surface as NetworkError immediately.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return retry.DoWithConfig(ctx, c.retryCfg, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return nil, embererr.Wrap(err, "building price request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, retry.WrapRetryable(embererr.WithCause(embererr.ErrNetworkError, err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests {
			if wait := retry.ParseRetryAfter(resp.Header.Get("Retry-After")); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C:
				}
			}
			return nil, fmt.Errorf("%w: price API throttled", retry.ErrRateLimited)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, retry.WrapRetryable(embererr.WithDetails(embererr.ErrNetworkError, map[string]string{
				"status": resp.Status,
			}))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, embererr.WithDetails(embererr.ErrNetworkError, map[string]string{
				"status": resp.Status,
			})
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, retry.WrapRetryable(embererr.WithCause(embererr.ErrNetworkError, err))
		}
		return body, nil
	})
}
