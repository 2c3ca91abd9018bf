package fee

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

const (
	// DefaultStationURL is the public gas-station endpoint.
	DefaultStationURL = "https://ethgasstation.info/json/ethgasAPI.json"

	// stationTimeout bounds the fetch so a slow feed cannot block the
	// send flow; callers fall back to the default tiers on error.
	stationTimeout = 10 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20
)

// StationData is the raw gas-station payload. Prices arrive in tenths of
// gwei, waits in minutes; both are feed conventions, converted here and
// nowhere else.
type StationData struct {
	SafeLow     float64 `json:"safeLow"`
	Average     float64 `json:"average"`
	Fast        float64 `json:"fast"`
	SafeLowWait float64 `json:"safeLowWait"`
	AvgWait     float64 `json:"avgWait"`
	FastWait    float64 `json:"fastWait"`
}

// tenthGweiInWei converts the feed's tenth-of-gwei unit to wei.
var tenthGweiInWei = decimal.NewFromInt(100_000_000) //nolint:gochecknoglobals // unit constant

func (s *StationData) slowWei() unit.BaseAmount    { return tenthsOfGweiToWei(s.SafeLow) }
func (s *StationData) averageWei() unit.BaseAmount { return tenthsOfGweiToWei(s.Average) }
func (s *StationData) fastWei() unit.BaseAmount    { return tenthsOfGweiToWei(s.Fast) }

func tenthsOfGweiToWei(v float64) unit.BaseAmount {
	wei := decimal.NewFromFloat(v).Mul(tenthGweiInWei).Truncate(0)
	return unit.NewBase(wei.BigInt())
}

// StationClient fetches raw gas-station data.
type StationClient struct {
	baseURL    string
	httpClient *http.Client
}

// StationClientOptions configures the station client.
type StationClientOptions struct {
	// BaseURL overrides the default station URL (useful for testing).
	BaseURL string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// NewStationClient creates a gas-station client with a bounded timeout.
func NewStationClient(opts *StationClientOptions) *StationClient {
	c := &StationClient{
		baseURL: DefaultStationURL,
		httpClient: &http.Client{
			Timeout: stationTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
	if opts != nil {
		if opts.BaseURL != "" {
			c.baseURL = opts.BaseURL
		}
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
	}
	return c
}

// Fetch retrieves the current gas-station data. Errors are normalized to
// the NetworkError code; callers treat any failure as "no station data"
// and degrade to the fallback tiers.
func (c *StationClient) Fetch(ctx context.Context) (*StationData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, embererr.Wrap(err, "building gas station request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, embererr.WithCause(embererr.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, embererr.WithDetails(embererr.ErrNetworkError, map[string]string{
			"status": resp.Status,
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, embererr.WithCause(embererr.ErrNetworkError, err)
	}

	var data StationData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, embererr.Wrap(err, "decoding gas station response")
	}

	if data.SafeLow <= 0 || data.Average <= 0 || data.Fast <= 0 {
		return nil, fmt.Errorf("%w: non-positive gas prices", embererr.ErrNetworkError)
	}

	return &data, nil
}
