package fee

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emberdec "github.com/mrz1836/embersend/internal/decimal"
	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

func usdTable() *unit.PriceTable {
	return unit.NewPriceTable("USD", map[string]map[string]unit.PriceEntry{
		"USD": {
			"ETH": {Price: unit.NewNative(emberdec.MustParse("2000"))},
		},
	})
}

func TestCompute(t *testing.T) {
	// 2 gwei * 21000 gas = 0.000042 ETH
	gasPrice := unit.NewBaseFromUint64(2_000_000_000)
	got := Compute(gasPrice, GasLimitTransfer)
	require.True(t, got.Decimal().Equal(emberdec.MustParse("0.000042")),
		"Compute = %s", got.String())
}

func TestBuildOptions_Fallback(t *testing.T) {
	opts := BuildOptions(nil, usdTable(), GasLimitTransfer)

	assert.Equal(t, "1000000000", opts.Slow.GasPriceWei.String())
	assert.Equal(t, "2000000000", opts.Average.GasPriceWei.String())
	assert.Equal(t, "5000000000", opts.Fast.GasPriceWei.String())
	assert.Equal(t, 600, opts.Slow.EstimatedSeconds)
	assert.Equal(t, 180, opts.Average.EstimatedSeconds)
	assert.Equal(t, 60, opts.Fast.EstimatedSeconds)

	// 5 gwei * 21000 = 0.000105 ETH at $2000 = $0.21
	assert.True(t, opts.Fast.FeeBase.Decimal().Equal(emberdec.MustParse("0.000105")))
	assert.False(t, opts.Fast.FeeNative.Unavailable())
	assert.True(t, opts.Fast.FeeNative.Decimal().Equal(emberdec.MustParse("0.21")))
}

func TestBuildOptions_NoPriceTable(t *testing.T) {
	opts := BuildOptions(nil, nil, GasLimitTransfer)
	assert.True(t, opts.Slow.FeeNative.Unavailable())
	assert.True(t, opts.Average.FeeNative.Unavailable())
	assert.True(t, opts.Fast.FeeNative.Unavailable())
}

func TestBuildOptions_StationData(t *testing.T) {
	station := &StationData{
		SafeLow: 10, Average: 25, Fast: 80, // tenths of gwei
		SafeLowWait: 10, AvgWait: 2.5, FastWait: 0.5, // minutes
	}
	opts := BuildOptions(station, usdTable(), GasLimitTransfer)

	assert.Equal(t, "1000000000", opts.Slow.GasPriceWei.String())
	assert.Equal(t, "2500000000", opts.Average.GasPriceWei.String())
	assert.Equal(t, "8000000000", opts.Fast.GasPriceWei.String())
	assert.Equal(t, 600, opts.Slow.EstimatedSeconds)
	assert.Equal(t, 150, opts.Average.EstimatedSeconds)
	assert.Equal(t, 30, opts.Fast.EstimatedSeconds)
}

func TestBuildOptions_Monotonic(t *testing.T) {
	// An inverted feed is clamped so fast >= average >= slow holds.
	station := &StationData{SafeLow: 50, Average: 20, Fast: 10}
	opts := BuildOptions(station, nil, GasLimitTransfer)

	assert.True(t, opts.Average.GasPriceWei.Cmp(opts.Slow.GasPriceWei) >= 0)
	assert.True(t, opts.Fast.GasPriceWei.Cmp(opts.Average.GasPriceWei) >= 0)
	assert.True(t, opts.Average.FeeBase.Cmp(opts.Slow.FeeBase) >= 0)
	assert.True(t, opts.Fast.FeeBase.Cmp(opts.Average.FeeBase) >= 0)
}

func TestBuildOptions_Idempotent(t *testing.T) {
	station := &StationData{SafeLow: 10, Average: 25, Fast: 80, SafeLowWait: 10, AvgWait: 2.5, FastWait: 0.5}
	table := usdTable()

	a := BuildOptions(station, table, GasLimitTokenTransfer)
	b := BuildOptions(station, table, GasLimitTokenTransfer)

	for _, pair := range [][2]Option{{a.Slow, b.Slow}, {a.Average, b.Average}, {a.Fast, b.Fast}} {
		assert.Equal(t, pair[0].GasPriceWei.String(), pair[1].GasPriceWei.String())
		assert.Equal(t, pair[0].EstimatedSeconds, pair[1].EstimatedSeconds)
		assert.Equal(t, pair[0].FeeBase.String(), pair[1].FeeBase.String())
		assert.Equal(t, pair[0].FeeNative.String(), pair[1].FeeNative.String())
	}
}

func TestOptionsByTier(t *testing.T) {
	opts := BuildOptions(nil, nil, GasLimitTransfer)
	assert.Equal(t, TierSlow, opts.ByTier(TierSlow).Tier)
	assert.Equal(t, TierFast, opts.ByTier(TierFast).Tier)
	assert.Equal(t, TierAverage, opts.ByTier(Tier("bogus")).Tier)
}

func TestStationClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"safeLow":10,"average":25,"fast":80,"safeLowWait":10,"avgWait":2.5,"fastWait":0.5}`))
	}))
	defer srv.Close()

	client := NewStationClient(&StationClientOptions{BaseURL: srv.URL})
	data, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25.0, data.Average, 0.001)
}

func TestStationClient_Fetch_Errors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewStationClient(&StationClientOptions{BaseURL: srv.URL})
		_, err := client.Fetch(context.Background())
		require.Error(t, err)
		assert.True(t, embererr.Is(err, embererr.ErrNetworkError))
	})

	t.Run("non-positive prices rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"safeLow":0,"average":0,"fast":0}`))
		}))
		defer srv.Close()

		client := NewStationClient(&StationClientOptions{BaseURL: srv.URL})
		_, err := client.Fetch(context.Background())
		require.Error(t, err)
	})
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Tier
		wantErr  bool
	}{
		{name: "slow", input: "slow", expected: TierSlow},
		{name: "average", input: "average", expected: TierAverage},
		{name: "fast", input: "fast", expected: TierFast},
		{name: "mixed case", input: "FAST", expected: TierFast},
		{name: "padded", input: "  slow  ", expected: TierSlow},
		{name: "unknown tier rejected", input: "turbo", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, embererr.ErrConfigInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
