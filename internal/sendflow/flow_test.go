package sendflow

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/embersend/internal/fee"
	"github.com/mrz1836/embersend/internal/signer"
	"github.com/mrz1836/embersend/internal/tx"
	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

const (
	fromAddr = "0x89205A3A3b2A69De6Dbf7f01ED13B2108B2c43e7"
	toAddr   = "0x281055afc982d96fAB65b3a49cAc8b878184Cb16"
)

// oneEthHalf is 1.5 ETH in wei.
var oneEthHalf, _ = new(big.Int).SetString("1500000000000000000", 10)

func testSnapshot() unit.AccountSnapshot {
	return unit.AccountSnapshot{
		Address: fromAddr,
		Assets: []unit.Asset{
			{Symbol: unit.BaseAssetSymbol, Decimals: unit.BaseAssetDecimals, Balance: unit.NewBase(oneEthHalf)},
		},
	}
}

// instantEstimator resolves to the fallback tiers without touching the network.
func instantEstimator(_ context.Context, asset unit.Asset, table *unit.PriceTable) (fee.Options, error) {
	return fee.BuildOptions(nil, table, fee.GasLimitForAsset(asset)), nil
}

type fakeStrategy struct {
	mu     sync.Mutex
	id     tx.TxID
	err    error
	called int
}

func (s *fakeStrategy) SignAndSend(_ context.Context, _ *tx.Intent) (tx.TxID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called++
	return s.id, s.err
}

func testDispatcher(strategy signer.Strategy) *signer.Dispatcher {
	d := signer.NewDispatcher(zerolog.Nop())
	for _, b := range signer.Backends() {
		d.Register(b, strategy)
	}
	return d
}

func newTestFlow(t *testing.T, strategy signer.Strategy, backend signer.Backend) (*Flow, *[]Phase) {
	t.Helper()

	var mu sync.Mutex
	var seen []Phase
	f := New(Config{
		Backend:    backend,
		Dispatcher: testDispatcher(strategy),
		Estimate:   instantEstimator,
		Snapshot:   testSnapshot(),
		Network:    tx.Mainnet,
		OnTransition: func(p Phase) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		},
		Log: zerolog.Nop(),
	})
	t.Cleanup(f.Close)
	return f, &seen
}

// fillDraft sets a valid recipient and amount and waits for the fee tiers
// to land.
func fillDraft(t *testing.T, f *Flow, amount string) {
	t.Helper()
	require.NoError(t, f.SetRecipient(toAddr))
	require.NoError(t, f.SetAmount(amount))
	require.Eventually(t, func() bool {
		return f.State().Options != nil
	}, time.Second, 5*time.Millisecond, "fee estimation never resolved")
}

// Every backend must drive the user through the same phase sequence on a
// successful send.
func TestFlow_PhaseSequenceUniformAcrossBackends(t *testing.T) {
	want := []Phase{PhaseValidating, PhaseAwaitingApproval, PhasePending, PhaseSucceeded}

	for _, backend := range signer.Backends() {
		t.Run(string(backend), func(t *testing.T) {
			f, seen := newTestFlow(t, &fakeStrategy{id: "0xhash"}, backend)
			fillDraft(t, f, "1")

			require.NoError(t, f.Submit())
			assert.Equal(t, want, *seen)

			st := f.State()
			assert.Equal(t, PhaseSucceeded, st.Phase)
			assert.Equal(t, tx.TxID("0xhash"), st.TxID)
			assert.Nil(t, st.LastErr)
		})
	}
}

func TestFlow_ValidationFailureStaysInEditing(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, f *Flow)
		want   *embererr.EmberError
	}{
		{
			name: "incomplete recipient",
			setup: func(t *testing.T, f *Flow) {
				require.NoError(t, f.SetRecipient("0x1234"))
				require.NoError(t, f.SetAmount("1"))
			},
			want: embererr.ErrInvalidRecipientAddress,
		},
		{
			name: "non-numeric amount",
			setup: func(t *testing.T, f *Flow) {
				fillDraft(t, f, "1")
				require.NoError(t, f.SetAmount("abc"))
			},
			want: embererr.ErrInvalidAmount,
		},
		{
			name: "zero amount",
			setup: func(t *testing.T, f *Flow) {
				fillDraft(t, f, "1")
				require.NoError(t, f.SetAmount("0"))
			},
			want: embererr.ErrInvalidAmount,
		},
		{
			name: "amount exceeds balance",
			setup: func(t *testing.T, f *Flow) {
				fillDraft(t, f, "2")
			},
			want: embererr.ErrInsufficientBalance,
		},
		{
			name: "amount plus fee exceeds balance",
			setup: func(t *testing.T, f *Flow) {
				fillDraft(t, f, "1.4999999")
			},
			want: embererr.ErrInsufficientForFees,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := &fakeStrategy{id: "0xhash"}
			f, _ := newTestFlow(t, strategy, signer.BackendMetaMask)
			tt.setup(t, f)

			err := f.Submit()
			assert.True(t, embererr.Is(err, tt.want), "got %v, want %v", err, tt.want)

			st := f.State()
			assert.Equal(t, PhaseEditing, st.Phase, "validation failures return to editing")
			assert.Equal(t, err, st.LastErr)
			assert.Equal(t, 0, strategy.called, "invalid drafts must never reach a backend")
		})
	}
}

func TestFlow_SubmitBlockedUntilTiersResolve(t *testing.T) {
	release := make(chan fee.Options)
	blocking := func(ctx context.Context, _ unit.Asset, _ *unit.PriceTable) (fee.Options, error) {
		select {
		case opts := <-release:
			return opts, nil
		case <-ctx.Done():
			return fee.Options{}, ctx.Err()
		}
	}

	f := New(Config{
		Backend:    signer.BackendMetaMask,
		Dispatcher: testDispatcher(&fakeStrategy{id: "0xhash"}),
		Estimate:   blocking,
		Snapshot:   testSnapshot(),
		Network:    tx.Mainnet,
		Log:        zerolog.Nop(),
	})
	t.Cleanup(f.Close)

	require.NoError(t, f.SetRecipient(toAddr))
	require.NoError(t, f.SetAmount("1"))

	err := f.Submit()
	assert.True(t, embererr.Is(err, embererr.ErrFeeUnavailable))
	assert.Equal(t, PhaseEditing, f.State().Phase)
}

func TestFlow_StaleEstimationDiscarded(t *testing.T) {
	type estCall struct {
		result chan fee.Options
	}
	calls := make(chan *estCall, 4)
	scripted := func(ctx context.Context, _ unit.Asset, _ *unit.PriceTable) (fee.Options, error) {
		c := &estCall{result: make(chan fee.Options)}
		calls <- c
		select {
		case opts := <-c.result:
			return opts, nil
		case <-ctx.Done():
			return fee.Options{}, ctx.Err()
		}
	}

	f := New(Config{
		Backend:    signer.BackendMetaMask,
		Dispatcher: testDispatcher(&fakeStrategy{}),
		Estimate:   scripted,
		Snapshot:   testSnapshot(),
		Network:    tx.Mainnet,
		Log:        zerolog.Nop(),
	})
	t.Cleanup(f.Close)

	require.NoError(t, f.SetRecipient(toAddr))
	first := <-calls
	require.NoError(t, f.SetAmount("1"))
	second := <-calls

	// The newer estimation resolves first and wins.
	second.result <- fee.BuildOptions(nil, nil, fee.GasLimitTokenTransfer)
	require.Eventually(t, func() bool {
		opts := f.State().Options
		return opts != nil && opts.GasLimit == fee.GasLimitTokenTransfer
	}, time.Second, 5*time.Millisecond)

	// The superseded one resolves late and must be discarded.
	first.result <- fee.BuildOptions(nil, nil, fee.GasLimitTransfer)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, fee.GasLimitTokenTransfer, f.State().Options.GasLimit)
}

func TestFlow_CloseDiscardsInFlightEstimation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan fee.Options, 1)
	blocking := func(ctx context.Context, _ unit.Asset, _ *unit.PriceTable) (fee.Options, error) {
		close(started)
		select {
		case opts := <-release:
			return opts, nil
		case <-ctx.Done():
			return fee.Options{}, ctx.Err()
		}
	}

	f := New(Config{
		Backend:    signer.BackendMetaMask,
		Dispatcher: testDispatcher(&fakeStrategy{}),
		Estimate:   blocking,
		Snapshot:   testSnapshot(),
		Network:    tx.Mainnet,
		Log:        zerolog.Nop(),
	})

	require.NoError(t, f.SetRecipient(toAddr))
	<-started
	f.Close()
	release <- fee.BuildOptions(nil, nil, fee.GasLimitTransfer)

	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, f.State().Options, "results arriving after close must be dropped")
	assert.Equal(t, embererr.ErrFlowClosed, f.Submit())
}

func TestFlow_BackendFailureLandsInFailed(t *testing.T) {
	for _, reason := range []*embererr.EmberError{
		embererr.ErrBackendRejected,
		embererr.ErrDevicePopupBlocked,
		embererr.ErrProviderUnavailable,
		embererr.ErrChainMismatch,
		embererr.ErrNetworkError,
	} {
		t.Run(reason.Code, func(t *testing.T) {
			f, seen := newTestFlow(t, &fakeStrategy{err: reason}, signer.BackendLedger)
			fillDraft(t, f, "1")

			err := f.Submit()
			assert.True(t, embererr.Is(err, reason))

			st := f.State()
			assert.Equal(t, PhaseFailed, st.Phase)
			require.NotNil(t, st.LastErr, "failed phase always carries a reason")
			assert.Equal(t, (*seen)[len(*seen)-1], PhaseFailed)
		})
	}
}

func TestFlow_SendAnotherResetsDraft(t *testing.T) {
	f, _ := newTestFlow(t, &fakeStrategy{id: "0xhash"}, signer.BackendMetaMask)
	fillDraft(t, f, "1")
	require.NoError(t, f.Submit())

	require.NoError(t, f.SendAnother())
	st := f.State()
	assert.Equal(t, PhaseEditing, st.Phase)
	assert.Empty(t, st.TxID)
	assert.Nil(t, st.Intent)
	assert.Nil(t, st.LastErr)

	// Recipient and amount were cleared; submitting again fails validation.
	err := f.Submit()
	assert.True(t, embererr.Is(err, embererr.ErrInvalidRecipientAddress))
}

func TestFlow_SendAnotherOnlyFromTerminalPhase(t *testing.T) {
	f, _ := newTestFlow(t, &fakeStrategy{id: "0xhash"}, signer.BackendMetaMask)
	assert.Equal(t, embererr.ErrInvalidPhase, f.SendAnother())
}

func TestFlow_EditsRejectedOutsideEditing(t *testing.T) {
	f, _ := newTestFlow(t, &fakeStrategy{id: "0xhash"}, signer.BackendMetaMask)
	fillDraft(t, f, "1")
	require.NoError(t, f.Submit())

	assert.Equal(t, embererr.ErrInvalidPhase, f.SetRecipient(toAddr))
	assert.Equal(t, embererr.ErrInvalidPhase, f.SetAmount("2"))
	assert.Equal(t, embererr.ErrInvalidPhase, f.SetTier(fee.TierFast))
	assert.Equal(t, embererr.ErrInvalidPhase, f.Submit())
}

func TestFlow_ExplorerURL(t *testing.T) {
	f, _ := newTestFlow(t, &fakeStrategy{id: "0xhash"}, signer.BackendMetaMask)

	_, ok := f.ExplorerURL()
	assert.False(t, ok, "no link before success")

	fillDraft(t, f, "1")
	require.NoError(t, f.Submit())

	url, ok := f.ExplorerURL()
	require.True(t, ok)
	assert.Equal(t, "https://etherscan.io/tx/0xhash", url)
}

func TestFlow_TierSelectionFlowsIntoIntent(t *testing.T) {
	f, _ := newTestFlow(t, &fakeStrategy{id: "0xhash"}, signer.BackendMetaMask)
	fillDraft(t, f, "1")
	require.NoError(t, f.SetTier(fee.TierFast))
	require.NoError(t, f.Submit())

	st := f.State()
	require.NotNil(t, st.Intent)
	assert.Equal(t, st.Options.Fast.GasPriceWei.String(), st.Intent.GasPriceWei.String())
	assert.Equal(t, st.Options.GasLimit, st.Intent.GasLimit)
	assert.Equal(t, uint64(1), st.Intent.ChainID)
}
