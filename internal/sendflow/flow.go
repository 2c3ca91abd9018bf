// Package sendflow orchestrates the validator, fee model, and signing
// dispatcher against user input. A Flow moves through
// Editing -> Validating -> AwaitingApproval -> Pending -> Succeeded|Failed
// and back to Editing; validation-class errors never reach a backend, and
// every backend failure lands in Failed with a non-nil reason.
package sendflow

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/embersend/internal/fee"
	"github.com/mrz1836/embersend/internal/signer"
	"github.com/mrz1836/embersend/internal/tx"
	"github.com/mrz1836/embersend/internal/unit"
	"github.com/mrz1836/embersend/internal/validate"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// Phase is the flow's lifecycle position.
type Phase string

// Flow phases.
const (
	PhaseEditing          Phase = "editing"
	PhaseValidating       Phase = "validating"
	PhaseAwaitingApproval Phase = "awaiting_approval"
	PhasePending          Phase = "pending"
	PhaseSucceeded        Phase = "succeeded"
	PhaseFailed           Phase = "failed"
)

// EstimateFunc produces fee tiers for the given asset against the current
// price table. Implementations degrade to the fallback tiers on feed
// failure and return an error only for cancellation.
type EstimateFunc func(ctx context.Context, asset unit.Asset, table *unit.PriceTable) (fee.Options, error)

// State is an immutable snapshot of the flow for rendering.
type State struct {
	Phase   Phase
	Intent  *tx.Intent
	Options *fee.Options
	TxID    tx.TxID
	LastErr error
}

// Config wires a Flow's collaborators. All handles are owned by the
// caller and injected here; the flow holds no global state.
type Config struct {
	Backend    signer.Backend
	Dispatcher *signer.Dispatcher
	Estimate   EstimateFunc
	Snapshot   unit.AccountSnapshot
	Network    tx.Network
	// OnTransition, when set, observes every phase change. Called
	// without the flow lock held.
	OnTransition func(Phase)
	Log          zerolog.Logger
}

// Flow is one open send form. Create on open, Close on modal close.
type Flow struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	phase       Phase
	recipient   string
	amountInput string
	asset       unit.Asset
	tier        fee.Tier
	table       *unit.PriceTable
	options     *fee.Options
	intent      *tx.Intent
	txID        tx.TxID
	lastErr     error
	estimateGen uint64
}

// New creates a flow in the Editing phase with the snapshot's base asset
// selected and the average tier preset.
func New(cfg Config) *Flow {
	ctx, cancel := context.WithCancel(context.Background())
	f := &Flow{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		phase:  PhaseEditing,
		tier:   fee.TierAverage,
	}
	if base, ok := cfg.Snapshot.BaseAsset(); ok {
		f.asset = base
	}
	return f
}

// Close tears the flow down: in-flight estimations are discarded and a
// pending backend call is cancelled. Safe to call more than once.
func (f *Flow) Close() {
	f.mu.Lock()
	f.estimateGen++ // anything in flight is now stale
	f.mu.Unlock()
	f.cancel()
}

// State returns a rendering snapshot.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		Phase:   f.phase,
		Intent:  f.intent,
		Options: f.options,
		TxID:    f.txID,
		LastErr: f.lastErr,
	}
}

// SetRecipient updates the recipient while editing. A complete address
// triggers fee re-estimation, since gas cost depends on the recipient.
func (f *Flow) SetRecipient(address string) error {
	return f.edit(func() {
		f.recipient = address
	})
}

// SetAmount updates the transfer amount input while editing.
func (f *Flow) SetAmount(input string) error {
	return f.edit(func() {
		f.amountInput = input
	})
}

// SetAsset switches the transferred asset while editing. The gas limit
// is re-derived for the new asset on the next estimation.
func (f *Flow) SetAsset(a unit.Asset) error {
	return f.edit(func() {
		f.asset = a
		f.options = nil // tiers priced for the old asset's gas limit
	})
}

// SetTier selects the gas speed tier while editing.
func (f *Flow) SetTier(t fee.Tier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseEditing {
		return embererr.ErrInvalidPhase
	}
	f.tier = t
	return nil
}

// UpdatePrices installs a fresh price table and reprices the tiers.
func (f *Flow) UpdatePrices(table *unit.PriceTable) {
	f.mu.Lock()
	f.table = table
	shouldEstimate := f.phase == PhaseEditing && tx.IsValidRecipient(f.recipient)
	f.mu.Unlock()
	if shouldEstimate {
		f.reestimate()
	}
}

// UpdateSnapshot installs a fresh balance snapshot.
func (f *Flow) UpdateSnapshot(snapshot unit.AccountSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg.Snapshot = snapshot
}

// edit applies a draft mutation and kicks off re-estimation when the
// recipient is a complete address.
func (f *Flow) edit(apply func()) error {
	f.mu.Lock()
	if f.phase != PhaseEditing {
		f.mu.Unlock()
		return embererr.ErrInvalidPhase
	}
	apply()
	shouldEstimate := tx.IsValidRecipient(f.recipient)
	f.mu.Unlock()

	if shouldEstimate {
		f.reestimate()
	}
	return nil
}

// reestimate starts an estimation for the current draft. Only the most
// recent estimation's result is applied; anything older is discarded by
// the generation counter, as is anything arriving after Close.
func (f *Flow) reestimate() {
	f.mu.Lock()
	f.estimateGen++
	gen := f.estimateGen
	asset := f.asset
	table := f.table
	f.mu.Unlock()

	go func() {
		opts, err := f.cfg.Estimate(f.ctx, asset, table)
		if err != nil {
			f.cfg.Log.Debug().Err(err).Msg("fee estimation abandoned")
			return
		}

		f.mu.Lock()
		if gen != f.estimateGen || f.ctx.Err() != nil {
			f.mu.Unlock()
			f.cfg.Log.Debug().Uint64("gen", gen).Msg("discarding stale fee estimation")
			return
		}
		f.options = &opts
		f.mu.Unlock()
	}()
}

// Submit runs validation and, when it passes, freezes the intent and
// hands it to the signing dispatcher. It blocks until the attempt reaches
// a terminal phase; the backend call is user-paced but cancelled by
// Close. All retries are user-initiated re-submissions through Editing.
func (f *Flow) Submit() error {
	if err := f.ctx.Err(); err != nil {
		return embererr.ErrFlowClosed
	}

	f.mu.Lock()
	if f.phase != PhaseEditing {
		f.mu.Unlock()
		return embererr.ErrInvalidPhase
	}
	f.phase = PhaseValidating
	f.mu.Unlock()
	f.notify(PhaseValidating)

	intent, option, err := f.buildIntent()
	if err != nil {
		f.failValidation(err)
		return err
	}

	if err := validate.Check(intent, f.snapshotLocked(), option); err != nil {
		f.failValidation(err)
		return err
	}

	// The intent is frozen from here on; edits are rejected until the
	// flow returns to Editing.
	f.mu.Lock()
	f.intent = intent
	f.phase = PhaseAwaitingApproval
	f.mu.Unlock()
	f.notify(PhaseAwaitingApproval)

	// Dispatch is synchronous: one strategy call spans backend approval
	// and broadcast, so the flow enters Pending as the call starts and a
	// decline during approval comes back as the Failed reason.
	f.mu.Lock()
	f.phase = PhasePending
	f.mu.Unlock()
	f.notify(PhasePending)

	id, err := f.cfg.Dispatcher.SignAndSend(f.ctx, f.cfg.Backend, intent)
	if err != nil {
		f.mu.Lock()
		f.phase = PhaseFailed
		f.lastErr = err
		f.mu.Unlock()
		f.notify(PhaseFailed)
		return err
	}

	f.mu.Lock()
	f.phase = PhaseSucceeded
	f.txID = id
	f.lastErr = nil
	f.mu.Unlock()
	f.notify(PhaseSucceeded)
	return nil
}

// SendAnother re-enters Editing after a terminal phase. The amount and
// recipient are cleared; the selected asset and tier are preserved.
func (f *Flow) SendAnother() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseSucceeded && f.phase != PhaseFailed {
		return embererr.ErrInvalidPhase
	}
	f.phase = PhaseEditing
	f.recipient = ""
	f.amountInput = ""
	f.intent = nil
	f.txID = ""
	f.lastErr = nil
	return nil
}

// ExplorerURL returns the block-explorer link for a succeeded flow.
func (f *Flow) ExplorerURL() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseSucceeded || f.txID == "" {
		return "", false
	}
	return f.cfg.Network.ExplorerTxURL(f.txID), true
}

// buildIntent validates the draft fields and assembles a fresh intent.
func (f *Flow) buildIntent() (*tx.Intent, fee.Option, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !tx.IsValidRecipient(f.recipient) {
		return nil, fee.Option{}, embererr.WithDetails(embererr.ErrInvalidRecipientAddress, map[string]string{
			"address": f.recipient,
		})
	}

	amount, ok := unit.ParseAsset(f.amountInput)
	if !ok || amount.IsZero() {
		return nil, fee.Option{}, embererr.WithDetails(embererr.ErrInvalidAmount, map[string]string{
			"input": f.amountInput,
		})
	}

	// Submission is blocked, not defaulted, until a tier has resolved.
	if f.options == nil {
		return nil, fee.Option{}, embererr.ErrFeeUnavailable
	}
	option := f.options.ByTier(f.tier)

	intent := &tx.Intent{
		FromAddress: f.cfg.Snapshot.Address,
		ToAddress:   f.recipient,
		Asset:       f.asset,
		Amount:      amount,
		GasPriceWei: option.GasPriceWei,
		GasLimit:    f.options.GasLimit,
		ChainID:     f.cfg.Network.ChainID,
	}
	return intent, option, nil
}

func (f *Flow) failValidation(err error) {
	f.mu.Lock()
	f.phase = PhaseEditing
	f.lastErr = err
	f.mu.Unlock()
	f.notify(PhaseEditing)
}

func (f *Flow) snapshotLocked() unit.AccountSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.Snapshot
}

func (f *Flow) notify(p Phase) {
	if f.cfg.OnTransition != nil {
		f.cfg.OnTransition(p)
	}
}

// NewEstimator builds the default EstimateFunc: fetch gas-station data
// with a bounded timeout and derive tiers for the asset's own gas limit.
// Feed failures degrade to the fallback tiers so the fee panel is never
// empty.
func NewEstimator(station *fee.StationClient, log zerolog.Logger) EstimateFunc {
	return func(ctx context.Context, asset unit.Asset, table *unit.PriceTable) (fee.Options, error) {
		data, err := station.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fee.Options{}, ctx.Err()
			}
			log.Warn().Err(err).Msg("gas station unavailable, using fallback tiers")
			data = nil
		}
		return fee.BuildOptions(data, table, fee.GasLimitForAsset(asset)), nil
	}
}
