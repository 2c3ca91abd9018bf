// Package signer routes a transaction intent to one of four
// interchangeable signing backends and normalizes their results and
// errors into one shape. The send flow has no per-backend branching;
// everything backend-specific lives behind the Strategy contract here.
package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/mrz1836/embersend/internal/tx"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// Backend identifies a signing backend. The set is closed; every value
// maps to exactly one strategy.
type Backend string

// Supported signing backends.
const (
	BackendMetaMask      Backend = "metamask"
	BackendLedger        Backend = "ledger"
	BackendTrezor        Backend = "trezor"
	BackendWalletConnect Backend = "walletconnect"
)

// Backends returns all supported backend identifiers.
func Backends() []Backend {
	return []Backend{BackendMetaMask, BackendLedger, BackendTrezor, BackendWalletConnect}
}

// ParseBackend parses a backend identifier string.
func ParseBackend(s string) (Backend, error) {
	b := Backend(s)
	switch b {
	case BackendMetaMask, BackendLedger, BackendTrezor, BackendWalletConnect:
		return b, nil
	default:
		return "", embererr.WithDetails(embererr.ErrUnknownBackend, map[string]string{
			"backend": s,
			"allowed": "metamask, ledger, trezor, walletconnect",
		})
	}
}

// Strategy signs and submits one intent. Implementations return a
// submission identifier on success, or an error from the normalized
// taxonomy in pkg/errors.
type Strategy interface {
	// SignAndSend signs the intent and submits it to the network. The
	// call is user-paced (a device or remote wallet may be prompting)
	// but must honor context cancellation.
	SignAndSend(ctx context.Context, intent *tx.Intent) (tx.TxID, error)
}

// Node is the narrow slice of an Ethereum client the hardware strategies
// need: nonce resolution and broadcast. *ethclient.Client satisfies it.
type Node interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, t *types.Transaction) error
}

// Dispatcher holds the strategy table. Backend handles are injected at
// construction; there is no package-level shared state, so concurrent
// and cancelled flows cannot observe each other.
type Dispatcher struct {
	strategies map[Backend]Strategy
	log        zerolog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		strategies: make(map[Backend]Strategy),
		log:        log,
	}
}

// Register installs a strategy for a backend, replacing any previous one.
func (d *Dispatcher) Register(b Backend, s Strategy) {
	d.strategies[b] = s
}

// Supports reports whether a strategy is registered for the backend.
func (d *Dispatcher) Supports(b Backend) bool {
	_, ok := d.strategies[b]
	return ok
}

// SignAndSend routes the intent to the backend's strategy. Errors are
// normalized to the taxonomy; the backend-specific detail is logged here
// and not propagated.
func (d *Dispatcher) SignAndSend(ctx context.Context, backend Backend, intent *tx.Intent) (tx.TxID, error) {
	if err := intent.Validate(); err != nil {
		return "", err
	}

	strategy, ok := d.strategies[backend]
	if !ok {
		return "", embererr.WithDetails(embererr.ErrUnknownBackend, map[string]string{
			"backend": string(backend),
		})
	}

	id, err := strategy.SignAndSend(ctx, intent)
	if err != nil {
		norm := normalizeError(err)
		d.log.Error().
			Str("backend", string(backend)).
			Str("code", embererr.Code(norm)).
			Err(err).
			Msg("signing backend failed")
		return "", norm
	}

	d.log.Info().
		Str("backend", string(backend)).
		Str("tx_id", string(id)).
		Msg("transaction submitted")
	return id, nil
}

// normalizeError maps a strategy error onto the taxonomy. Errors already
// carrying a taxonomy code pass through; context cancellation is a user
// cancel; anything else is a transient network failure.
func normalizeError(err error) error {
	var ee *embererr.EmberError
	if embererr.As(err, &ee) {
		return err
	}
	if embererr.Is(err, context.Canceled) {
		return embererr.WithCause(embererr.ErrBackendRejected, err)
	}
	return embererr.WithCause(embererr.ErrNetworkError, err)
}
