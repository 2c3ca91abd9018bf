package signer

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/embersend/internal/tx"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// LedgerDerivationPath is the fixed BIP-44 path the ledger strategy
// derives its signing account from.
const LedgerDerivationPath = "m/44'/60'/0'/0/0"

// LedgerTransport is one open session with a ledger-class device.
// Implementations return ErrBackendRejected when the user declines on
// the device.
type LedgerTransport interface {
	// Address derives the account at the given path.
	Address(ctx context.Context, path string) (common.Address, error)

	// SignTx asks the device to display and sign the transaction. The
	// returned signature is EIP-155 encoded: v carries the chain id.
	SignTx(ctx context.Context, path string, t *types.Transaction, chainID *big.Int) (r, s, v *big.Int, err error)

	// Close releases the transport session.
	Close() error
}

// LedgerTransportFactory opens a fresh transport session. A factory, not
// a shared instance: each signing attempt owns its session and closes it.
type LedgerTransportFactory func(ctx context.Context) (LedgerTransport, error)

// LedgerStrategy signs on a hardware device over a transport session,
// verifies the returned chain id, and broadcasts the reconstructed
// payload through the node.
type LedgerStrategy struct {
	openTransport LedgerTransportFactory
	node          Node
}

// NewLedgerStrategy creates the ledger strategy.
func NewLedgerStrategy(factory LedgerTransportFactory, node Node) *LedgerStrategy {
	return &LedgerStrategy{openTransport: factory, node: node}
}

// SignAndSend implements Strategy.
func (s *LedgerStrategy) SignAndSend(ctx context.Context, intent *tx.Intent) (tx.TxID, error) {
	transport, err := s.openTransport(ctx)
	if err != nil {
		return "", embererr.WithCause(embererr.ErrNetworkError, err)
	}
	// The transport is closed whatever happens below; a leaked session
	// would block the next signing attempt on the device.
	defer func() { _ = transport.Close() }()

	derived, err := transport.Address(ctx, LedgerDerivationPath)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(derived.Hex(), intent.FromAddress) {
		return "", embererr.WithDetails(embererr.ErrBackendRejected, map[string]string{
			"reason":   "device account does not match sender",
			"derived":  derived.Hex(),
			"expected": intent.FromAddress,
		})
	}

	nonce, err := resolveNonce(ctx, s.node, intent)
	if err != nil {
		return "", embererr.WithCause(embererr.ErrNetworkError, err)
	}

	unsigned := buildUnsignedTx(intent, nonce)
	chainID := new(big.Int).SetUint64(intent.ChainID)

	r, sv, v, err := transport.SignTx(ctx, LedgerDerivationPath, unsigned, chainID)
	if err != nil {
		return "", err
	}

	signed, err := reconstructEIP155(unsigned, r, sv, v, chainID)
	if err != nil {
		return "", err
	}

	if err := s.node.SendTransaction(ctx, signed); err != nil {
		return "", embererr.WithCause(embererr.ErrNetworkError, err)
	}
	return tx.TxID(signed.Hash().Hex()), nil
}

// reconstructEIP155 rebuilds a signed transaction from raw signature
// components, verifying that the chain id encoded in v matches the
// requested network before anything is broadcast.
func reconstructEIP155(unsigned *types.Transaction, r, s, v *big.Int, chainID *big.Int) (*types.Transaction, error) {
	recovered, recovery, ok := splitEIP155V(v)
	if !ok || recovered.Cmp(chainID) != 0 {
		return nil, embererr.WithDetails(embererr.ErrChainMismatch, map[string]string{
			"requested": chainID.String(),
			"signed":    recovered.String(),
		})
	}

	sig := make([]byte, 65)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[64] = recovery

	signed, err := unsigned.WithSignature(types.NewEIP155Signer(chainID), sig)
	if err != nil {
		return nil, embererr.Wrap(err, "reconstructing signed transaction")
	}
	return signed, nil
}

// splitEIP155V splits an EIP-155 v value (chainID*2 + 35 + recovery)
// into its chain id and recovery bit.
func splitEIP155V(v *big.Int) (chainID *big.Int, recovery byte, ok bool) {
	if v == nil || v.Cmp(big.NewInt(35)) < 0 {
		return new(big.Int), 0, false
	}
	shifted := new(big.Int).Sub(v, big.NewInt(35))
	recovery = byte(shifted.Bit(0))
	chainID = new(big.Int).Rsh(shifted, 1)
	return chainID, recovery, true
}
