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

// TrezorDevice is a trezor-class device handle. Accounts are enumerated
// once when the device is connected; signing resolves the sender against
// that list. Implementations return ErrDevicePopupBlocked when the
// device's confirmation popup cannot open, and ErrBackendRejected when
// the user declines on the device.
type TrezorDevice interface {
	// Addresses returns the previously enumerated account list.
	Addresses(ctx context.Context) ([]common.Address, error)

	// SignTx runs the device confirmation flow for the account at the
	// given index and returns EIP-155 signature components.
	SignTx(ctx context.Context, accountIndex int, t *types.Transaction, chainID *big.Int) (r, s, v *big.Int, err error)
}

// TrezorStrategy resolves the account from the device's enumerated list,
// runs the confirmation flow, and broadcasts the reconstructed payload.
type TrezorStrategy struct {
	device TrezorDevice
	node   Node
}

// NewTrezorStrategy creates the trezor strategy.
func NewTrezorStrategy(device TrezorDevice, node Node) *TrezorStrategy {
	return &TrezorStrategy{device: device, node: node}
}

// SignAndSend implements Strategy.
func (s *TrezorStrategy) SignAndSend(ctx context.Context, intent *tx.Intent) (tx.TxID, error) {
	addresses, err := s.device.Addresses(ctx)
	if err != nil {
		return "", err
	}

	index := -1
	for i, a := range addresses {
		if strings.EqualFold(a.Hex(), intent.FromAddress) {
			index = i
			break
		}
	}
	if index < 0 {
		return "", embererr.WithDetails(embererr.ErrBackendRejected, map[string]string{
			"reason":  "sender not among enumerated device accounts",
			"address": intent.FromAddress,
		})
	}

	nonce, err := resolveNonce(ctx, s.node, intent)
	if err != nil {
		return "", embererr.WithCause(embererr.ErrNetworkError, err)
	}

	unsigned := buildUnsignedTx(intent, nonce)
	chainID := new(big.Int).SetUint64(intent.ChainID)

	r, sv, v, err := s.device.SignTx(ctx, index, unsigned, chainID)
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
