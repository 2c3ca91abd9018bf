// Package tx defines the transaction intent handed from the send flow to
// the signing dispatcher, plus network metadata for explorer links.
package tx

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// Intent is the frozen, validated description of a transfer about to be
// signed. One Intent is constructed per submission attempt and never
// reused across backends.
type Intent struct {
	FromAddress string
	ToAddress   string
	Asset       unit.Asset
	Amount      unit.AssetAmount
	GasPriceWei unit.BaseAmount
	GasLimit    uint64
	// Nonce is nil when the backend resolves it itself (injected
	// provider, remote session).
	Nonce *uint64
	// ChainID is the network the transfer targets.
	ChainID uint64
}

// Validate checks the fields a backend relies on. Recipient validation is
// also run earlier, on every edit, by the send flow.
func (i *Intent) Validate() error {
	if !common.IsHexAddress(i.FromAddress) {
		return embererr.WithDetails(embererr.ErrInvalidRecipientAddress, map[string]string{
			"field":   "from",
			"address": i.FromAddress,
		})
	}
	if !common.IsHexAddress(i.ToAddress) {
		return embererr.WithDetails(embererr.ErrInvalidRecipientAddress, map[string]string{
			"field":   "to",
			"address": i.ToAddress,
		})
	}
	if i.GasPriceWei.IsZero() {
		return embererr.ErrFeeUnavailable
	}
	if i.GasLimit == 0 {
		return embererr.WithDetails(embererr.ErrInvalidAmount, map[string]string{
			"reason": "gas limit cannot be zero",
		})
	}
	return nil
}

// AmountBaseUnits returns the transfer amount scaled to the asset's base
// units, ready for transaction construction.
func (i *Intent) AmountBaseUnits() unit.BaseAmount {
	return unit.ToBaseUnits(i.Amount, i.Asset.Decimals)
}

// IsTokenTransfer reports whether the transfer moves a non-base asset and
// therefore goes through the token contract.
func (i *Intent) IsTokenTransfer() bool {
	return !i.Asset.IsBase()
}

// TxID is a submitted-transaction identifier, uniform across backends.
type TxID string

// IsValidRecipient reports whether a recipient string is a complete,
// well-formed address. Used by the send flow to decide when an edit
// should trigger fee re-estimation.
func IsValidRecipient(address string) bool {
	return common.IsHexAddress(address)
}
