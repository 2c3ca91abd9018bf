package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/embersend/internal/tx"
)

// ERC-20 transfer function selector: keccak256("transfer(address,uint256)")[0:4]
//
//nolint:gochecknoglobals // ERC-20 constant
var erc20TransferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// buildUnsignedTx constructs the legacy transaction for an intent. Native
// transfers carry the value directly; token transfers go to the token
// contract with a zero value and transfer(address,uint256) call data.
func buildUnsignedTx(intent *tx.Intent, nonce uint64) *types.Transaction {
	if intent.IsTokenTransfer() {
		contract := common.HexToAddress(intent.Asset.ContractAddress)
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &contract,
			Value:    big.NewInt(0),
			Gas:      intent.GasLimit,
			GasPrice: intent.GasPriceWei.BigInt(),
			Data:     buildERC20TransferData(intent.ToAddress, intent.AmountBaseUnits().BigInt()),
		})
	}

	to := common.HexToAddress(intent.ToAddress)
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    intent.AmountBaseUnits().BigInt(),
		Gas:      intent.GasLimit,
		GasPrice: intent.GasPriceWei.BigInt(),
	})
}

// buildERC20TransferData builds the call data for an ERC-20 transfer.
// transfer(address,uint256) = 0xa9059cbb
func buildERC20TransferData(to string, amount *big.Int) []byte {
	data := make([]byte, 68) // 4 + 32 + 32
	copy(data[:4], erc20TransferSelector)

	// Pad address to 32 bytes (left-pad with zeros)
	toAddr := common.HexToAddress(to)
	copy(data[16:36], toAddr.Bytes())

	// Pad amount to 32 bytes (left-pad with zeros)
	amountBytes := amount.Bytes()
	copy(data[68-len(amountBytes):68], amountBytes)

	return data
}

// resolveNonce returns the intent's explicit nonce when set, otherwise
// the node's pending nonce for the sender.
func resolveNonce(ctx context.Context, node Node, intent *tx.Intent) (uint64, error) {
	if intent.Nonce != nil {
		return *intent.Nonce, nil
	}
	return node.PendingNonceAt(ctx, common.HexToAddress(intent.FromAddress))
}
