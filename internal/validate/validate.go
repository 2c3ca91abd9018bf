// Package validate decides whether a transfer is affordable before any
// signing backend is invoked. Checks are pure and synchronous so they can
// run on every keystroke.
package validate

import (
	"github.com/mrz1836/embersend/internal/fee"
	"github.com/mrz1836/embersend/internal/tx"
	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// Check verifies that the account can afford both the transfer amount and
// the fee. The fee is always paid in the base asset, no matter which
// asset the transfer moves. A nil error means the transfer is affordable.
func Check(intent *tx.Intent, snapshot unit.AccountSnapshot, option fee.Option) error {
	if option.GasPriceWei.IsZero() {
		return embererr.ErrFeeUnavailable
	}

	base, ok := snapshot.BaseAsset()
	if !ok {
		return embererr.WithDetails(embererr.ErrAssetNotFound, map[string]string{
			"symbol": unit.BaseAssetSymbol,
		})
	}
	baseBalance := base.BalanceDecimal()

	if !intent.IsTokenTransfer() {
		requested := intent.Amount
		if requested.GreaterThan(baseBalance) {
			return insufficientBalance(requested, baseBalance)
		}
		totalWithFee := requested.Add(option.FeeBase)
		if totalWithFee.GreaterThan(baseBalance) {
			return embererr.WithDetails(embererr.ErrInsufficientForFees, map[string]string{
				"requested": requested.String(),
				"fee":       option.FeeBase.String(),
				"balance":   baseBalance.String(),
			})
		}
		return nil
	}

	token, ok := snapshot.FindAsset(intent.Asset)
	if !ok {
		return embererr.WithDetails(embererr.ErrAssetNotFound, map[string]string{
			"symbol": intent.Asset.Symbol,
		})
	}
	tokenBalance := token.BalanceDecimal()

	if intent.Amount.GreaterThan(tokenBalance) {
		return insufficientBalance(intent.Amount, tokenBalance)
	}
	if option.FeeBase.GreaterThan(baseBalance) {
		return embererr.WithDetails(embererr.ErrInsufficientForFees, map[string]string{
			"fee":          option.FeeBase.String(),
			"base_balance": baseBalance.String(),
		})
	}
	return nil
}

func insufficientBalance(requested, balance unit.AssetAmount) error {
	return embererr.WithDetails(embererr.ErrInsufficientBalance, map[string]string{
		"requested": requested.String(),
		"balance":   balance.String(),
	})
}
