package signer

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/mrz1836/embersend/internal/tx"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// Provider is an injected-provider handle (a MetaMask-style wallet
// already present in the execution environment). The provider resolves
// the sender's nonce and signs internally, opening its own confirmation
// UI; this engine only hands it the transaction fields.
type Provider interface {
	// SendTransaction submits the request and returns the transaction
	// hash. A user decline surfaces as ErrBackendRejected.
	SendTransaction(ctx context.Context, req ProviderRequest) (string, error)
}

// ProviderRequest carries the transaction fields an injected provider
// accepts.
type ProviderRequest struct {
	From        string
	To          string
	ValueWei    *big.Int
	GasLimit    uint64
	GasPriceWei *big.Int
	Data        []byte
}

// InjectedStrategy delegates signing and submission to an injected
// provider. The handle is constructor-injected and may be nil when no
// provider exists in the environment.
type InjectedStrategy struct {
	provider Provider
}

// NewInjectedStrategy creates the injected-provider strategy.
func NewInjectedStrategy(provider Provider) *InjectedStrategy {
	return &InjectedStrategy{provider: provider}
}

// SignAndSend implements Strategy.
func (s *InjectedStrategy) SignAndSend(ctx context.Context, intent *tx.Intent) (tx.TxID, error) {
	if s.provider == nil {
		return "", embererr.ErrProviderUnavailable
	}

	req := ProviderRequest{
		From:        intent.FromAddress,
		To:          intent.ToAddress,
		ValueWei:    intent.AmountBaseUnits().BigInt(),
		GasLimit:    intent.GasLimit,
		GasPriceWei: intent.GasPriceWei.BigInt(),
	}
	if intent.IsTokenTransfer() {
		req.To = intent.Asset.ContractAddress
		req.ValueWei = big.NewInt(0)
		req.Data = buildERC20TransferData(intent.ToAddress, intent.AmountBaseUnits().BigInt())
	}

	hash, err := s.provider.SendTransaction(ctx, req)
	if err != nil {
		return "", err
	}
	return tx.TxID(hash), nil
}

// HashPersonalMessage hashes a message according to EIP-191
// personal_sign, the scheme injected providers use for message-signing
// requests.
func HashPersonalMessage(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(prefix))
	hasher.Write(message)
	return hasher.Sum(nil)
}
