package cli

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/embersend/internal/signer"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// fakeCaller records eth_sendTransaction calls.
type fakeCaller struct {
	method string
	args   []any
	txHash string
	err    error
}

func (f *fakeCaller) CallContext(_ context.Context, result any, method string, args ...any) error {
	f.method = method
	f.args = args
	if f.err != nil {
		return f.err
	}
	if s, ok := result.(*string); ok {
		*s = f.txHash
	}
	return nil
}

func TestRPCProvider_SendTransaction(t *testing.T) {
	caller := &fakeCaller{txHash: "0xdeadbeef"}
	provider := &RPCProvider{caller: caller}

	hash, err := provider.SendTransaction(context.Background(), signer.ProviderRequest{
		From:        "0x89205A3A3b2A69De6Dbf7f01ED13B2108B2c43e7",
		To:          "0x281055Afc982d96fAB65b3a49cAc8b878184Cb16",
		ValueWei:    big.NewInt(1_000_000_000_000_000_000),
		GasLimit:    21000,
		GasPriceWei: big.NewInt(2_000_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", hash)
	assert.Equal(t, "eth_sendTransaction", caller.method)

	require.Len(t, caller.args, 1)
	args, ok := caller.args[0].(sendTxArgs)
	require.True(t, ok)
	assert.Equal(t, "0xde0b6b3a7640000", args.Value)
	assert.Equal(t, "0x5208", args.Gas)
	assert.Equal(t, "0x77359400", args.GasPrice)
	assert.Empty(t, args.Data)
}

func TestRPCProvider_SendTransactionWithData(t *testing.T) {
	caller := &fakeCaller{txHash: "0xabc"}
	provider := &RPCProvider{caller: caller}

	_, err := provider.SendTransaction(context.Background(), signer.ProviderRequest{
		From:        "0x89205A3A3b2A69De6Dbf7f01ED13B2108B2c43e7",
		To:          "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		ValueWei:    big.NewInt(0),
		GasLimit:    65000,
		GasPriceWei: big.NewInt(1_000_000_000),
		Data:        []byte{0xa9, 0x05, 0x9c, 0xbb},
	})
	require.NoError(t, err)

	args, ok := caller.args[0].(sendTxArgs)
	require.True(t, ok)
	assert.Equal(t, "0xa9059cbb", args.Data)
}

func TestRPCProvider_CallFailure(t *testing.T) {
	caller := &fakeCaller{err: errors.New("connection reset")}
	provider := &RPCProvider{caller: caller}

	_, err := provider.SendTransaction(context.Background(), signer.ProviderRequest{
		ValueWei:    big.NewInt(1),
		GasPriceWei: big.NewInt(1),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eth_sendTransaction")
}

func TestRPCProvider_NilCaller(t *testing.T) {
	provider := &RPCProvider{}

	_, err := provider.SendTransaction(context.Background(), signer.ProviderRequest{})
	assert.ErrorIs(t, err, embererr.ErrProviderUnavailable)
}
