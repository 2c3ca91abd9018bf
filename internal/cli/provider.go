package cli

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/embersend/internal/signer"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// rpcCaller is the slice of *rpc.Client the provider uses.
type rpcCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// RPCProvider adapts a node's eth_sendTransaction to the injected-provider
// contract. The node owns the account and signs server-side, which is the
// CLI's stand-in for a browser-injected wallet.
type RPCProvider struct {
	caller rpcCaller
}

// NewRPCProvider wraps an RPC connection as a signing provider.
func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{caller: client}
}

// sendTxArgs is the eth_sendTransaction parameter object.
type sendTxArgs struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
	Data     string `json:"data,omitempty"`
}

// SendTransaction implements signer.Provider.
func (p *RPCProvider) SendTransaction(ctx context.Context, req signer.ProviderRequest) (string, error) {
	if p.caller == nil {
		return "", embererr.ErrProviderUnavailable
	}

	args := sendTxArgs{
		From:     req.From,
		To:       req.To,
		Value:    hexutil.EncodeBig(req.ValueWei),
		Gas:      hexutil.EncodeUint64(req.GasLimit),
		GasPrice: hexutil.EncodeBig(req.GasPriceWei),
	}
	if len(req.Data) > 0 {
		args.Data = hexutil.Encode(req.Data)
	}

	var txHash string
	if err := p.caller.CallContext(ctx, &txHash, "eth_sendTransaction", args); err != nil {
		return "", fmt.Errorf("eth_sendTransaction: %w", err)
	}
	return txHash, nil
}
