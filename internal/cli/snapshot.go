package cli

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/mrz1836/embersend/internal/config"
	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// erc20BalanceOfSelector is the first four bytes of keccak256("balanceOf(address)").
var erc20BalanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31} //nolint:gochecknoglobals // ABI constant

// balanceReader is the slice of *ethclient.Client snapshot building uses.
type balanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// nodeDialer opens one RPC endpoint. Split from the real dialer so
// fallback selection is testable without a live node.
type nodeDialer func(ctx context.Context, url string) (balanceReader, *rpc.Client, error)

// dialEndpoint connects to one RPC endpoint.
func dialEndpoint(ctx context.Context, url string) (balanceReader, *rpc.Client, error) {
	conn, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, nil, embererr.WithCause(embererr.ErrNetworkError, err)
	}
	return ethclient.NewClient(conn), conn, nil
}

// rpcEndpoints returns the primary RPC followed by the configured
// fallbacks, with duplicates of the primary dropped.
func rpcEndpoints(cfg *config.Config) []string {
	endpoints := []string{cfg.GetRPC()}
	for _, url := range cfg.GetFallbackRPCs() {
		if url != cfg.GetRPC() {
			endpoints = append(endpoints, url)
		}
	}
	return endpoints
}

// fetchSnapshotWithFallback builds the snapshot from the first endpoint
// that serves it, primary first, each fallback in order. The connection
// that served the snapshot is returned so the send path signs through
// the same node.
func fetchSnapshotWithFallback(ctx context.Context, dial nodeDialer, endpoints []string, address string, tokens []config.TokenConfig, log zerolog.Logger) (unit.AccountSnapshot, *rpc.Client, error) {
	var lastErr error
	for i, url := range endpoints {
		node, conn, err := dial(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}

		snapshot, err := fetchSnapshot(ctx, node, address, tokens)
		if err == nil {
			if i > 0 {
				log.Warn().Str("rpc", url).Msg("primary RPC unavailable, using fallback")
			}
			return snapshot, conn, nil
		}
		if conn != nil {
			conn.Close()
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = embererr.ErrNetworkError
	}
	return unit.AccountSnapshot{}, nil, lastErr
}

// fetchSnapshot builds the account snapshot the validator works against:
// the base-asset balance plus every configured token's balance.
func fetchSnapshot(ctx context.Context, node balanceReader, address string, tokens []config.TokenConfig) (unit.AccountSnapshot, error) {
	account := common.HexToAddress(address)

	baseWei, err := node.BalanceAt(ctx, account, nil)
	if err != nil {
		return unit.AccountSnapshot{}, embererr.WithCause(embererr.ErrNetworkError, err)
	}

	assets := []unit.Asset{{
		Symbol:   unit.BaseAssetSymbol,
		Decimals: unit.BaseAssetDecimals,
		Balance:  unit.NewBase(baseWei),
	}}

	for _, token := range tokens {
		balance, err := fetchTokenBalance(ctx, node, account, token)
		if err != nil {
			return unit.AccountSnapshot{}, err
		}
		assets = append(assets, unit.Asset{
			Symbol:          token.Symbol,
			ContractAddress: token.Address,
			Decimals:        token.Decimals,
			Balance:         balance,
		})
	}

	return unit.AccountSnapshot{Address: address, Assets: assets}, nil
}

// fetchTokenBalance calls balanceOf(account) on the token contract.
func fetchTokenBalance(ctx context.Context, node balanceReader, account common.Address, token config.TokenConfig) (unit.BaseAmount, error) {
	contract := common.HexToAddress(token.Address)

	data := make([]byte, 0, 36)
	data = append(data, erc20BalanceOfSelector...)
	data = append(data, common.LeftPadBytes(account.Bytes(), 32)...)

	result, err := node.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return unit.BaseAmount{}, embererr.WithCause(embererr.ErrNetworkError, err)
	}

	return unit.NewBase(new(big.Int).SetBytes(result)), nil
}
