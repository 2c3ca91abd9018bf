package signer

import (
	"context"
	"math/big"

	"github.com/mrz1836/embersend/internal/tx"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// SessionStateSent is the remote-session terminal state that means the
// paired wallet signed and broadcast the transaction. Any other terminal
// state is a failure.
const SessionStateSent = "sent"

// SessionStatus is the terminal outcome of a forwarded request.
type SessionStatus struct {
	State  string
	TxHash string
}

// RemoteSession is an already-established paired session with a remote
// wallet. The session owns key custody and broadcast; this engine only
// forwards the intent and waits for the status callback.
type RemoteSession interface {
	// SendTransaction forwards the transaction over the session and
	// returns a request id to await.
	SendTransaction(ctx context.Context, req ProviderRequest) (requestID string, err error)

	// AwaitStatus blocks until the request reaches a terminal status or
	// the context is cancelled.
	AwaitStatus(ctx context.Context, requestID string) (SessionStatus, error)
}

// WalletConnectStrategy forwards intents over a paired remote session.
type WalletConnectStrategy struct {
	session RemoteSession
}

// NewWalletConnectStrategy creates the remote-session strategy.
func NewWalletConnectStrategy(session RemoteSession) *WalletConnectStrategy {
	return &WalletConnectStrategy{session: session}
}

// SignAndSend implements Strategy.
func (s *WalletConnectStrategy) SignAndSend(ctx context.Context, intent *tx.Intent) (tx.TxID, error) {
	if s.session == nil {
		return "", embererr.WithDetails(embererr.ErrProviderUnavailable, map[string]string{
			"backend": "walletconnect",
		})
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

	requestID, err := s.session.SendTransaction(ctx, req)
	if err != nil {
		return "", err
	}

	status, err := s.session.AwaitStatus(ctx, requestID)
	if err != nil {
		return "", err
	}
	if status.State != SessionStateSent {
		return "", embererr.WithDetails(embererr.ErrBackendRejected, map[string]string{
			"state": status.State,
		})
	}
	return tx.TxID(status.TxHash), nil
}
